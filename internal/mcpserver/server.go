// Package mcpserver exposes the chat gateway as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/i18n"
	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/registry"
)

const (
	serverName    = "chat-gateway"
	serverVersion = "1.0.0"
)

// Conversations is the part of the orchestrator the tools use.
type Conversations interface {
	SendTurn(ctx context.Context, userID string, req chat.TurnRequest) (*chat.TurnResult, error)
	ListChats(ctx context.Context, userID string, page, pageSize int) (*chat.ChatPage, error)
	Messages(ctx context.Context, userID, chatID string) ([]model.Message, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
}

// Catalog lists the selectable models.
type Catalog interface {
	ListAvailable() []registry.CatalogEntry
}

// Server is the MCP server for the gateway. Every tool acts as one fixed
// local user.
type Server struct {
	mcpServer *server.MCPServer
	chats     Conversations
	catalog   Catalog
	userID    string
	language  string
	logger    *slog.Logger
}

func New(chats Conversations, catalog Catalog, userID, language string, logger *slog.Logger) *Server {
	s := &Server{
		chats:    chats,
		catalog:  catalog,
		userID:   userID,
		language: i18n.Normalize(language),
		logger:   logger,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving the tools on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("send_prompt",
			mcp.WithDescription("Send a message to a chat and return the model's reply. The chat is created on first use."),
			mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat identifier chosen by the caller")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
			mcp.WithString("model_type", mcp.Description("Logical model name, see list_models (default: configured model)")),
			mcp.WithString("language", mcp.Description("Reply language for errors: en or ar")),
		),
		s.handleSendPrompt,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_models",
			mcp.WithDescription("List the models that can be used with send_prompt"),
		),
		s.handleListModels,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_chats",
			mcp.WithDescription("List chats, most recently updated first"),
			mcp.WithNumber("page", mcp.Description("Page number starting at 1 (default: 1)")),
			mcp.WithNumber("page_size", mcp.Description("Chats per page, at most 100 (default: 20)")),
		),
		s.handleListChats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_chat_messages",
			mcp.WithDescription("Get every message of a chat in order"),
			mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat identifier")),
		),
		s.handleGetChatMessages,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_chat",
			mcp.WithDescription("Delete a chat and all of its messages"),
			mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat identifier")),
		),
		s.handleDeleteChat,
	)
}

func (s *Server) handleSendPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lang := s.language
	if l := req.GetString("language", ""); l != "" {
		lang = i18n.Normalize(l)
	}

	res, err := s.chats.SendTurn(ctx, s.userID, chat.TurnRequest{
		ChatID:    req.GetString("chat_id", ""),
		Content:   req.GetString("content", ""),
		ModelType: req.GetString("model_type", ""),
		Language:  lang,
	})
	if err != nil {
		return s.failure(err, lang), nil
	}
	return jsonResult(res)
}

func (s *Server) handleListModels(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	models := s.catalog.ListAvailable()
	if len(models) == 0 {
		return mcp.NewToolResultError(i18n.Message(i18n.ModelFetchFailed, s.language)), nil
	}
	return jsonResult(models)
}

func (s *Server) handleListChats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.chats.ListChats(ctx, s.userID, req.GetInt("page", 1), req.GetInt("page_size", 0))
	if err != nil {
		return s.failure(err, s.language), nil
	}
	return jsonResult(page)
}

func (s *Server) handleGetChatMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msgs, err := s.chats.Messages(ctx, s.userID, req.GetString("chat_id", ""))
	if err != nil {
		return s.failure(err, s.language), nil
	}
	return jsonResult(msgs)
}

func (s *Server) handleDeleteChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatID := req.GetString("chat_id", "")
	if err := s.chats.DeleteChat(ctx, s.userID, chatID); err != nil {
		return s.failure(err, s.language), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Chat %s deleted", chatID)), nil
}

// failure turns an orchestrator error into a localized tool error.
func (s *Server) failure(err error, lang string) *mcp.CallToolResult {
	key := chat.MessageKey(err)
	if key == i18n.ServerError {
		s.logger.Error("tool call failed", "error", err)
	}
	return mcp.NewToolResultError(i18n.Message(key, lang))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(output)), nil
}
