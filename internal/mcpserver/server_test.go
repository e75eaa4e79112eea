package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/api/apitest"
	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/config"
	"github.com/notexe/chat-gateway/internal/registry"
	"github.com/notexe/chat-gateway/internal/store/sqlite"
)

func newTestServer(t *testing.T, stub *apitest.Stub) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := registry.NewFromRegistrations(logger, registry.Registration{
		Name:   "groq",
		Vendor: config.VendorGroq,
		Build:  func() (api.Provider, error) { return stub, nil },
	})
	orch := chat.New(s, reg, chat.Options{DefaultModel: "groq"}, logger)
	return New(orch, reg, "local", "en", logger)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSendPromptAndReadBack(t *testing.T) {
	stub := &apitest.Stub{Label: "Groq", ModelID: "llama-3.3-70b-versatile"}
	s := newTestServer(t, stub)
	ctx := context.Background()

	res, err := s.handleSendPrompt(ctx, call(map[string]any{"chat_id": "c1", "content": "Hello"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var turn chat.TurnResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &turn))
	assert.Equal(t, "ok", turn.Reply)
	assert.Equal(t, "c1", turn.ChatID)
	assert.Equal(t, "llama-3.3-70b-versatile", turn.ModelUsed)

	res, err = s.handleGetChatMessages(ctx, call(map[string]any{"chat_id": "c1"}))
	require.NoError(t, err)
	var msgs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0]["content"])

	res, err = s.handleListChats(ctx, call(map[string]any{"page": 1}))
	require.NoError(t, err)
	var page chat.ChatPage
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &page))
	assert.Equal(t, 1, page.Total)

	res, err = s.handleDeleteChat(ctx, call(map[string]any{"chat_id": "c1"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetChatMessages(ctx, call(map[string]any{"chat_id": "c1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "The requested chat does not exist.", text(t, res))
}

func TestSendPromptErrorsAreLocalized(t *testing.T) {
	stub := &apitest.Stub{Label: "Groq", ModelID: "llama-3.3-70b-versatile"}
	s := newTestServer(t, stub)
	ctx := context.Background()

	res, err := s.handleSendPrompt(ctx, call(map[string]any{"chat_id": "c1", "content": "hi", "model_type": "claude", "language": "ar"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "نموذج الذكاء الاصطناعي المحدد غير مدعوم أو غير متاح.", text(t, res))

	res, err = s.handleSendPrompt(ctx, call(map[string]any{"chat_id": "c1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Message content is required.", text(t, res))

	assert.Empty(t, stub.Calls())
}

func TestListModels(t *testing.T) {
	s := newTestServer(t, &apitest.Stub{Label: "Groq"})

	res, err := s.handleListModels(context.Background(), call(nil))
	require.NoError(t, err)
	var models []registry.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "groq", models[0].Name)
	assert.Equal(t, "Groq", models[0].Provider)
}
