// Package server exposes the chat gateway over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/notexe/chat-gateway/internal/auth"
	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/config"
	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/registry"
)

// MaxRequestBodySize bounds every JSON request body.
const MaxRequestBodySize = 1 << 20

// Service is the conversation API served over HTTP.
type Service interface {
	SendTurn(ctx context.Context, userID string, req chat.TurnRequest) (*chat.TurnResult, error)
	CreateChat(ctx context.Context, userID string, req chat.CreateChatRequest) (*model.Chat, error)
	ListChats(ctx context.Context, userID string, page, pageSize int) (*chat.ChatPage, error)
	RecentChats(ctx context.Context, userID string) ([]model.ChatSummary, error)
	Messages(ctx context.Context, userID, chatID string) ([]model.Message, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
}

// Catalog lists the selectable models.
type Catalog interface {
	ListAvailable() []registry.CatalogEntry
}

type Server struct {
	cfg     config.ServerConfig
	chats   Service
	catalog Catalog
	auth    *auth.Authenticator
	logger  *slog.Logger
	router  *http.ServeMux
	server  *http.Server
}

func New(cfg config.ServerConfig, chats Service, catalog Catalog, authn *auth.Authenticator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		chats:   chats,
		catalog: catalog,
		auth:    authn,
		logger:  logger,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/prompt/{$}", s.handlePrompt)
	api.HandleFunc("GET /api/models/available/{$}", s.handleModels)
	api.HandleFunc("GET /api/chats/{$}", s.handleListChats)
	api.HandleFunc("POST /api/chats/create/{$}", s.handleCreateChat)
	api.HandleFunc("GET /api/chats/history/{$}", s.handleHistory)
	api.HandleFunc("GET /api/chats/{id}/messages/{$}", s.handleMessages)
	api.HandleFunc("DELETE /api/chats/{id}/{$}", s.handleDeleteChat)

	s.router.Handle("/api/", s.auth.Middleware(api))
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routed handler wrapped in recovery and request logging.
func (s *Server) Handler() http.Handler {
	return chain(
		recovery(s.logger),
		requestLogger(s.logger),
	)(s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  seconds(s.cfg.ReadTimeout, 30),
		WriteTimeout: seconds(s.cfg.WriteTimeout, 120),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
