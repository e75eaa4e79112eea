// Command gateway serves multi-provider chat over HTTP, MCP and the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/config"
	"github.com/notexe/chat-gateway/internal/logging"
	"github.com/notexe/chat-gateway/internal/registry"
	"github.com/notexe/chat-gateway/internal/store"
	"github.com/notexe/chat-gateway/internal/store/postgres"
	"github.com/notexe/chat-gateway/internal/store/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gateway",
	Short:         "Multi-provider chat gateway",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetDefaultConfigPath(), "path to configuration file")
	rootCmd.AddCommand(newServeCmd(), newMCPCmd(), newChatCmd(), newModelsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     store.Repository
	registry *registry.Registry
	orch     *chat.Orchestrator
}

func loadConfig(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openApp loads configuration and wires storage, registry and orchestrator.
// Logs go to logOut so stdout stays free for MCP and the terminal UI.
func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, logger, err := loadConfig(logOut)
	if err != nil {
		return nil, err
	}

	repo, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg, logger)
	if len(reg.Names()) == 0 {
		logger.Warn("no provider credentials configured; every turn will be rejected")
	}

	orch := chat.New(repo, reg, chat.Options{
		DefaultModel:    cfg.Chat.DefaultModel,
		DefaultLanguage: cfg.Chat.DefaultLanguage,
		HistoryWindow:   cfg.Chat.HistoryWindow,
		PageSize:        cfg.Chat.PageSize,
		HistoryDays:     cfg.Chat.HistoryDays,
		Generation:      api.Options{Temperature: api.Temperature(cfg.Model.Temperature), MaxTokens: cfg.Model.MaxTokens},
	}, logger)

	return &app{cfg: cfg, logger: logger, repo: repo, registry: reg, orch: orch}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
}

func openStore(ctx context.Context, db config.DatabaseConfig) (store.Repository, error) {
	switch db.Driver {
	case "postgres":
		s, err := postgres.Open(ctx, db.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		s, err := sqlite.Open(db.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
