package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/notexe/chat-gateway/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chat tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(a.orch, a.registry, a.cfg.Local.UserID, a.cfg.Chat.DefaultLanguage, a.logger)
			return srv.ServeStdio()
		},
	}
}
