package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/notexe/chat-gateway/internal/auth"
	"github.com/notexe/chat-gateway/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if len(a.cfg.Auth.Tokens) == 0 && a.cfg.Auth.AnonymousUser == "" {
				a.logger.Warn("no auth tokens configured; every /api request will be rejected")
			}

			authn := auth.New(a.cfg.Auth.Tokens, a.cfg.Auth.AnonymousUser, a.logger)
			srv := server.New(a.cfg.Server, a.orch, a.registry, authn, a.logger)
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
