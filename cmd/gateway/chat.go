package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/notexe/chat-gateway/internal/repl"
	"github.com/notexe/chat-gateway/internal/ui"
)

func newChatCmd() *cobra.Command {
	var (
		modelName string
		language  string
		noColor   bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal as the local user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var logOut io.Writer = io.Discard
			if verbose {
				logOut = os.Stderr
			}
			a, err := openApp(cmd.Context(), logOut)
			if err != nil {
				return err
			}
			defer a.Close()

			if modelName == "" {
				modelName = a.cfg.Chat.DefaultModel
			}
			if !a.registry.IsAvailable(modelName) {
				return fmt.Errorf("model %s is not available; run 'gateway models' to list configured models", modelName)
			}
			if language == "" {
				language = a.cfg.Chat.DefaultLanguage
			}

			r, err := repl.New(a.orch, a.registry, repl.Options{
				UserID:         a.cfg.Local.UserID,
				Model:          modelName,
				Language:       language,
				ShowTokenCount: a.cfg.UI.ShowTokenCount,
				Colored:        a.cfg.UI.ColoredOutput && !noColor && ui.ColorSupported(),
				RenderMarkdown: a.cfg.UI.RenderMarkdown,
				HistoryFile:    a.cfg.UI.HistoryFile,
			})
			if err != nil {
				return err
			}
			return r.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "logical model name (overrides chat.default_model)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "message language: en or ar")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "write logs to stderr")
	return cmd
}
