package repl

import (
	"errors"
	"fmt"
	"time"

	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/i18n"
)

func (r *REPL) displayResponse(res *chat.TurnResult, d time.Duration) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.formatter.FormatAssistantMessage(res.ModelUsed, r.markdown.Render(res.Reply)))
	if r.opts.ShowTokenCount {
		fmt.Fprintln(r.out, r.formatter.FormatTokenUsage(res.TokensUsed, res.ModelUsed, d))
	}
	fmt.Fprintln(r.out)
}

// localize replaces orchestrator errors with the user-facing message in the
// session language.
func (r *REPL) localize(err error) error {
	key := chat.MessageKey(err)
	if key == i18n.ServerError {
		return err
	}
	return errors.New(i18n.Message(key, r.opts.Language))
}

func (r *REPL) displayError(err error) {
	fmt.Fprintln(r.out, r.formatter.FormatError(err))
	fmt.Fprintln(r.out)
}

func (r *REPL) displayInfo(msg string) {
	fmt.Fprintln(r.out, r.formatter.FormatInfo(msg))
	fmt.Fprintln(r.out)
}

func (r *REPL) displaySystem(msg string) {
	fmt.Fprintln(r.out, r.formatter.FormatSystem(msg))
	fmt.Fprintln(r.out)
}
