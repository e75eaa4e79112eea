// Package repl is the interactive terminal client of the gateway.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/registry"
	"github.com/notexe/chat-gateway/internal/ui"
)

// Conversations is the orchestrator surface the terminal drives.
type Conversations interface {
	SendTurn(ctx context.Context, userID string, req chat.TurnRequest) (*chat.TurnResult, error)
	ListChats(ctx context.Context, userID string, page, pageSize int) (*chat.ChatPage, error)
	Messages(ctx context.Context, userID, chatID string) ([]model.Message, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
}

// Catalog lists and checks model names.
type Catalog interface {
	ListAvailable() []registry.CatalogEntry
	IsAvailable(name string) bool
}

type Options struct {
	UserID         string
	Model          string
	Language       string
	ShowTokenCount bool
	Colored        bool
	RenderMarkdown bool
	HistoryFile    string
}

type REPL struct {
	chats     Conversations
	catalog   Catalog
	opts      Options
	rl        *readline.Instance
	out       io.Writer
	formatter *ui.Formatter
	spinner   *ui.Spinner
	markdown  *ui.Markdown

	// pick chooses one of several options; it is the selector by default.
	pick func(question string, options []string) (int, error)

	chatID string
	model  string
}

// New creates a REPL reading from the terminal.
func New(chats Conversations, catalog Catalog, opts Options) (*REPL, error) {
	rl, err := setupReadline(opts.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to setup readline: %w", err)
	}
	r := newREPL(chats, catalog, opts, rl.Stdout())
	r.rl = rl
	r.markdown = ui.NewMarkdown(opts.RenderMarkdown)
	r.rl.SetPrompt(r.formatter.FormatPrompt(r.model))
	return r, nil
}

func newREPL(chats Conversations, catalog Catalog, opts Options, out io.Writer) *REPL {
	r := &REPL{
		chats:     chats,
		catalog:   catalog,
		opts:      opts,
		out:       out,
		formatter: ui.NewFormatter(opts.Colored),
		spinner:   ui.NewSpinner(out, opts.Colored),
		markdown:  ui.NewMarkdown(false),
		chatID:    uuid.NewString(),
		model:     opts.Model,
	}
	r.pick = func(question string, options []string) (int, error) {
		return ui.NewSelector(question, options, r.opts.Colored).Run()
	}
	return r
}

func (r *REPL) Start(ctx context.Context) error {
	defer r.rl.Close()

	fmt.Fprint(r.out, r.formatter.FormatWelcome(r.model, r.opts.UserID))

	for {
		input, err := r.readInput()
		if err != nil {
			if isEOF(err) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if input == "" {
			continue
		}

		if isCommand, command, args := parseCommand(input); isCommand {
			quit, err := r.handleCommand(ctx, command, args)
			if err != nil {
				r.displayError(err)
			}
			if quit {
				return nil
			}
			r.rl.SetPrompt(r.formatter.FormatPrompt(r.model))
			continue
		}

		if err := r.handleMessage(ctx, input); err != nil {
			r.displayError(err)
		}
	}
}

func (r *REPL) handleMessage(ctx context.Context, message string) error {
	r.spinner.Start("Waiting for " + r.model + "...")
	start := time.Now()
	res, err := r.chats.SendTurn(ctx, r.opts.UserID, chat.TurnRequest{
		ChatID:    r.chatID,
		Content:   message,
		ModelType: r.model,
		Language:  r.opts.Language,
	})
	r.spinner.Stop()
	if err != nil {
		return r.localize(err)
	}

	r.displayResponse(res, time.Since(start))
	if res.PersistErr != nil {
		r.displayError(fmt.Errorf("the reply could not be saved to the chat history"))
	}
	return nil
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func (r *REPL) handleCommand(ctx context.Context, command, args string) (bool, error) {
	switch command {
	case "/help", "/h":
		fmt.Fprint(r.out, r.formatter.FormatHelp())

	case "/model", "/m":
		if args == "" {
			r.displayInfo("Current model: " + r.model)
			return false, nil
		}
		if !r.catalog.IsAvailable(args) {
			return false, fmt.Errorf("unknown model: %s (type /models to list them)", args)
		}
		r.model = args
		r.displaySystem("Switched to " + args + ".")

	case "/models":
		fmt.Fprint(r.out, r.formatter.FormatModels(r.catalog.ListAvailable(), r.model))

	case "/new", "/n":
		r.chatID = uuid.NewString()
		r.displaySystem("Started a new chat.")

	case "/chats", "/c":
		return false, r.chooseChat(ctx)

	case "/history":
		msgs, err := r.chats.Messages(ctx, r.opts.UserID, r.chatID)
		if errors.Is(err, chat.ErrChatNotFound) {
			r.displayInfo("This chat has no messages yet.")
			return false, nil
		}
		if err != nil {
			return false, r.localize(err)
		}
		fmt.Fprintln(r.out, r.formatter.FormatHistory(msgs, r.markdown.Render))

	case "/delete":
		if err := r.chats.DeleteChat(ctx, r.opts.UserID, r.chatID); err != nil {
			return false, r.localize(err)
		}
		r.chatID = uuid.NewString()
		r.displaySystem("Chat deleted. Started a new chat.")

	case "/quit", "/exit", "/q":
		fmt.Fprintln(r.out, "\nGoodbye!")
		return true, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type /help for available commands)", command)
	}
	return false, nil
}

func (r *REPL) chooseChat(ctx context.Context) error {
	page, err := r.chats.ListChats(ctx, r.opts.UserID, 1, 0)
	if err != nil {
		return r.localize(err)
	}
	if len(page.Chats) == 0 {
		r.displayInfo("You have no chats yet.")
		return nil
	}

	labels := make([]string, len(page.Chats))
	for i, c := range page.Chats {
		labels[i] = ui.ChatLabel(c)
	}
	idx, err := r.pick("Choose a chat", labels)
	if errors.Is(err, ui.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	picked := page.Chats[idx]
	r.chatID = picked.ID
	if r.catalog.IsAvailable(picked.ModelType) {
		r.model = picked.ModelType
	}
	title := picked.Title
	if title == "" {
		title = picked.ID
	}
	r.displaySystem("Continuing " + title + ".")
	return nil
}

func (r *REPL) Stop() {
	if r.rl != nil {
		r.rl.Close()
	}
}

// parseCommand splits "/cmd args" input. Commands are case-insensitive.
func parseCommand(input string) (bool, string, string) {
	if !strings.HasPrefix(input, "/") {
		return false, "", ""
	}
	command, args, _ := strings.Cut(input, " ")
	return true, strings.ToLower(command), strings.TrimSpace(args)
}
