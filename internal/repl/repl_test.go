package repl

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/api/apitest"
	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/config"
	"github.com/notexe/chat-gateway/internal/registry"
	"github.com/notexe/chat-gateway/internal/store/sqlite"
	"github.com/notexe/chat-gateway/internal/ui"
)

func newTestREPL(t *testing.T, lang string) (*REPL, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "repl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	stub := func(label string) func() (api.Provider, error) {
		return func() (api.Provider, error) {
			return &apitest.Stub{Label: label, ModelID: label + "-model"}, nil
		}
	}
	reg := registry.NewFromRegistrations(logger,
		registry.Registration{Name: "groq", Vendor: config.VendorGroq, Build: stub("groq")},
		registry.Registration{Name: "claude", Vendor: config.VendorAnthropic, Build: stub("claude")},
	)
	orch := chat.New(s, reg, chat.Options{DefaultModel: "groq"}, logger)

	var out bytes.Buffer
	r := newREPL(orch, reg, Options{UserID: "local", Model: "groq", Language: lang, ShowTokenCount: true}, &out)
	return r, &out
}

func TestParseCommand(t *testing.T) {
	ok, cmd, args := parseCommand("/MODEL  claude ")
	assert.True(t, ok)
	assert.Equal(t, "/model", cmd)
	assert.Equal(t, "claude", args)

	ok, _, _ = parseCommand("hello /model")
	assert.False(t, ok)
}

func TestHandleMessage(t *testing.T) {
	r, out := newTestREPL(t, "en")
	ctx := context.Background()

	require.NoError(t, r.handleMessage(ctx, "Hello"))
	assert.Contains(t, out.String(), "groq-model: ok")
	assert.Contains(t, out.String(), "(tokens: 1 | model: groq-model")

	msgs, err := r.chats.Messages(ctx, "local", r.chatID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestModelCommands(t *testing.T) {
	r, out := newTestREPL(t, "en")
	ctx := context.Background()

	_, err := r.handleCommand(ctx, "/model", "gpt-4")
	assert.ErrorContains(t, err, "unknown model: gpt-4")
	assert.Equal(t, "groq", r.model)

	_, err = r.handleCommand(ctx, "/model", "claude")
	require.NoError(t, err)
	assert.Equal(t, "claude", r.model)

	out.Reset()
	_, err = r.handleCommand(ctx, "/models", "")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "* claude")
	assert.Contains(t, out.String(), "  groq")
}

func TestChatCommands(t *testing.T) {
	r, out := newTestREPL(t, "en")
	ctx := context.Background()

	require.NoError(t, r.handleMessage(ctx, "first chat"))
	first := r.chatID

	_, err := r.handleCommand(ctx, "/new", "")
	require.NoError(t, err)
	assert.NotEqual(t, first, r.chatID)

	out.Reset()
	_, err = r.handleCommand(ctx, "/history", "")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no messages yet")

	var offered []string
	r.pick = func(_ string, options []string) (int, error) {
		offered = options
		return 0, nil
	}
	_, err = r.handleCommand(ctx, "/chats", "")
	require.NoError(t, err)
	require.Len(t, offered, 1)
	assert.Equal(t, first, r.chatID)

	out.Reset()
	_, err = r.handleCommand(ctx, "/history", "")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "You: first chat")

	_, err = r.handleCommand(ctx, "/delete", "")
	require.NoError(t, err)
	assert.NotEqual(t, first, r.chatID)
	_, err = r.chats.Messages(ctx, "local", first)
	assert.ErrorIs(t, err, chat.ErrChatNotFound)

	r.pick = func(string, []string) (int, error) { return 0, ui.ErrCancelled }
	_, err = r.handleCommand(ctx, "/chats", "")
	assert.NoError(t, err)
}

func TestErrorsAreLocalized(t *testing.T) {
	r, _ := newTestREPL(t, "ar")

	err := r.handleMessage(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, "محتوى الرسالة مطلوب.", err.Error())

	_, err = r.handleCommand(context.Background(), "/delete", "")
	require.Error(t, err)
	assert.Equal(t, "المحادثة المطلوبة غير موجودة.", err.Error())
}

func TestQuitAndUnknown(t *testing.T) {
	r, _ := newTestREPL(t, "en")

	quit, err := r.handleCommand(context.Background(), "/quit", "")
	assert.NoError(t, err)
	assert.True(t, quit)

	quit, err = r.handleCommand(context.Background(), "/bogus", "")
	assert.ErrorContains(t, err, "unknown command")
	assert.False(t, quit)
}
