package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/registry"
)

func TestSelectorSimple(t *testing.T) {
	var out bytes.Buffer
	idx, err := NewSelector("Pick a chat", []string{"first", "second"}, false).
		WithIO(strings.NewReader("2\n"), &out).
		Run()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Contains(t, out.String(), "[2] second")

	_, err = NewSelector("Pick", []string{"only"}, false).WithIO(strings.NewReader("\n"), &out).Run()
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = NewSelector("Pick", []string{"only"}, false).WithIO(strings.NewReader("7\n"), &out).Run()
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = NewSelector("Pick", nil, false).Run()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestSelectorMoveWraps(t *testing.T) {
	s := NewSelector("Pick", []string{"a", "b", "c"}, false)
	s.move(-1)
	assert.Equal(t, 2, s.selected)
	s.move(1)
	assert.Equal(t, 0, s.selected)
}

func TestFormatterPlain(t *testing.T) {
	f := NewFormatter(false)

	assert.Equal(t, "You: hi", f.FormatUserMessage("hi"))
	assert.Equal(t, "Groq: hello", f.FormatAssistantMessage("Groq", "hello"))
	assert.Equal(t, "Error: boom", f.FormatError(errors.New("boom")))
	assert.Equal(t, "(tokens: 5 | model: llama | time: 250ms)", f.FormatTokenUsage(5, "llama", 250*time.Millisecond))
	assert.Equal(t, "groq > ", f.FormatPrompt("groq"))

	help := f.FormatHelp()
	for _, cmd := range []string{"/help", "/model", "/models", "/new", "/chats", "/history", "/delete", "/quit"} {
		assert.Contains(t, help, cmd)
	}
}

func TestFormatModels(t *testing.T) {
	f := NewFormatter(false)
	out := f.FormatModels([]registry.CatalogEntry{
		{Name: "groq", Provider: "Groq", DisplayName: "Groq (Llama 3.3)"},
		{Name: "claude", Provider: "Anthropic Claude", DisplayName: "Anthropic Claude"},
	}, "claude")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "* claude"))
	assert.Contains(t, lines[0], "Groq (Llama 3.3) (Groq)")
}

func TestFormatHistory(t *testing.T) {
	f := NewFormatter(false)
	out := f.FormatHistory([]model.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello", ModelUsed: "llama"},
	}, strings.ToUpper)
	assert.Equal(t, "You: hi\nllama: HELLO\n", out)
}

func TestChatLabel(t *testing.T) {
	label := ChatLabel(model.ChatSummary{Chat: model.Chat{ModelType: "groq"}, MessageCount: 3})
	assert.True(t, strings.HasPrefix(label, "(untitled)  [groq, 3 messages"))
}

func TestMarkdownDisabled(t *testing.T) {
	assert.Equal(t, "**bold**", NewMarkdown(false).Render("**bold**"))
	var m *Markdown
	assert.Equal(t, "x", m.Render("x"))
}

func TestSpinnerStop(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, false)
	s.Start("Thinking...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()
	assert.Contains(t, buf.String(), "Thinking...")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
