package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/registry"
)

var (
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222"))

	SystemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("183")).
			Italic(true)

	TokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147"))
)

// Formatter renders chat output, styled or plain.
type Formatter struct {
	colored bool
}

func NewFormatter(colored bool) *Formatter {
	return &Formatter{colored: colored}
}

func (f *Formatter) render(style lipgloss.Style, s string) string {
	if f.colored {
		return style.Render(s)
	}
	return s
}

func (f *Formatter) FormatUserMessage(msg string) string {
	return f.render(UserStyle, "You: ") + msg
}

// FormatAssistantMessage prefixes a reply with the provider label.
func (f *Formatter) FormatAssistantMessage(label, msg string) string {
	if label == "" {
		label = "AI"
	}
	return f.render(AssistantStyle, label+": ") + msg
}

func (f *Formatter) FormatError(err error) string {
	return f.render(ErrorStyle, "Error: ") + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	return f.render(InfoStyle, info)
}

func (f *Formatter) FormatSystem(msg string) string {
	return f.render(SystemStyle, msg)
}

// FormatTokenUsage renders the footer shown under a reply.
func (f *Formatter) FormatTokenUsage(tokens int, modelUsed string, d time.Duration) string {
	parts := []string{fmt.Sprintf("tokens: %d", tokens)}
	if modelUsed != "" {
		parts = append(parts, "model: "+modelUsed)
	}
	if d > 0 {
		parts = append(parts, "time: "+formatDuration(d))
	}
	return f.render(TokenStyle, "("+strings.Join(parts, " | ")+")")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func (f *Formatter) FormatWelcome(modelName, userID string) string {
	title := f.render(HeaderStyle, "Chat Gateway")
	lines := []string{
		title,
		f.render(TokenStyle, "Model: ") + f.render(AssistantStyle, modelName),
		f.render(TokenStyle, "User:  ") + userID,
		"",
		f.render(TokenStyle, "Type /help for commands"),
	}
	body := strings.Join(lines, "\n")

	if f.colored {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
		return "\n" + box.Render(body) + "\n\n"
	}
	return "\n" + body + "\n\n"
}

var helpCommands = [][2]string{
	{"/help", "Show this help"},
	{"/model <name>", "Switch the model for the next turns"},
	{"/models", "List available models"},
	{"/new", "Start a new chat"},
	{"/chats", "Pick one of your recent chats"},
	{"/history", "Show the messages of the current chat"},
	{"/delete", "Delete the current chat"},
	{"/quit", "Exit"},
}

func (f *Formatter) FormatHelp() string {
	var sb strings.Builder
	sb.WriteString("\n" + f.render(HeaderStyle, "Commands") + "\n")
	for _, c := range helpCommands {
		sb.WriteString(fmt.Sprintf("  %s %s\n", f.render(AssistantStyle, fmt.Sprintf("%-14s", c[0])), c[1]))
	}
	sb.WriteString(f.render(TokenStyle, "  Ctrl+C or Ctrl+D to exit") + "\n")
	return sb.String()
}

// FormatPrompt returns the input prompt showing the active model.
func (f *Formatter) FormatPrompt(modelName string) string {
	if f.colored {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(modelName) +
			lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true).Render(" > ")
	}
	return modelName + " > "
}

// FormatModels lists the catalog and marks the active model.
func (f *Formatter) FormatModels(models []registry.CatalogEntry, current string) string {
	if len(models) == 0 {
		return f.FormatInfo("No models are configured.")
	}
	var sb strings.Builder
	for _, m := range models {
		marker := "  "
		if m.Name == current {
			marker = f.render(AssistantStyle, "* ")
		}
		sb.WriteString(fmt.Sprintf("%s%s %s\n", marker, f.render(AccentStyle, fmt.Sprintf("%-14s", m.Name)),
			f.render(TokenStyle, m.DisplayName+" ("+m.Provider+")")))
	}
	return sb.String()
}

// ChatLabel is the one-line description of a chat used in listings.
func ChatLabel(c model.ChatSummary) string {
	title := c.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  [%s, %d messages, %s]", title, c.ModelType, c.MessageCount, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
}

// FormatHistory renders stored messages in order.
func (f *Formatter) FormatHistory(msgs []model.Message, render func(string) string) string {
	if len(msgs) == 0 {
		return f.FormatInfo("This chat has no messages yet.")
	}
	var sb strings.Builder
	for _, m := range msgs {
		if m.Role == "user" {
			sb.WriteString(f.FormatUserMessage(m.Content))
		} else {
			sb.WriteString(f.FormatAssistantMessage(m.ModelUsed, render(m.Content)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
