// Package chat turns user turns into persisted, provider-backed exchanges.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/i18n"
	"github.com/notexe/chat-gateway/internal/model"
	"github.com/notexe/chat-gateway/internal/store"
)

const maxPageSize = 100

// Resolver returns provider clients for logical model names.
type Resolver interface {
	Resolve(name string) (api.Provider, error)
	IsAvailable(name string) bool
}

// Options configure an Orchestrator.
type Options struct {
	DefaultModel    string
	DefaultLanguage string
	// HistoryWindow limits the history sent to the provider to the most
	// recent messages. Zero sends the whole chat.
	HistoryWindow int
	PageSize      int
	HistoryDays   int
	Generation    api.Options
}

// Orchestrator coordinates the repository and provider registry.
type Orchestrator struct {
	repo   store.Repository
	models Resolver
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(repo store.Repository, models Resolver, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gemini"
	}
	opts.DefaultLanguage = i18n.Normalize(opts.DefaultLanguage)
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	return &Orchestrator{
		repo:   repo,
		models: models,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

type TurnRequest struct {
	ChatID    string `json:"chat_id"`
	Content   string `json:"content"`
	ModelType string `json:"model_type"`
	Language  string `json:"language"`
}

type TurnResult struct {
	Reply      string `json:"reply"`
	ChatID     string `json:"chat_id"`
	ModelUsed  string `json:"model_used"`
	TokensUsed int    `json:"tokens_used"`
	// PersistErr is set when the reply was produced but could not be saved.
	PersistErr error `json:"-"`
}

// SendTurn runs one chat turn for userID: it creates or loads the chat,
// titles new chats, persists the user message, calls the provider with the
// ordered history and persists the reply.
func (o *Orchestrator) SendTurn(ctx context.Context, userID string, req TurnRequest) (*TurnResult, error) {
	if req.ChatID == "" {
		return nil, ErrChatIDRequired
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentRequired
	}
	modelType := req.ModelType
	if modelType == "" {
		modelType = o.opts.DefaultModel
	}
	lang := o.language(req.Language)

	chat, err := o.repo.GetChat(ctx, req.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		chat = nil
	case err != nil:
		return nil, fmt.Errorf("load chat: %w", err)
	case chat.UserID != userID:
		return nil, ErrAccessDenied
	}

	// Resolve before any write so an unknown model leaves no trace.
	provider, err := o.models.Resolve(modelType)
	if err != nil {
		return nil, err
	}

	if chat == nil {
		chat, err = o.createForTurn(ctx, userID, req.ChatID, modelType, lang)
		if err != nil {
			return nil, err
		}
	} else if err := o.repo.TouchChat(ctx, chat.ID, modelType, lang); err != nil {
		return nil, fmt.Errorf("touch chat: %w", err)
	}

	if chat.Title == "" {
		title := o.synthesizeTitle(ctx, provider, req.Content)
		if _, err := o.repo.SetTitleIfEmpty(ctx, chat.ID, title); err != nil {
			o.logger.Warn("failed to store chat title", "chat_id", chat.ID, "error", err)
		}
	}

	if err := o.repo.AddMessage(ctx, &model.Message{
		ChatID:  chat.ID,
		Role:    api.RoleUser,
		Content: req.Content,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	stored, err := o.repo.ListMessages(ctx, chat.ID, o.opts.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	start := time.Now()
	res := provider.Generate(ctx, toHistory(stored), o.opts.Generation)
	if res.Failed() {
		return nil, &ProviderError{Model: modelType, Failure: res.Failure}
	}

	result := &TurnResult{
		Reply:      res.Content,
		ChatID:     chat.ID,
		ModelUsed:  res.ModelUsed,
		TokensUsed: res.TokensUsed,
	}

	if err := o.repo.AddMessage(ctx, &model.Message{
		ChatID:     chat.ID,
		Role:       api.RoleAssistant,
		Content:    res.Content,
		ModelUsed:  res.ModelUsed,
		TokensUsed: res.TokensUsed,
	}); err != nil {
		o.logger.Error("failed to save assistant message", "chat_id", chat.ID, "error", err)
		result.PersistErr = fmt.Errorf("save assistant message: %w", err)
	}

	o.logger.Info("turn completed",
		"chat_id", chat.ID,
		"model", res.ModelUsed,
		"tokens", res.TokensUsed,
		"history", len(stored),
		"duration", time.Since(start),
	)
	return result, nil
}

// createForTurn inserts the chat of a first turn. When a concurrent turn
// created it first, the stored chat is used after the ownership check.
func (o *Orchestrator) createForTurn(ctx context.Context, userID, chatID, modelType, lang string) (*model.Chat, error) {
	chat := &model.Chat{
		ID:        chatID,
		UserID:    userID,
		ModelType: modelType,
		Language:  lang,
	}
	created, err := o.repo.CreateChat(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	if created {
		return chat, nil
	}

	existing, err := o.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if existing.UserID != userID {
		return nil, ErrAccessDenied
	}
	return existing, nil
}

type CreateChatRequest struct {
	Title     string `json:"title"`
	ModelType string `json:"model_type"`
	Language  string `json:"language"`
}

// CreateChat starts an empty chat with a generated id.
func (o *Orchestrator) CreateChat(ctx context.Context, userID string, req CreateChatRequest) (*model.Chat, error) {
	modelType := req.ModelType
	if modelType == "" {
		modelType = o.opts.DefaultModel
	}
	if !o.models.IsAvailable(modelType) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, modelType)
	}

	chat := &model.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(req.Title),
		ModelType: modelType,
		Language:  o.language(req.Language),
	}
	created, err := o.repo.CreateChat(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("create chat: id %s already taken", chat.ID)
	}
	return chat, nil
}

type ChatPage struct {
	Chats    []model.ChatSummary `json:"chats"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	HasNext  bool                `json:"has_next"`
}

// ListChats returns one page of the user's chats, most recent first.
func (o *Orchestrator) ListChats(ctx context.Context, userID string, page, pageSize int) (*ChatPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = o.opts.PageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, err := o.repo.CountChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count chats: %w", err)
	}

	chats, err := o.repo.ListChats(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}

	return &ChatPage{
		Chats:    chats,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  page*pageSize < total,
	}, nil
}

// RecentChats returns the chats updated within the configured history days.
func (o *Orchestrator) RecentChats(ctx context.Context, userID string) ([]model.ChatSummary, error) {
	since := o.now().AddDate(0, 0, -o.opts.HistoryDays)
	chats, err := o.repo.ListChatsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list recent chats: %w", err)
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}
	return chats, nil
}

// Messages returns the ordered messages of a chat owned by userID.
func (o *Orchestrator) Messages(ctx context.Context, userID, chatID string) ([]model.Message, error) {
	if _, err := o.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	msgs, err := o.repo.ListMessages(ctx, chatID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// DeleteChat removes a chat owned by userID together with its messages.
func (o *Orchestrator) DeleteChat(ctx context.Context, userID, chatID string) error {
	if _, err := o.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := o.repo.DeleteChat(ctx, chatID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("delete chat: %w", err)
	}
	o.logger.Info("chat deleted", "chat_id", chatID)
	return nil
}

func (o *Orchestrator) ownedChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	if chatID == "" {
		return nil, ErrChatIDRequired
	}
	chat, err := o.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrAccessDenied
	}
	return chat, nil
}

func (o *Orchestrator) language(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return o.opts.DefaultLanguage
	}
	return i18n.Normalize(lang)
}
