package chat

import (
	"errors"
	"fmt"

	"github.com/notexe/chat-gateway/internal/api"
	"github.com/notexe/chat-gateway/internal/i18n"
	"github.com/notexe/chat-gateway/internal/registry"
)

var (
	ErrChatIDRequired  = errors.New("chat id is required")
	ErrContentRequired = errors.New("message content is required")
	ErrAccessDenied    = errors.New("chat belongs to another user")
	ErrChatNotFound    = errors.New("chat not found")

	// ErrModelNotSupported is the registry's error for unknown model names.
	ErrModelNotSupported = registry.ErrModelNotSupported
)

// ProviderError reports that the vendor call of a turn failed. The user
// message of the turn stays persisted.
type ProviderError struct {
	Model   string
	Failure *api.Failure
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider for %s failed: %v", e.Model, e.Failure)
}

func (e *ProviderError) Unwrap() error {
	return e.Failure
}

// Retryable reports whether retrying the same model later may succeed.
func (e *ProviderError) Retryable() bool {
	return e.Failure != nil && e.Failure.Retryable()
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrChatIDRequired) || errors.Is(err, ErrContentRequired)
}

// MessageKey returns the user-facing message key for an error returned by
// the Orchestrator.
func MessageKey(err error) i18n.Key {
	var perr *ProviderError
	switch {
	case errors.Is(err, ErrChatIDRequired):
		return i18n.ChatIDRequired
	case errors.Is(err, ErrContentRequired):
		return i18n.ContentRequired
	case errors.Is(err, ErrModelNotSupported):
		return i18n.ModelNotSupported
	case errors.Is(err, ErrAccessDenied):
		return i18n.AccessDeniedChat
	case errors.Is(err, ErrChatNotFound):
		return i18n.ChatNotFound
	case errors.As(err, &perr):
		if perr.Failure == nil {
			return i18n.AIServiceError
		}
		switch perr.Failure.Code {
		case api.FailureRateLimit:
			return i18n.RateLimitExceeded
		case api.FailureAuth:
			return i18n.APIKeyInvalid
		case api.FailureNetwork, api.FailureTimeout:
			return i18n.NetworkError
		default:
			return i18n.AIServiceError
		}
	default:
		return i18n.ServerError
	}
}
