package server

import (
	"errors"
	"net/http"

	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/i18n"
)

// failureFor maps an error to its HTTP status, message key and any extra
// body fields.
func failureFor(err error) (int, i18n.Key, map[string]any) {
	key := chat.MessageKey(err)

	var perr *chat.ProviderError
	if errors.As(err, &perr) {
		extra := map[string]any{"retryable": perr.Retryable()}
		if key == i18n.RateLimitExceeded {
			return http.StatusTooManyRequests, key, extra
		}
		return http.StatusBadGateway, key, extra
	}

	switch key {
	case i18n.ChatIDRequired, i18n.ContentRequired, i18n.ModelNotSupported:
		return http.StatusBadRequest, key, nil
	case i18n.AccessDeniedChat:
		return http.StatusForbidden, key, nil
	case i18n.ChatNotFound:
		return http.StatusNotFound, key, nil
	default:
		return http.StatusInternalServerError, key, nil
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error, lang string) {
	status, key, extra := failureFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, i18n.ErrorResponse(key, lang, extra))
}
