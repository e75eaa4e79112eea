// Package auth identifies the user behind an HTTP request.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/notexe/chat-gateway/internal/i18n"
)

type contextKey struct{}

// Authenticator maps bearer tokens to user ids.
type Authenticator struct {
	tokens    map[string]string
	anonymous string
	logger    *slog.Logger
}

// New returns an Authenticator over a token -> user id table. When
// anonymousUser is set, requests without an Authorization header act as
// that user.
func New(tokens map[string]string, anonymousUser string, logger *slog.Logger) *Authenticator {
	copied := make(map[string]string, len(tokens))
	for token, user := range tokens {
		if token != "" && user != "" {
			copied[token] = user
		}
	}
	return &Authenticator{tokens: copied, anonymous: anonymousUser, logger: logger}
}

// Lookup returns the user id of a token. Every configured token is compared
// in constant time.
func (a *Authenticator) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var found string
	for candidate, user := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			found = user
		}
	}
	return found, found != ""
}

// Middleware rejects unauthenticated requests with a localized 401 and
// stores the user id in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" && a.anonymous != "" {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.anonymous)))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			a.deny(w, r, "missing_bearer_token")
			return
		}
		user, ok := a.Lookup(strings.TrimSpace(token))
		if !ok {
			a.deny(w, r, "invalid_token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *Authenticator) deny(w http.ResponseWriter, r *http.Request, reason string) {
	a.logger.Warn("authentication denied", "path", r.URL.Path, "reason", reason)

	lang := i18n.ResolveLanguage(r.URL.Query().Get("language"), r.Header.Get("Accept-Language"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(i18n.ErrorResponse(i18n.AuthenticationRequired, lang, nil))
}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFrom returns the user id stored by the middleware.
func UserFrom(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKey{}).(string)
	return user, ok && user != ""
}
