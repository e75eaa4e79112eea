package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/notexe/chat-gateway/internal/auth"
	"github.com/notexe/chat-gateway/internal/chat"
	"github.com/notexe/chat-gateway/internal/i18n"
	"github.com/notexe/chat-gateway/internal/registry"
)

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang := requestLanguage(r, req.Language)
	req.Language = lang

	res, err := s.chats.SendTurn(r.Context(), userFrom(r), req)
	if err != nil {
		s.writeFailure(w, r, err, lang)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.catalog.ListAvailable()
	if models == nil {
		models = []registry.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r, "")
	page, ok1 := queryInt(r, "page")
	pageSize, ok2 := queryInt(r, "page_size")
	if !ok1 || !ok2 {
		writeJSON(w, http.StatusBadRequest, i18n.ErrorResponse(i18n.ValidationError, lang, nil))
		return
	}

	res, err := s.chats.ListChats(r.Context(), userFrom(r), page, pageSize)
	if err != nil {
		s.writeFailure(w, r, err, lang)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req chat.CreateChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang := requestLanguage(r, req.Language)
	req.Language = lang

	c, err := s.chats.CreateChat(r.Context(), userFrom(r), req)
	if err != nil {
		s.writeFailure(w, r, err, lang)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.RecentChats(r.Context(), userFrom(r))
	if err != nil {
		s.writeFailure(w, r, err, requestLanguage(r, ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chats.Messages(r.Context(), userFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err, requestLanguage(r, ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chat_id": r.PathValue("id"), "messages": msgs})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.DeleteChat(r.Context(), userFrom(r), r.PathValue("id")); err != nil {
		s.writeFailure(w, r, err, requestLanguage(r, ""))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a size-limited JSON body. It writes the failure response and
// returns false when the body is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	lang := requestLanguage(r, "")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, i18n.ErrorResponse(i18n.ValidationError, lang, nil))
		return false
	}
	s.logger.Debug("invalid request body", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadRequest, i18n.ErrorResponse(i18n.ValidationError, lang, nil))
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLanguage prefers an explicit language, then the query string, then
// the Accept-Language header.
func requestLanguage(r *http.Request, explicit string) string {
	if explicit == "" {
		explicit = r.URL.Query().Get("language")
	}
	return i18n.ResolveLanguage(explicit, r.Header.Get("Accept-Language"))
}

// queryInt parses an optional integer query parameter. Missing values are 0.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func userFrom(r *http.Request) string {
	user, _ := auth.UserFrom(r.Context())
	return user
}
