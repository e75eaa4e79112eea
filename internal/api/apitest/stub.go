// Package apitest provides a scriptable api.Provider for tests.
package apitest

import (
	"context"
	"sync"

	"github.com/notexe/chat-gateway/internal/api"
)

// Stub is an in-memory provider that records every call.
type Stub struct {
	Label   string
	ModelID string
	// Reply produces the result for a call. When nil, the stub answers
	// "ok" with 1 token.
	Reply func(history []api.Message) api.Result

	mu    sync.Mutex
	calls [][]api.Message
}

// Generate records the history and returns Reply's result.
func (s *Stub) Generate(_ context.Context, history []api.Message, _ api.Options) api.Result {
	s.mu.Lock()
	s.calls = append(s.calls, append([]api.Message(nil), history...))
	s.mu.Unlock()

	var res api.Result
	if s.Reply != nil {
		res = s.Reply(history)
	} else {
		res = api.Result{Content: "ok", TokensUsed: 1}
	}
	if res.ModelUsed == "" {
		res.ModelUsed = s.ModelID
	}
	if res.Provider == "" {
		res.Provider = s.Label
	}
	return res
}

func (s *Stub) ValidateCredentials(context.Context) bool { return true }
func (s *Stub) Name() string                             { return s.Label }
func (s *Stub) Model() string                            { return s.ModelID }

// Calls returns a copy of the recorded histories.
func (s *Stub) Calls() [][]api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]api.Message(nil), s.calls...)
}

// Fail returns a failed result with the given code, as a vendor client would.
func Fail(code api.FailureCode, detail string) api.Result {
	return api.Result{
		Content: api.FallbackContent,
		Failure: &api.Failure{Code: code, Detail: detail},
	}
}
