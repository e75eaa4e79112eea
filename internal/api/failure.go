package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureCode classifies why a vendor call did not produce a reply.
type FailureCode string

const (
	FailureTimeout   FailureCode = "timeout"
	FailureNetwork   FailureCode = "network_error"
	FailureHTTP      FailureCode = "http_error"
	FailureAuth      FailureCode = "api_key_invalid"
	FailureRateLimit FailureCode = "rate_limit_exceeded"
	FailureMalformed FailureCode = "malformed_response"
)

// Failure is the tagged error carried by a failed Result. Detail is a short
// human-readable description and never contains the raw vendor payload.
type Failure struct {
	Code   FailureCode
	Status int
	Detail string
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Code, f.Status, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}

// Retryable reports whether the same request may succeed later, as opposed
// to failures that need another model or a credential fix.
func (f *Failure) Retryable() bool {
	switch f.Code {
	case FailureTimeout, FailureNetwork, FailureRateLimit:
		return true
	case FailureHTTP:
		return f.Status >= 500
	default:
		return false
	}
}

func failureFromStatus(status int, detail string) *Failure {
	code := FailureHTTP
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = FailureAuth
	case http.StatusTooManyRequests:
		code = FailureRateLimit
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Failure{Code: code, Status: status, Detail: truncate(detail, 200)}
}

func failureFromError(err error) *Failure {
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Failure{Code: FailureTimeout, Detail: "request timed out"}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Failure{Code: FailureTimeout, Detail: "request timed out"}
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return &Failure{Code: FailureMalformed, Detail: "could not decode response"}
	case errors.Is(err, context.Canceled):
		return &Failure{Code: FailureNetwork, Detail: "request canceled"}
	default:
		return &Failure{Code: FailureNetwork, Detail: truncate(err.Error(), 200)}
	}
}

func malformed(detail string) *Failure {
	return &Failure{Code: FailureMalformed, Detail: detail}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
