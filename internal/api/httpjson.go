package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// vendorError covers the error envelopes of the OpenAI-style, Anthropic and
// Gemini APIs, which all nest a message under "error".
type vendorError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// postJSON sends body as JSON and decodes a 2xx reply into out. Any failure
// is returned as a *Failure; the raw body of non-2xx replies is only logged.
func (b *base) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) *Failure {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Failure{Code: FailureMalformed, Detail: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &Failure{Code: FailureNetwork, Detail: fmt.Sprintf("failed to create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return failureFromError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureFromError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b.logger.Debug("vendor error body",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 512),
		)
		var errResp vendorError
		detail := ""
		if json.Unmarshal(respBody, &errResp) == nil {
			detail = errResp.Error.Message
		}
		return failureFromStatus(resp.StatusCode, detail)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		b.logger.Debug("undecodable vendor body",
			"body", truncate(string(respBody), 512),
		)
		return malformed("could not decode response")
	}

	return nil
}
