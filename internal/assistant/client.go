// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant talks to the UniAlerta assistant gateway. The
// gateway streams responses over SSE and may propose an action (create
// a report, change a report status, open a filter) alongside the text.
//
// Retry only applies to connection establishment. Once the first byte
// of a stream arrives, a failure surfaces to the caller with the
// partial content preserved; the client never silently replays a turn.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/unialerta/uce-tui/internal/config"
	"github.com/unialerta/uce-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds a whole streaming turn.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries applies to connection establishment only.
	DefaultMaxRetries = 3

	// retryBaseDelay is the initial backoff delay.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize limits non-streaming response bodies (10MB).
	MaxResponseSize = 10 * 1024 * 1024
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotConfigured = errors.New("assistant gateway not configured")
	ErrAuthFailed    = errors.New("assistant authentication failed")
	ErrRateLimited   = errors.New("assistant rate limit exceeded")
	ErrUnavailable   = errors.New("assistant gateway unavailable")
)

// GatewayError is a structured error from the assistant gateway.
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("assistant gateway error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("assistant gateway error %d: %s", e.Status, e.Message)
}

// Unwrap maps the HTTP status onto the sentinel taxonomy so callers
// can errors.Is against it.
func (e *GatewayError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrAuthFailed
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 500:
		return ErrUnavailable
	}
	return nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is the wire form of a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the streaming chat request body.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// toWireMessages converts a conversation into wire messages, with the
// system prompt first when present.
func toWireMessages(conv *model.Conversation) []ChatMessage {
	messages := make([]ChatMessage, 0, len(conv.Messages)+1)
	if conv.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: string(model.RoleSystem), Content: conv.SystemPrompt})
	}
	for _, msg := range conv.Messages {
		// Skip the still-streaming placeholder for the reply.
		if msg.IsStreaming {
			continue
		}
		messages = append(messages, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return messages
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the assistant gateway client.
type Client struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Assistant.BaseURL,
		model:   cfg.Assistant.Model,
		httpClient: &http.Client{
			Timeout: cfg.AssistantTimeout(),
		},
		maxRetries: cfg.Assistant.MaxRetries,
	}
}

// WithToken sets the bearer token for authenticated deployments.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Configured reports whether the client has a gateway URL.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// openStream issues the streaming request, retrying connection
// failures with exponential backoff.
func (c *Client) openStream(ctx context.Context, messages []ChatMessage) (*http.Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/chat/stream", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		gwErr := readGatewayError(resp)
		resp.Body.Close()
		lastErr = gwErr
		if !isRetryable(resp.StatusCode) {
			return nil, gwErr
		}
	}
	return nil, lastErr
}

// readGatewayError decodes an error response body.
func readGatewayError(resp *http.Response) *GatewayError {
	gwErr := &GatewayError{Status: resp.StatusCode, Message: resp.Status}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return gwErr
	}

	var wire struct {
		Error GatewayError `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err == nil && wire.Error.Message != "" {
		gwErr.Code = wire.Error.Code
		gwErr.Message = wire.Error.Message
	}
	return gwErr
}

// isRetryable reports whether a status is worth a reconnect attempt.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// calculateBackoff returns the delay before the given attempt with
// jitter to avoid thundering herds.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}
