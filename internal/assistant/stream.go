// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/unialerta/uce-tui/internal/model"
)

// =============================================================================
// SSE WIRE FORMAT
// =============================================================================

// StreamChunk is one SSE data payload from the gateway.
type StreamChunk struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ActionPayload is the body of an "action" event: a proposal the user
// can execute or cancel.
type ActionPayload struct {
	Kind   string            `json:"kind"`
	Label  string            `json:"label"`
	Params map[string]string `json:"params"`
}

// doneSignal terminates a stream.
const doneSignal = "[DONE]"

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader reads server-sent events line by line.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader wraps a response body in an SSE reader.
func NewSSEReader(r io.Reader) *SSEReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &SSEReader{scanner: scanner}
}

// ReadEvent returns the next event type and data payload. Events
// without an explicit "event:" line have type "message". io.EOF marks
// the end of the stream.
func (r *SSEReader) ReadEvent() (eventType, data string, err error) {
	eventType = "message"
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Empty line delimits an event.
		if line == "" {
			if data != "" {
				return eventType, data, nil
			}
			eventType = "message"
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data != "" {
				data += "\n"
			}
			data += payload
		}
		// Comment and id lines are ignored.
	}

	if err := r.scanner.Err(); err != nil {
		return "", "", err
	}
	if data != "" {
		return eventType, data, nil
	}
	return "", "", io.EOF
}

// =============================================================================
// STREAM ERRORS
// =============================================================================

// StreamError is a mid-stream failure. Partial holds whatever content
// arrived before the failure so the caller can keep it.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamResult is what a completed stream produced beyond the tokens.
type StreamResult struct {
	// Action is the gateway's proposed action, nil when none.
	Action *ActionPayload

	// FinishReason is the gateway's stated reason, "" if none given.
	FinishReason string
}

// ChatStream streams an assistant reply, invoking onToken for each
// content delta in order. Returns the stream result, or a *StreamError
// wrapping the cause with the partial content preserved.
func (c *Client) ChatStream(ctx context.Context, conv *model.Conversation, onToken func(string)) (*StreamResult, error) {
	resp, err := c.openStream(ctx, toWireMessages(conv))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return processStream(ctx, resp.Body, onToken)
}

// processStream consumes SSE events until [DONE], EOF, or failure.
func processStream(ctx context.Context, body io.Reader, onToken func(string)) (*StreamResult, error) {
	reader := NewSSEReader(body)
	result := &StreamResult{}
	var partial strings.Builder

	for {
		select {
		case <-ctx.Done():
			return nil, &StreamError{Partial: partial.String(), Err: ctx.Err()}
		default:
		}

		eventType, data, err := reader.ReadEvent()
		if err == io.EOF {
			// Stream ended without [DONE]; treat what arrived as final.
			return result, nil
		}
		if err != nil {
			return nil, &StreamError{Partial: partial.String(), Err: err}
		}

		if data == doneSignal {
			return result, nil
		}

		switch eventType {
		case "action":
			var payload ActionPayload
			if err := json.Unmarshal([]byte(data), &payload); err == nil && payload.Kind != "" {
				result.Action = &payload
			}

		case "error":
			var gwErr GatewayError
			if err := json.Unmarshal([]byte(data), &gwErr); err != nil {
				gwErr.Message = data
			}
			return nil, &StreamError{Partial: partial.String(), Err: &gwErr}

		default:
			var chunk StreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Skip malformed chunks rather than killing the stream.
				continue
			}
			if chunk.Delta.Content != "" {
				partial.WriteString(chunk.Delta.Content)
				onToken(chunk.Delta.Content)
			}
			if chunk.FinishReason != "" {
				result.FinishReason = chunk.FinishReason
			}
		}
	}
}

// ChatStreamAccumulate streams a reply and returns the full content.
func (c *Client) ChatStreamAccumulate(ctx context.Context, conv *model.Conversation) (string, *StreamResult, error) {
	var b strings.Builder
	result, err := c.ChatStream(ctx, conv, func(token string) {
		b.WriteString(token)
	})
	return b.String(), result, err
}

// =============================================================================
// CHANNEL VARIANT
// =============================================================================

// StreamEvent is one event on the channel-based stream API.
type StreamEvent struct {
	Token  string
	Result *StreamResult
	Err    error
	Done   bool
}

// ChatStreamChan streams a reply over a channel. The channel closes
// after a Done or error event.
func (c *Client) ChatStreamChan(ctx context.Context, conv *model.Conversation) <-chan StreamEvent {
	events := make(chan StreamEvent, 64)

	go func() {
		defer close(events)

		result, err := c.ChatStream(ctx, conv, func(token string) {
			select {
			case events <- StreamEvent{Token: token}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			events <- StreamEvent{Err: err, Done: true}
			return
		}
		events <- StreamEvent{Result: result, Done: true}
	}()

	return events
}

// =============================================================================
// ACTION CONVERSION
// =============================================================================

// ToPendingAction converts a gateway action payload into a domain
// pending action bound to the given message. Unknown kinds return nil.
func (p *ActionPayload) ToPendingAction(messageID string) *model.PendingAction {
	if p == nil {
		return nil
	}
	kind := model.ActionKind(p.Kind)
	if !kind.Valid() {
		return nil
	}
	label := p.Label
	if label == "" {
		label = string(kind)
	}
	return model.NewPendingAction(kind, label, p.Params, messageID)
}
