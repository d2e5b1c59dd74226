// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the assistant chat view for the TUI.
//
// This file implements the token batching layer. The gateway can push
// hundreds of tokens per second; rendering each one individually causes
// flicker and wasted CPU, so tokens accumulate in a StreamingBuffer and
// flush at a capped frame rate.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// Flush triggers when either threshold is hit: 15 tokens accumulated,
// or 33ms since the last flush (30fps).
const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// StreamingBuffer batches tokens between render frames. Writes come
// from the stream goroutine, flushes from the Update loop, so every
// operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize  int
	minFlushMs time.Duration
}

// NewStreamingBuffer creates a buffer with the default thresholds.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:  defaultBatchSize,
		minFlushMs: time.Duration(1000/defaultMaxFPS) * time.Millisecond,
		lastFlush:  time.Now(),
	}
}

// Write appends a token. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns the accumulated content when a threshold is met.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 || !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush returns everything buffered regardless of thresholds.
// Used when a stream completes or is stopped so no token is lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset discards buffered content. Used when a new stream starts.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered tokens.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.tokenCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushMs
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next flush check at the frame rate.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
