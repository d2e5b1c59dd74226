// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the assistant chat screen and its
// orchestration.
//
// The Model owns one Conversation and guarantees at most one message
// is streaming at a time. Sending appends the user message, creates a
// streaming placeholder, and opens the gateway stream in a goroutine;
// tokens land in a StreamingBuffer and flush into the placeholder at a
// capped frame rate. Stopping cancels the stream context and finalizes
// the partial content on the same update cycle; the goroutine's late
// completion message carries a stale generation and is dropped.
//
// Failures never discard partial output. The stream error surfaces
// once as a toast and the view returns to ready on the next send.
//
// The package also hosts the report filter bar, the notification
// permission prompt wiring, and the pending-action execution path
// against the backend repository.
package chat
