// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core data types of the UniAlerta admin
// client: chat messages and conversations for the assistant, pending
// assistant actions, incident reports with their status filters, and
// account records.
//
// Messages support incremental streaming. A conversation holds at most
// one streaming message at a time; appending a new assistant message
// finalizes any earlier one.
package model
