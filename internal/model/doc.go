// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the session store, the
// run controller and the UI.
//
// # Key Types
//
//   - Session: one persisted conversation with its messages and research trace
//   - Message: an immutable user question or assistant answer
//   - TraceEvent: one research event (plan, search, read, ...) in arrival order
//   - RunState: transient status of the active run (not persisted)
//   - Mode: fast or thorough research depth
package model
