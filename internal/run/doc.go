// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package run drives the single active research run.
//
// Controller owns the run lifecycle (idle → thinking → done | error | stopped)
// and Dispatcher folds stream events into run state and the owning session's
// trace. Both run inside the Bubble Tea update loop: every asynchronous
// result (stream event, tick, timer) arrives as a message stamped with the run
// id that produced it, and messages from any run other than the active one
// are ignored.
package run
