// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen Nebula TUI: conversation viewport, research
// panel, composer and session picker, all driven by one Bubble Tea model.
package chat
