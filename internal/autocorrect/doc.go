// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package autocorrect proposes spelling and phrasing fixes for the query being
// typed.
//
// Coordinator debounces keystrokes and issues at most one request per quiet
// period. Every text change starts a new generation; responses that belong to
// an older generation are dropped, so only the latest request can produce a
// suggestion. Failures never surface: they simply mean "no suggestion".
package autocorrect
