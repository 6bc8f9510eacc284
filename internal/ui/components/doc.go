// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the pieces of the Nebula chat screen.

Components are plain renderers: they take a *styles.Theme and the data to
show and return strings. The only stateful ones wrap a bubbles model
(Spinner, and the progress bar inside RunPanel).

  - Header (header.go) - brand and current session title
  - Conversation (message.go) - user questions and markdown answers
  - RunPanel (run_panel.go) - plan checklist, status line, progress, elapsed
  - TraceView (trace_view.go) - the research trace of a session
  - SessionList (session_list.go) - the session picker
  - Composer hints (composer.go) - autocorrect suggestion and correction notice
  - StatusBar (statusbar.go) - mode, autocorrect state, key hints
*/
package components
