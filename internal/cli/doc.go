// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the nebula command line.
//
// Running nebula without a subcommand opens the full-screen research client.
// The remaining commands work without a terminal UI:
//
//   - ask: run one research question and print the answer
//   - chat: line-oriented REPL over the same sessions
//   - sessions: list, show, rename, delete and export saved sessions
//   - config: show, locate or initialize the configuration file
//   - version: print build information
//
// Every command builds the same app (config, logger, storage, session store
// and service clients) so behaviour is identical across surfaces.
package cli
