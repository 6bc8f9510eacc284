// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence port used by the session
// store, with file, SQLite and in-memory backends.
//
// Values are opaque bytes. A missing key yields ErrKeyNotFound.
//
// # Backends
//
//   - FileBackend: one JSON file per key, written atomically
//   - SQLiteBackend: a single kv table in a SQLite database
//   - MemoryBackend: process-local map, for tests and --ephemeral runs
//
// Watcher reports writes made to a file or SQLite backend by other processes.
package storage
