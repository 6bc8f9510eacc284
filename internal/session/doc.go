// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session keeps the ordered list of conversation sessions and the
// current selection, persisting both through a storage.Backend.
//
// The whole list is written under one key after every mutation. Load and save
// failures never surface to callers: a missing or corrupt record reads as an
// empty list, and a failed save is logged and dropped.
//
// # Usage
//
//	store := session.NewStore(backend, session.Options{Logger: logger})
//	s := store.Create("what is a quasar?")
//	_ = store.Select(s.ID)
//	_ = store.AppendMessage(s.ID, model.NewUserMessage("what is a quasar?"))
package session
