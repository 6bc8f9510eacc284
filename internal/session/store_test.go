// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/storage"
)

// failingBackend rejects every write and optionally every read.
type failingBackend struct {
	failGet bool
	puts    int
	mu      sync.Mutex
}

func (b *failingBackend) Get(string) ([]byte, error) {
	if b.failGet {
		return nil, errors.New("disk on fire")
	}
	return nil, storage.ErrKeyNotFound
}

func (b *failingBackend) Put(string, []byte) error {
	b.mu.Lock()
	b.puts++
	b.mu.Unlock()
	return errors.New("quota exceeded")
}

func (b *failingBackend) Close() error { return nil }

func newStore(t *testing.T) (*Store, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	return NewStore(backend, Options{}), backend
}

// =============================================================================
// CRUD TESTS
// =============================================================================

func TestStore_CreateOrdersNewestFirst(t *testing.T) {
	store, _ := newStore(t)

	a := store.Create("first question")
	b := store.Create("second question")

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("List() len = %d, want 2", len(list))
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("List() order = [%s %s], want newest first", list[0].Title, list[1].Title)
	}
	if a.Mode != model.ModeFast {
		t.Errorf("new session mode = %q, want fast", a.Mode)
	}
	if len(a.Messages) != 0 || len(a.Trace) != 0 {
		t.Error("new session should start empty")
	}
}

func TestStore_CreateTitles(t *testing.T) {
	store, _ := newStore(t)
	tests := []struct {
		hint string
		want string
	}{
		{"  What   is\n the   meaning of life?  ", "What is the meaning of life?"},
		{"", "Untitled"},
		{"   ", "Untitled"},
		{strings.Repeat("x", 65), strings.Repeat("x", 64)},
	}
	for _, tt := range tests {
		if got := store.Create(tt.hint).Title; got != tt.want {
			t.Errorf("Create(%q).Title = %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	store, _ := newStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := store.Create("q").ID
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}

func TestStore_RenameSetModeAppend(t *testing.T) {
	store, _ := newStore(t)
	s := store.Create("q")

	if err := store.Rename(s.ID, "  Better   title "); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := store.SetMode(s.ID, model.ModeThorough); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	msg := model.NewUserMessage("q")
	if err := store.AppendMessage(s.ID, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, ok := store.Get(s.ID)
	if !ok {
		t.Fatal("Get returned !ok")
	}
	if got.Title != "Better title" || got.Mode != model.ModeThorough {
		t.Errorf("got title=%q mode=%q", got.Title, got.Mode)
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != msg.ID {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestStore_UnknownIDReturnsNotFound(t *testing.T) {
	store, _ := newStore(t)
	ops := map[string]error{
		"Rename":        store.Rename("nope", "x"),
		"SetMode":       store.SetMode("nope", model.ModeFast),
		"AppendMessage": store.AppendMessage("nope", model.NewUserMessage("x")),
		"AppendTrace":   store.AppendTrace("nope", model.TraceEvent{Type: model.TraceStatus}),
		"ClearTrace":    store.ClearTrace("nope"),
		"Delete":        store.Delete("nope"),
		"Select":        store.Select("nope"),
	}
	for name, err := range ops {
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("%s error = %v, want ErrSessionNotFound", name, err)
		}
	}
}

func TestStore_GetReturnsCopies(t *testing.T) {
	store, _ := newStore(t)
	s := store.Create("q")
	_ = store.AppendMessage(s.ID, model.NewAssistantMessage("a", []string{"https://x.example"}))

	got, _ := store.Get(s.ID)
	got.Messages[0].Citations[0] = "mutated"
	got.Messages = append(got.Messages, model.NewUserMessage("sneaky"))

	again, _ := store.Get(s.ID)
	if len(again.Messages) != 1 || again.Messages[0].Citations[0] != "https://x.example" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestStore_MessagesOnlyGrow(t *testing.T) {
	store, _ := newStore(t)
	s := store.Create("q")
	for i := 0; i < 5; i++ {
		_ = store.AppendMessage(s.ID, model.NewUserMessage("m"))
		_ = store.ClearTrace(s.ID)
		got, _ := store.Get(s.ID)
		if len(got.Messages) != i+1 {
			t.Fatalf("after %d appends len = %d", i+1, len(got.Messages))
		}
	}
}

// =============================================================================
// DELETE / SELECTION TESTS
// =============================================================================

func TestStore_DeleteCurrentSelectsFirstRemaining(t *testing.T) {
	store, _ := newStore(t)
	a := store.Create("a")
	b := store.Create("b")
	c := store.Create("c") // list: c, b, a

	_ = store.Select(b.ID)
	if err := store.Delete(b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := store.CurrentID(); got != c.ID {
		t.Errorf("CurrentID() = %q, want first remaining %q", got, c.ID)
	}

	_ = store.Delete(c.ID)
	if got := store.CurrentID(); got != a.ID {
		t.Errorf("CurrentID() = %q, want %q", got, a.ID)
	}

	_ = store.Delete(a.ID)
	if _, ok := store.Current(); ok {
		t.Error("Current() should be empty after deleting every session")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestStore_DeleteOtherKeepsSelection(t *testing.T) {
	store, _ := newStore(t)
	a := store.Create("a")
	b := store.Create("b")
	_ = store.Select(a.ID)

	_ = store.Delete(b.ID)
	if store.CurrentID() != a.ID {
		t.Errorf("selection changed to %q", store.CurrentID())
	}
}

func TestStore_SelectionPersists(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, Options{})
	s := store.Create("q")
	_ = store.Select(s.ID)

	reopened := NewStore(backend, Options{})
	if reopened.CurrentID() != s.ID {
		t.Errorf("reopened CurrentID() = %q, want %q", reopened.CurrentID(), s.ID)
	}

	reopened.Deselect()
	again := NewStore(backend, Options{})
	if again.CurrentID() != "" {
		t.Errorf("deselect not persisted, got %q", again.CurrentID())
	}
}

// =============================================================================
// PERSISTENCE TESTS
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, Options{})

	a := store.Create("how do <b>tags</b> & entities survive?")
	_ = store.SetMode(a.ID, model.ModeThorough)
	_ = store.AppendMessage(a.ID, model.NewUserMessage("how do tags survive?"))
	_ = store.AppendTrace(a.ID, model.TraceEvent{Type: model.TracePlan, Data: json.RawMessage(`{"intent":"x<y","steps":["a","b"]}`)})
	_ = store.AppendTrace(a.ID, model.TraceEvent{Type: model.TraceSearch, Data: json.RawMessage(`{"query":"q&a","results":[]}`)})
	_ = store.AppendMessage(a.ID, model.NewAssistantMessage("**bold** answer", []string{"https://a.example/?x=1&y=2"}))
	store.Create("second")

	reopened := NewStore(backend, Options{})
	if diff := cmp.Diff(store.List(), reopened.List()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CorruptDataLoadsEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":    "{{not json",
		"wrong type": `{"id":"x"}`,
		"truncated":  `[{"id":"a","title":"x"`,
	} {
		t.Run(name, func(t *testing.T) {
			backend := storage.NewMemoryBackend()
			_ = backend.Put(DefaultKey, []byte(raw))

			store := NewStore(backend, Options{})
			if store.Len() != 0 {
				t.Errorf("Len() = %d, want 0", store.Len())
			}
			// The store stays usable.
			store.Create("fresh")
			if store.Len() != 1 {
				t.Errorf("Len() after create = %d, want 1", store.Len())
			}
		})
	}
}

func TestStore_NullListLoadsEmpty(t *testing.T) {
	backend := storage.NewMemoryBackend()
	_ = backend.Put(DefaultKey, []byte("null"))
	store := NewStore(backend, Options{})
	if got := store.List(); got == nil || len(got) != 0 {
		t.Errorf("List() = %#v, want empty non-nil", got)
	}
}

func TestStore_ReadFailureLoadsEmpty(t *testing.T) {
	store := NewStore(&failingBackend{failGet: true}, Options{})
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestStore_SaveFailureIsSwallowed(t *testing.T) {
	backend := &failingBackend{}
	store := NewStore(backend, Options{})

	s := store.Create("q")
	if err := store.AppendMessage(s.ID, model.NewUserMessage("q")); err != nil {
		t.Fatalf("AppendMessage surfaced save failure: %v", err)
	}
	if err := store.Select(s.ID); err != nil {
		t.Fatalf("Select surfaced save failure: %v", err)
	}

	got, ok := store.Get(s.ID)
	if !ok || len(got.Messages) != 1 {
		t.Error("in-memory state should survive a failed save")
	}
	if backend.puts == 0 {
		t.Error("expected save attempts")
	}
}

func TestStore_ReloadPicksUpExternalWrites(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, Options{})
	store.Create("mine")

	if store.Reload() {
		t.Error("Reload() reported a change after our own write")
	}

	other := NewStore(backend, Options{})
	theirs := other.Create("theirs")

	if !store.Reload() {
		t.Fatal("Reload() missed an external write")
	}
	if _, ok := store.Get(theirs.ID); !ok {
		t.Error("external session not visible after Reload")
	}
}

func TestStore_ReloadDropsVanishedSelection(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, Options{})
	s := store.Create("mine")
	_ = store.Select(s.ID)

	other := NewStore(backend, Options{})
	_ = other.Delete(s.ID)

	store.Reload()
	if store.CurrentID() != "" {
		t.Errorf("CurrentID() = %q after external delete", store.CurrentID())
	}
}

func TestStore_CustomKeysAndMode(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, Options{Key: "alt.sessions", DefaultMode: model.ModeThorough})
	s := store.Create("q")

	if s.Mode != model.ModeThorough {
		t.Errorf("mode = %q, want thorough", s.Mode)
	}
	if _, err := backend.Get("alt.sessions"); err != nil {
		t.Errorf("custom key not written: %v", err)
	}
	if _, err := backend.Get(DefaultKey); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("default key should be untouched, got %v", err)
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store, _ := newStore(t)
	s := store.Create("q")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AppendTrace(s.ID, model.TraceEvent{Type: model.TraceStatus, Data: json.RawMessage(`{}`)})
		}()
	}
	wg.Wait()

	got, _ := store.Get(s.ID)
	if len(got.Trace) != 50 {
		t.Errorf("trace len = %d, want 50", len(got.Trace))
	}
}
