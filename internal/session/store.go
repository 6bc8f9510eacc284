// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/storage"
)

const (
	// DefaultKey is the record key for the session list.
	DefaultKey = "nebula.sessions.v1"
	// DefaultCurrentKey is the record key for the selected session id.
	DefaultCurrentKey = "nebula.current.v1"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned by mutations that name an unknown session.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session-related error.
// It can be compared using errors.Is.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string {
	return e.Message
}

func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Options configures a Store.
type Options struct {
	// Key and CurrentKey default to DefaultKey and DefaultCurrentKey.
	Key        string
	CurrentKey string
	// DefaultMode is assigned to new sessions; defaults to fast.
	DefaultMode model.Mode
	Logger      *zap.Logger
}

// Store owns the session list. Callers only ever see deep copies.
type Store struct {
	mu sync.Mutex

	backend     storage.Backend
	key         string
	currentKey  string
	defaultMode model.Mode
	logger      *zap.Logger

	sessions  []model.Session // newest first
	current   string
	lastSaved []byte
}

// NewStore creates a store and loads whatever the backend holds.
func NewStore(backend storage.Backend, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.CurrentKey == "" {
		opts.CurrentKey = DefaultCurrentKey
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = model.ModeFast
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Store{
		backend:     backend,
		key:         opts.Key,
		currentKey:  opts.CurrentKey,
		defaultMode: opts.DefaultMode,
		logger:      opts.Logger,
	}
	s.mu.Lock()
	s.sessions, s.lastSaved = s.loadLocked()
	s.current = s.loadCurrentLocked()
	s.mu.Unlock()
	return s
}

// List returns every session, newest first.
func (s *Store) List() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Session{}, false
	}
	return s.sessions[i].Clone(), true
}

// Create adds an empty session titled from hint at the front of the list.
func (s *Store) Create(hint string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.NewSession(hint, s.defaultMode)
	s.sessions = append([]model.Session{sess}, s.sessions...)
	s.saveLocked()
	return sess.Clone()
}

// Rename retitles a session using the same rule as derived titles.
func (s *Store) Rename(id, text string) error {
	return s.mutate(id, func(sess *model.Session) {
		sess.Title = model.DeriveTitle(text)
	})
}

// SetMode records the research mode used for a session.
func (s *Store) SetMode(id string, mode model.Mode) error {
	return s.mutate(id, func(sess *model.Session) {
		sess.Mode = mode
	})
}

// AppendMessage adds msg to the end of a session's messages.
func (s *Store) AppendMessage(id string, msg model.Message) error {
	msg = msg.Clone()
	return s.mutate(id, func(sess *model.Session) {
		sess.Messages = append(sess.Messages, msg)
	})
}

// AppendTrace adds ev to the end of a session's trace.
func (s *Store) AppendTrace(id string, ev model.TraceEvent) error {
	ev = ev.Clone()
	return s.mutate(id, func(sess *model.Session) {
		sess.Trace = append(sess.Trace, ev)
	})
}

// ClearTrace empties a session's trace.
func (s *Store) ClearTrace(id string) error {
	return s.mutate(id, func(sess *model.Session) {
		sess.Trace = []model.TraceEvent{}
	})
}

// Delete removes a session. Deleting the current session selects the first
// remaining one, or nothing when the list is empty.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	s.saveLocked()

	if s.current == id {
		s.current = ""
		if len(s.sessions) > 0 {
			s.current = s.sessions[0].ID
		}
		s.saveCurrentLocked()
	}
	return nil
}

// =============================================================================
// SELECTION
// =============================================================================

// Current returns the selected session.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(s.current)
	if i < 0 {
		return model.Session{}, false
	}
	return s.sessions[i].Clone(), true
}

// CurrentID returns the selected session id, or "".
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(s.current) < 0 {
		return ""
	}
	return s.current
}

// Select makes id the current session.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return ErrSessionNotFound
	}
	if s.current != id {
		s.current = id
		s.saveCurrentLocked()
	}
	return nil
}

// Deselect clears the selection so the next query starts a new session.
func (s *Store) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != "" {
		s.current = ""
		s.saveCurrentLocked()
	}
}

// =============================================================================
// RELOAD
// =============================================================================

// Reload re-reads the list from the backend and reports whether it differed
// from what this store last wrote or read. A selection that no longer exists
// is dropped.
func (s *Store) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, raw := s.loadLocked()
	if bytes.Equal(raw, s.lastSaved) {
		return false
	}
	s.sessions, s.lastSaved = sessions, raw
	if s.indexLocked(s.current) < 0 {
		s.current = ""
	}
	return true
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) mutate(id string, fn func(*model.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrSessionNotFound
	}
	fn(&s.sessions[i])
	s.saveLocked()
	return nil
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// loadLocked never fails: absent or unreadable data is an empty list.
func (s *Store) loadLocked() ([]model.Session, []byte) {
	raw, err := s.backend.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to load sessions", zap.String("key", s.key), zap.Error(err))
		}
		return []model.Session{}, nil
	}
	var sessions []model.Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		s.logger.Warn("discarding corrupt session data", zap.String("key", s.key), zap.Error(err))
		return []model.Session{}, nil
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	for i := range sessions {
		if sessions[i].Messages == nil {
			sessions[i].Messages = []model.Message{}
		}
		if sessions[i].Trace == nil {
			sessions[i].Trace = []model.TraceEvent{}
		}
	}
	return sessions, raw
}

// saveLocked writes the full list; failures are logged and swallowed.
func (s *Store) saveLocked() {
	raw, err := encodeJSON(s.sessions)
	if err != nil {
		s.logger.Warn("failed to encode sessions", zap.Error(err))
		return
	}
	if err := s.backend.Put(s.key, raw); err != nil {
		s.logger.Warn("failed to save sessions", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.lastSaved = raw
}

func (s *Store) loadCurrentLocked() string {
	raw, err := s.backend.Get(s.currentKey)
	if err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	if s.indexLocked(id) < 0 {
		return ""
	}
	return id
}

func (s *Store) saveCurrentLocked() {
	raw, err := encodeJSON(s.current)
	if err != nil {
		return
	}
	if err := s.backend.Put(s.currentKey, raw); err != nil {
		s.logger.Warn("failed to save selection", zap.String("key", s.currentKey), zap.Error(err))
	}
}

// encodeJSON leaves <, > and & unescaped so stored trace payloads keep the
// exact bytes they were received with.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
