// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"strings"
)

// Backend is a minimal key-value store.
type Backend interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put replaces the value stored under key.
	Put(key string, value []byte) error
	// Close releases the backend's resources.
	Close() error
}

// Watchable is implemented by backends that live in a file on disk.
type Watchable interface {
	// WatchPaths returns the files whose modification signals a changed value.
	WatchPaths() []string
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrKeyNotFound is returned by Get when nothing is stored under the key.
var ErrKeyNotFound = &StorageError{Message: "key not found"}

// StorageError represents a storage-related error.
// It can be compared using errors.Is.
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}

func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// FACTORY
// =============================================================================

// Open returns the backend named kind ("file", "sqlite" or "memory") rooted at dir.
func Open(kind, dir string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "file", "":
		return NewFileBackend(dir)
	case "sqlite":
		return NewSQLiteBackend(dir)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// sanitizeKey maps a key onto a safe file name component.
func sanitizeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
