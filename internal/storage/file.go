// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/nebula-tui/internal/util"
)

// FileBackend stores each key in <dir>/<key>.json.
type FileBackend struct {
	dir string

	mu    sync.Mutex
	known map[string]struct{}
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: dir, known: make(map[string]struct{})}, nil
}

// Path returns the file that holds key.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, sanitizeKey(key)+".json")
}

func (b *FileBackend) Get(key string) ([]byte, error) {
	b.remember(key)
	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (b *FileBackend) Put(key string, value []byte) error {
	b.remember(key)
	if err := util.AtomicWriteFile(b.Path(key), value, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Close() error {
	return nil
}

// WatchPaths returns the files of every key read or written so far.
func (b *FileBackend) WatchPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.known))
	for key := range b.known {
		paths = append(paths, b.Path(key))
	}
	return paths
}

func (b *FileBackend) remember(key string) {
	b.mu.Lock()
	b.known[key] = struct{}{}
	b.mu.Unlock()
}
