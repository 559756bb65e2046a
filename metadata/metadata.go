/* SPDX-License-Identifier: MPL-2.0
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 */

// Package metadata implements the key/value metadata groups carried at
// the top level and per-genome level of a HAL file (spec §6). It replaces
// the distilled spec's genobase-backed metadata store (out of scope here,
// see DESIGN.md) with a small file-backed store persisted as gob, which
// is sufficient for the flat string-to-string maps HAL metadata groups
// actually hold.
package metadata

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/zymatik-com/halign/halerr"
)

// Store is a key/value metadata group.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Keys() []string
}

// memStore is an in-memory Store, optionally persisted to a gob file on
// Flush.
type memStore struct {
	mu   sync.RWMutex
	path string
	kv   map[string]string
}

// New returns an empty, unpersisted metadata store.
func New() Store {
	return &memStore{kv: make(map[string]string)}
}

// Open loads a metadata store from path, or returns an empty store if the
// file does not yet exist.
func Open(path string) (Store, error) {
	s := &memStore{path: path, kv: make(map[string]string)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("metadata: open %s: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&s.kv); err != nil {
		return nil, fmt.Errorf("metadata: decode %s: %w", path, err)
	}

	return s, nil
}

// Flush persists the store to its backing path, if any.
func Flush(s Store) error {
	m, ok := s.(*memStore)
	if !ok || m.path == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Create(m.path)
	if err != nil {
		return fmt.Errorf("metadata: create %s: %w", m.path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(m.kv); err != nil {
		return fmt.Errorf("metadata: encode %s: %w", m.path, err)
	}

	return nil
}

func (m *memStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok
}

func (m *memStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
}

func (m *memStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
}

func (m *memStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.kv))
	for k := range m.kv {
		keys = append(keys, k)
	}
	return keys
}

// errNotFound is returned by callers that wrap a missing required key;
// kept here so alignment/genome code can produce consistent errors
// without importing halerr directly for this one case.
var errNotFound = halerr.ErrNotFound

// Require returns the value for key or a halerr.ErrNotFound-wrapped
// error.
func Require(s Store, key string) (string, error) {
	v, ok := s.Get(key)
	if !ok {
		return "", fmt.Errorf("metadata: key %q: %w", key, errNotFound)
	}
	return v, nil
}
