// Package memory provides an in-process Store implementation used by unit
// tests and by the "replay" CLI command when no persistent backend is
// configured. It has no durability: everything is lost on process exit.
package memory

import (
	"context"
	"sync"

	"github.com/flowbridge/syncd/pkg/kvstore"
)

// Store is a mutex-guarded map-of-maps implementation of kvstore.Store.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]string
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{tables: make(map[string]map[string]string)}
}

func (s *Store) table(name string) map[string]string {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[string]string)
		s.tables[name] = t
	}
	return t
}

func (s *Store) Get(_ context.Context, table, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return "", false, nil
	}
	v, ok := t[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, table, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(table)[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.table(table), key)
	return nil
}

func (s *Store) Scan(_ context.Context, table string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.tables[table]))
	for k, v := range s.tables[table] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Clear(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table)
	return nil
}

func (s *Store) Batch(ctx context.Context, fn func(b kvstore.Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &batch{s: s}
	return fn(b)
}

func (s *Store) Close() error { return nil }

// batch applies writes directly since Store.Batch already holds the lock
// for its whole duration — the in-memory backend needs no staging area.
type batch struct{ s *Store }

func (b *batch) Set(table, key, value string) { b.s.table(table)[key] = value }
func (b *batch) Delete(table, key string)     { delete(b.s.table(table), key) }
func (b *batch) Clear(table string)           { delete(b.s.tables, table) }
