// Package badger is the default, embeddable Store implementation backing
// the engine's four persisted tables. It is grounded on the teacher
// repository's pkg/metadata/store/badger transaction and key-encoding
// pattern: thin CRUD wrappers over badger.Txn with no business logic.
//
// The production deployment this spec describes talks to a shared redis
// instance (out of scope, spec.md §1); this package is the concrete
// stand-in that lets the reconciliation engine run and be tested without
// that external dependency, and the seam a future redis-backed kvstore.Store
// would occupy instead.
package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/kvstore"
)

// Store adapts a BadgerDB handle to kvstore.Store. Every table is a key
// prefix within one BadgerDB instance rather than a separate database,
// keeping the single-switch-per-process deployment (spec.md Non-goals)
// to one file on disk.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a BadgerDB at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore/badger: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func tableKey(table, key string) []byte {
	return []byte(table + "\x00" + key)
}

func tablePrefix(table string) []byte {
	return []byte(table + "\x00")
}

func (s *Store) Get(ctx context.Context, table, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(table, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *Store) Set(ctx context.Context, table, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tableKey(table, key), []byte(value))
	})
}

func (s *Store) Delete(ctx context.Context, table, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(tableKey(table, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *Store) Scan(ctx context.Context, table string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	prefix := tablePrefix(table)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				out[key] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := tablePrefix(table)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, append([]byte{}, it.Item().Key()...))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Batch runs fn against a single badger transaction, committed atomically
// when fn returns nil. The executor's post-APPLY persistence step (§4.8)
// uses one such batch each for replacing ASIC_STATE, clearing
// TEMP_ASIC_STATE and rewriting VIDTORID/RIDTOVID; the three are not one
// durable unit.
func (s *Store) Batch(ctx context.Context, fn func(b kvstore.Batch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		b := &batch{txn: txn}
		if err := fn(b); err != nil {
			return err
		}
		return b.err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	txn *badger.Txn
	err error
}

func (b *batch) Set(table, key, value string) {
	if b.err != nil {
		return
	}
	b.err = b.txn.Set(tableKey(table, key), []byte(value))
}

func (b *batch) Delete(table, key string) {
	if b.err != nil {
		return
	}
	err := b.txn.Delete(tableKey(table, key))
	if err != nil && err != badger.ErrKeyNotFound {
		b.err = err
	}
}

func (b *batch) Clear(table string) {
	if b.err != nil {
		return
	}
	prefix := tablePrefix(table)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := b.txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, append([]byte{}, it.Item().Key()...))
	}
	for _, k := range keys {
		if err := b.txn.Delete(k); err != nil {
			b.err = err
			return
		}
	}
}

// LogRotationGC runs BadgerDB's value-log garbage collection. Callers wire
// this behind a periodic ticker; it's not called from request paths.
func (s *Store) LogRotationGC(ratio float64) error {
	err := s.db.RunValueLogGC(ratio)
	if err == badger.ErrNoRewrite {
		logger.Debug("badger value log GC: nothing to rewrite")
		return nil
	}
	return err
}
