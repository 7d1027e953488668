// Package kvstore defines the persistence contract this engine uses for its
// four durable tables (§6). The actual producer-facing key/value database
// (redis, in the reference deployment) is an external collaborator and out
// of scope (spec.md §1); this package is the seam a redis client would plug
// into, with pkg/kvstore/badger as the concrete, embeddable default.
package kvstore

import "context"

// Table names match the persisted-state layout in spec.md §6.
const (
	TableAsicState     = "ASIC_STATE"
	TableTempAsicState = "TEMP_ASIC_STATE"
	TableVIDToRID      = "VIDTORID"
	TableRIDToVID      = "RIDTOVID"
	TableHidden        = "HIDDEN"
	TableLanes         = "LANES"

	// TableVIDCounters persists the per-switch-index monotonic VID
	// counter (spec.md §4.1). Named after the original tool's own
	// VIDCOUNTER key, though there it was one key per switch rather
	// than a whole table.
	TableVIDCounters = "VIDCOUNTER"
)

// Store is a flat, table-scoped key/value persistence interface. Every
// table is an independent keyspace; callers choose the table by name
// rather than by Go type, mirroring the producer-facing redis hashes it
// stands in for.
type Store interface {
	// Get returns the value for key in table, and false if absent.
	Get(ctx context.Context, table, key string) (string, bool, error)

	// Set writes key=value in table.
	Set(ctx context.Context, table, key, value string) error

	// Delete removes key from table. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, table, key string) error

	// Scan returns every key/value pair currently in table.
	Scan(ctx context.Context, table string) (map[string]string, error)

	// Clear removes every key from table.
	Clear(ctx context.Context, table string) error

	// Batch runs fn against an atomic write batch: either every
	// operation in fn is durable or none are. The executor's post-APPLY
	// persistence step (§4.8) writes ASIC_STATE, clears TEMP_ASIC_STATE and
	// rewrites VIDTORID/RIDTOVID as separate batches, one after another.
	Batch(ctx context.Context, fn func(b Batch) error) error

	// Close releases underlying resources.
	Close() error
}

// Batch accumulates writes to be committed atomically by Store.Batch.
type Batch interface {
	Set(table, key, value string)
	Delete(table, key string)
	Clear(table string)
}
