// Package ridvid is the durable VID<->RID identity map (spec.md §4.2): the
// bridge between virtual object IDs the producer knows about and the real
// IDs a vendor driver assigns. It is grounded on the teacher's identity
// mapping tables (pkg/metadata's RID-like lookup structures), generalized
// from a single object kind to the many SAI object types this system
// tracks, and backed by kvstore.Store rather than an SQL table.
package ridvid

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/sai"
)

// Map is the in-memory, persistence-backed VID<->RID map for one switch.
// It keeps two views:
//
//   - current: the live bidirectional mapping, what vid_of/rid_of consult.
//   - removed: a shadow of mappings taken out of current during the last
//     APPLY, kept only so rid_of_including_removed can still answer for
//     VIDs the reconciler decided to remove but which the executor has not
//     yet (or failed to) confirm removed downstream.
//
// There is deliberately no rollback path: if an executor operation fails
// after remove() has already dropped an entry from current, the mapping
// stays dropped. Re-running hard reinit is the recovery path (spec.md §7).
type Map struct {
	mu sync.RWMutex

	vidToRID map[sai.VID]sai.RID
	ridToVID map[sai.RID]sai.VID
	removed  map[sai.VID]sai.RID

	store kvstore.Store
}

// New constructs an empty Map backed by store. Call Load to populate it
// from a prior run.
func New(store kvstore.Store) *Map {
	return &Map{
		vidToRID: make(map[sai.VID]sai.RID),
		ridToVID: make(map[sai.RID]sai.VID),
		removed:  make(map[sai.VID]sai.RID),
		store:    store,
	}
}

// Load populates the map from the VIDTORID table, reconstructing RIDTOVID
// as the inverse. It is called once at startup; VIDTORID is the source of
// truth, matching the teacher's pattern of trusting one canonical table and
// treating its mirror as derived.
func (m *Map) Load(ctx context.Context) error {
	rows, err := m.store.Scan(ctx, kvstore.TableVIDToRID)
	if err != nil {
		return fmt.Errorf("ridvid: load: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for vidStr, ridStr := range rows {
		vid, err := sai.ParseVID(vidStr)
		if err != nil {
			return fmt.Errorf("ridvid: load: bad vid %q: %w", vidStr, err)
		}
		rid := parseRID(ridStr)
		m.vidToRID[vid] = rid
		m.ridToVID[rid] = vid
	}
	return nil
}

// Insert records a new VID<->RID pair as both in-memory and durable state.
func (m *Map) Insert(ctx context.Context, vid sai.VID, rid sai.RID) error {
	m.mu.Lock()
	m.vidToRID[vid] = rid
	m.ridToVID[rid] = vid
	delete(m.removed, vid)
	m.mu.Unlock()

	return m.store.Batch(ctx, func(b kvstore.Batch) error {
		b.Set(kvstore.TableVIDToRID, vid.String(), formatRID(rid))
		b.Set(kvstore.TableRIDToVID, formatRID(rid), vid.String())
		return nil
	})
}

// Remove takes vid out of the current view, moving its RID into the
// removed shadow, and persists the removal. It does not error if vid is
// unknown.
func (m *Map) Remove(ctx context.Context, vid sai.VID) error {
	m.mu.Lock()
	rid, ok := m.vidToRID[vid]
	if ok {
		delete(m.vidToRID, vid)
		delete(m.ridToVID, rid)
		m.removed[vid] = rid
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return m.store.Batch(ctx, func(b kvstore.Batch) error {
		b.Delete(kvstore.TableVIDToRID, vid.String())
		b.Delete(kvstore.TableRIDToVID, formatRID(rid))
		return nil
	})
}

// VIDOf returns the VID mapped to rid in the current view.
func (m *Map) VIDOf(rid sai.RID) (sai.VID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.ridToVID[rid]
	return v, ok
}

// RIDOf returns the RID mapped to vid in the current view.
func (m *Map) RIDOf(vid sai.VID) (sai.RID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.vidToRID[vid]
	return r, ok
}

// RIDOfIncludingRemoved returns the RID for vid whether or not it is still
// in the current view, falling back to the removed shadow. The executor
// uses this to translate operations against objects the reconciler has
// already marked for removal but not yet applied.
func (m *Map) RIDOfIncludingRemoved(vid sai.VID) (sai.RID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.vidToRID[vid]; ok {
		return r, true
	}
	r, ok := m.removed[vid]
	return r, ok
}

// Rewrite erases and rewrites VIDTORID/RIDTOVID from the current
// in-memory map as a single atomic batch (spec.md §4.8: "the persistent
// RID/VID map is erased and rewritten from the final in-memory map"
// after a successful APPLY). Unlike Insert/Remove's per-call
// incremental writes, this is the bulk consistency pass the executor
// runs once at the end of execution.
func (m *Map) Rewrite(ctx context.Context) error {
	m.mu.RLock()
	vidToRID := make(map[sai.VID]sai.RID, len(m.vidToRID))
	for vid, rid := range m.vidToRID {
		vidToRID[vid] = rid
	}
	m.mu.RUnlock()

	return m.store.Batch(ctx, func(b kvstore.Batch) error {
		b.Clear(kvstore.TableVIDToRID)
		b.Clear(kvstore.TableRIDToVID)
		for vid, rid := range vidToRID {
			b.Set(kvstore.TableVIDToRID, vid.String(), formatRID(rid))
			b.Set(kvstore.TableRIDToVID, formatRID(rid), vid.String())
		}
		return nil
	})
}

// ClearRemoved discards the removed shadow. Called once an APPLY cycle has
// fully committed and the shadow is no longer needed for translation.
func (m *Map) ClearRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = make(map[sai.VID]sai.RID)
}

// Size returns the number of entries in the current view.
func (m *Map) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vidToRID)
}

func formatRID(r sai.RID) string {
	return fmt.Sprintf("%d", uint64(r))
}

func parseRID(s string) sai.RID {
	var v uint64
	fmt.Sscanf(s, "%d", &v)
	return sai.RID(v)
}
