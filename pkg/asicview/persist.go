package asicview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/sai"
)

// SerializeObject renders obj as the row value stored in a persisted
// view table. This is this engine's own internal encoding, not the
// producer-facing textual wire format (spec.md §6): a full JSON
// round-trip of the object struct, chosen because a handful of attribute
// kinds (ACL field/action payloads) don't carry enough type information
// in their own textual form to parse back without consulting metadata
// for a sub-kind this table doesn't track.
func SerializeObject(obj *sai.Object) (string, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("asicview: serialize object: %w", err)
	}
	return string(b), nil
}

// DeserializeObject is the inverse of SerializeObject.
func DeserializeObject(data string) (*sai.Object, error) {
	var obj sai.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("asicview: deserialize object: %w", err)
	}
	return &obj, nil
}

// rowKey matches the producer-facing key shape from spec.md §6
// ("object_type:serialized_object_id") even though the row value uses
// this engine's own encoding.
func rowKey(obj *sai.Object) string {
	return obj.Type.String() + ":" + obj.Key.Serialize()
}

// Dump erases table and replaces it with every object currently in the
// view, one row per object, as a single atomic batch. Used by the
// executor's post-APPLY persistence step (spec.md §4.8) to replace
// ASIC_STATE with the reconciled temp view.
func (v *View) Dump(ctx context.Context, store kvstore.Store, table string) error {
	v.mu.Lock()
	objs := make([]*sai.Object, 0)
	for _, bucket := range v.byType {
		for _, obj := range bucket {
			objs = append(objs, obj)
		}
	}
	v.mu.Unlock()

	return store.Batch(ctx, func(b kvstore.Batch) error {
		b.Clear(table)
		for _, obj := range objs {
			data, err := SerializeObject(obj)
			if err != nil {
				return err
			}
			b.Set(table, rowKey(obj), data)
		}
		return nil
	})
}

// LoadView constructs a view from a dump of table (spec.md §4.5: "a view
// is constructed from a dump of the key/value database table"). Loaded
// objects carry whatever Status they were persisted with — ASIC_STATE
// rows are always FINAL, since only fully reconciled objects are ever
// written there — and refcounts are rebuilt from the loaded attribute
// set rather than trusted from the dump.
func LoadView(ctx context.Context, store kvstore.Store, table string) (*View, error) {
	rows, err := store.Scan(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("asicview: load view: %w", err)
	}

	v := New()
	for _, raw := range rows {
		obj, err := DeserializeObject(raw)
		if err != nil {
			return nil, err
		}
		v.Insert(obj)
	}
	v.RebuildRefcounts()
	return v, nil
}

// RebuildRefcounts recomputes the reference-count map from the objects
// currently in the view, discarding whatever counts (if any) were
// already present. Used after a raw load, where no create/set/remove
// sequence ran to build the counts incrementally (P2).
func (v *View) RebuildRefcounts() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.refcount = make(map[sai.VID]uint64)
	v.lastDecrefOpID = make(map[sai.VID]uint64)

	for _, bucket := range v.byType {
		for _, obj := range bucket {
			if vid := obj.VID(); !vid.IsNull() {
				if _, ok := v.refcount[vid]; !ok {
					v.refcount[vid] = 0
				}
			}
		}
	}
	for _, bucket := range v.byType {
		for _, obj := range bucket {
			for _, vid := range oidsOf(obj) {
				if !vid.IsNull() {
					v.refcount[vid]++
				}
			}
		}
	}
}
