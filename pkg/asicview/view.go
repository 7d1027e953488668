// Package asicview implements the in-memory object graph the reconciler
// operates on (spec.md §4.5): a type- and identity-indexed set of
// objects, a VID reference-count map, and the ordered list of ASIC
// operations reconciliation emits. Two views exist side by side during an
// APPLY — current and temporary — both constructed from this same type.
package asicview

import (
	"fmt"
	"sync"

	"github.com/flowbridge/syncd/pkg/sai"
)

// OpKind identifies the ASIC operation an emitted Operation represents.
type OpKind uint8

const (
	OpCreate OpKind = iota
	OpSet
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Operation is one ASIC-bound instruction emitted during reconciliation.
// Each carries a monotonically increasing ID used by the executor's
// remove-hoist scheduling (spec.md §4.8, P6).
type Operation struct {
	ID     uint64
	Kind   OpKind
	Object *sai.Object
	AttrID sai.AttrID // only meaningful for OpSet
	Value  sai.Value  // only meaningful for OpSet
}

// View is one side (current or temporary) of the reconciliation graph.
type View struct {
	mu sync.Mutex

	byType map[sai.ObjectType]map[string]*sai.Object

	refcount       map[sai.VID]uint64
	lastDecrefOpID map[sai.VID]uint64

	generalOps      []Operation
	nonOIDRemoveOps []Operation
	nextOpID        uint64

	removed map[sai.VID]bool
}

// New constructs an empty view.
func New() *View {
	return &View{
		byType:         make(map[sai.ObjectType]map[string]*sai.Object),
		refcount:       make(map[sai.VID]uint64),
		lastDecrefOpID: make(map[sai.VID]uint64),
		removed:        make(map[sai.VID]bool),
	}
}

func (v *View) bucket(t sai.ObjectType) map[string]*sai.Object {
	b, ok := v.byType[t]
	if !ok {
		b = make(map[string]*sai.Object)
		v.byType[t] = b
	}
	return b
}

// Insert adds obj to the view without emitting any operation or touching
// refcounts. Used when constructing a view from a key/value database dump
// and by the populate step when seeding dummy default-created objects.
func (v *View) Insert(obj *sai.Object) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bucket(obj.Type)[obj.Key.Serialize()] = obj
}

// Delete removes obj's key from the view without emitting any operation
// or touching refcounts. Used by the producer API while depositing
// writes into a temp view still under construction (spec.md §6): a
// remove request for a key created earlier in the same init-view cycle
// simply drops it, rather than recording a removal the reconciler would
// need to act on.
func (v *View) Delete(t sai.ObjectType, key sai.Key) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.bucket(t), key.Serialize())
}

// Get looks up an object by type and serialized key.
func (v *View) Get(t sai.ObjectType, key sai.Key) (*sai.Object, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	obj, ok := v.bucket(t)[key.Serialize()]
	return obj, ok
}

// ObjectsByType returns every object of type t.
func (v *View) ObjectsByType(t sai.ObjectType) []*sai.Object {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*sai.Object, 0, len(v.byType[t]))
	for _, obj := range v.byType[t] {
		out = append(out, obj)
	}
	return out
}

// NotProcessedByType returns every NOT_PROCESSED object of type t.
func (v *View) NotProcessedByType(t sai.ObjectType) []*sai.Object {
	var out []*sai.Object
	for _, obj := range v.ObjectsByType(t) {
		if obj.Status == sai.NotProcessed {
			out = append(out, obj)
		}
	}
	return out
}

// AllNotProcessed returns every NOT_PROCESSED object across all types.
func (v *View) AllNotProcessed() []*sai.Object {
	v.mu.Lock()
	types := make([]sai.ObjectType, 0, len(v.byType))
	for t := range v.byType {
		types = append(types, t)
	}
	v.mu.Unlock()

	var out []*sai.Object
	for _, t := range types {
		out = append(out, v.NotProcessedByType(t)...)
	}
	return out
}

// ReferenceCount returns the current reference count for vid.
func (v *View) ReferenceCount(vid sai.VID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refcount[vid]
}

// LastDecrefOpID returns the operation id that last dropped vid's
// reference count to zero, if any.
func (v *View) LastDecrefOpID(vid sai.VID) (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.lastDecrefOpID[vid]
	return id, ok
}

// InsertNewVID sanity-checks that vid has no existing refcount entry and
// inserts it with count 0.
func (v *View) InsertNewVID(vid sai.VID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.refcount[vid]; ok {
		return fmt.Errorf("asicview: vid %s already has a reference count entry", vid)
	}
	v.refcount[vid] = 0
	return nil
}

func oidsOf(obj *sai.Object) []sai.VID {
	out := obj.OIDsInAttrs()
	out = append(out, obj.Key.OIDsIn()...)
	return out
}

func (v *View) bind(opID uint64, vids []sai.VID) {
	for _, vid := range vids {
		if vid.IsNull() {
			continue
		}
		v.refcount[vid]++
	}
	_ = opID
}

func (v *View) release(opID uint64, vids []sai.VID) {
	for _, vid := range vids {
		if vid.IsNull() {
			continue
		}
		if v.refcount[vid] > 0 {
			v.refcount[vid]--
		}
		if v.refcount[vid] == 0 {
			v.lastDecrefOpID[vid] = opID
		}
	}
}

// CreateObject emits an ASIC create operation for obj, inserts it into the
// view's maps, and binds its OID links (incrementing the referenced VIDs'
// counts). For non-OID entries this also increments the refcounts of the
// OIDs embedded in the entry's composite key.
func (v *View) CreateObject(obj *sai.Object) Operation {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.bucket(obj.Type)[obj.Key.Serialize()] = obj

	if vid := obj.VID(); !vid.IsNull() {
		if _, ok := v.refcount[vid]; !ok {
			v.refcount[vid] = 0
		}
	}

	v.nextOpID++
	op := Operation{ID: v.nextOpID, Kind: OpCreate, Object: obj}
	v.bind(op.ID, oidsOf(obj))
	v.generalOps = append(v.generalOps, op)
	return op
}

// SetAttribute emits an ASIC set operation, releasing the OID links the
// attribute's old value held and binding the ones its new value holds.
func (v *View) SetAttribute(obj *sai.Object, attrID sai.AttrID, value sai.Value) Operation {
	v.mu.Lock()
	defer v.mu.Unlock()

	old, hadOld := obj.Attrs[attrID]

	v.nextOpID++
	op := Operation{ID: v.nextOpID, Kind: OpSet, Object: obj, AttrID: attrID, Value: value}

	if hadOld {
		v.release(op.ID, old.OIDs())
	}
	v.bind(op.ID, value.OIDs())
	obj.Attrs[attrID] = value

	v.generalOps = append(v.generalOps, op)
	return op
}

// RemoveObject emits an ASIC remove operation — placed on the front
// (non-OID-removal) queue for non-OID entries, per spec.md §4.5 — releases
// the object's OID links, and marks the object Removed. For OID objects,
// the VID is recorded in the view's removed shadow; the executor consults
// this, together with pkg/ridvid's own removed shadow, when translating
// subsequent operations.
func (v *View) RemoveObject(obj *sai.Object) Operation {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nextOpID++
	op := Operation{ID: v.nextOpID, Kind: OpRemove, Object: obj}
	v.release(op.ID, oidsOf(obj))

	delete(v.bucket(obj.Type), obj.Key.Serialize())

	if vid := obj.VID(); !vid.IsNull() {
		v.removed[vid] = true
	}

	if !obj.Type.IsOID() {
		v.nonOIDRemoveOps = append(v.nonOIDRemoveOps, op)
	} else {
		v.generalOps = append(v.generalOps, op)
	}

	obj.SetStatus(sai.Removed)
	return op
}

// IsRemoved reports whether vid was removed from this view during the
// current reconciliation pass.
func (v *View) IsRemoved(vid sai.VID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.removed[vid]
}

// CreateDummyExistingObject injects a placeholder NOT_PROCESSED object for
// vid into this view without emitting any operation, so that the matcher
// can pair a default-created object with its temporary-view counterpart
// during the populate step (spec.md §4.5, §4.7).
func (v *View) CreateDummyExistingObject(vid sai.VID) *sai.Object {
	obj := sai.NewObject(vid.ObjectType(), sai.OIDKey(vid.ObjectType(), vid))
	v.Insert(obj)
	return obj
}

// NonOIDRemoveOperations returns the front queue of non-OID remove
// operations, emitted ahead of the general operation list.
func (v *View) NonOIDRemoveOperations() []Operation {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Operation, len(v.nonOIDRemoveOps))
	copy(out, v.nonOIDRemoveOps)
	return out
}

// GeneralOperations returns every emitted operation other than non-OID
// removes, in emission order.
func (v *View) GeneralOperations() []Operation {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Operation, len(v.generalOps))
	copy(out, v.generalOps)
	return out
}
