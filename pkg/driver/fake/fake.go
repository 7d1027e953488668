// Package fake provides an in-memory driver.Driver for tests, standing in
// for the vendor SAI binding this engine drives but never ships (spec.md
// §1). It tracks object attributes and the implicit default objects a
// real switch-create would produce, so switch inventory discovery and
// the executor have something real to walk and mutate.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/sai"
)

type object struct {
	t     sai.ObjectType
	attrs map[sai.AttrID]sai.Value
}

// Driver is a deterministic, in-memory stand-in for a vendor SAI binding.
type Driver struct {
	mu      sync.Mutex
	nextRID uint64
	objects map[sai.RID]*object

	// entries holds non-OID entries (route/neighbor/FDB), keyed by
	// object-type-qualified serialized key since entries have no RID.
	entries map[string]*object

	// ImplicitChildren lets a test pre-configure which objects a
	// CreateSwitch call should implicitly create, keyed by the parent
	// attribute that should reference the child once created.
	ImplicitChildren map[sai.AttrID]sai.ObjectType

	notifications chan driver.Notification
}

// New constructs an empty fake driver.
func New() *Driver {
	return &Driver{
		objects:       make(map[sai.RID]*object),
		entries:       make(map[string]*object),
		notifications: make(chan driver.Notification, 16),
	}
}

// Notifications implements driver.NotificationSource, letting tests drive
// the engine's notifications loop deterministically via Emit.
func (d *Driver) Notifications() <-chan driver.Notification {
	return d.notifications
}

// Emit pushes a notification as if the vendor SDK had delivered it.
func (d *Driver) Emit(n driver.Notification) {
	d.notifications <- n
}

func entryKey(t sai.ObjectType, key sai.Key) string {
	return t.String() + ":" + key.Serialize()
}

func (d *Driver) allocRID() sai.RID {
	d.nextRID++
	return sai.RID(d.nextRID)
}

func (d *Driver) CreateSwitch(_ context.Context, attrs map[sai.AttrID]sai.Value) (sai.RID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rid := d.allocRID()
	own := cloneAttrs(attrs)
	d.objects[rid] = &object{t: sai.ObjectTypeSwitch, attrs: own}

	for attrID, childType := range d.ImplicitChildren {
		childRID := d.allocRID()
		d.objects[childRID] = &object{t: childType, attrs: map[sai.AttrID]sai.Value{}}
		own[attrID] = sai.OIDValue(sai.VID(uint64(childRID)))
	}
	return rid, nil
}

func (d *Driver) CreateObject(_ context.Context, t sai.ObjectType, key sai.Key, attrs map[sai.AttrID]sai.Value) (sai.RID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rid := d.allocRID()
	obj := &object{t: t, attrs: cloneAttrs(attrs)}
	d.objects[rid] = obj
	if !t.IsOID() {
		d.entries[entryKey(t, key)] = obj
	}
	return rid, nil
}

func (d *Driver) SetEntryAttribute(_ context.Context, t sai.ObjectType, key sai.Key, id sai.AttrID, value sai.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.entries[entryKey(t, key)]
	if !ok {
		return fmt.Errorf("fake driver: set entry: unknown key %s", key)
	}
	obj.attrs[id] = value
	return nil
}

func (d *Driver) RemoveEntry(_ context.Context, t sai.ObjectType, key sai.Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := entryKey(t, key)
	if _, ok := d.entries[k]; !ok {
		return fmt.Errorf("fake driver: remove entry: unknown key %s", key)
	}
	delete(d.entries, k)
	return nil
}

func (d *Driver) RemoveObject(_ context.Context, _ sai.ObjectType, rid sai.RID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.objects[rid]; !ok {
		return fmt.Errorf("fake driver: remove: unknown rid %s", rid)
	}
	delete(d.objects, rid)
	return nil
}

func (d *Driver) SetAttribute(_ context.Context, _ sai.ObjectType, rid sai.RID, id sai.AttrID, value sai.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[rid]
	if !ok {
		return fmt.Errorf("fake driver: set: unknown rid %s", rid)
	}
	obj.attrs[id] = value
	return nil
}

func (d *Driver) GetAttribute(_ context.Context, _ sai.ObjectType, rid sai.RID, id sai.AttrID) (sai.Value, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[rid]
	if !ok {
		return sai.Value{}, fmt.Errorf("fake driver: get: unknown rid %s", rid)
	}
	v, ok := obj.attrs[id]
	if !ok {
		return sai.Value{}, fmt.Errorf("fake driver: get: rid %s has no attr %s", rid, id)
	}
	return v, nil
}

func (d *Driver) ObjectTypeOf(_ context.Context, rid sai.RID) (sai.ObjectType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[rid]
	if !ok {
		return sai.ObjectTypeNull, fmt.Errorf("fake driver: object type: unknown rid %s", rid)
	}
	return obj.t, nil
}

func cloneAttrs(attrs map[sai.AttrID]sai.Value) map[sai.AttrID]sai.Value {
	out := make(map[sai.AttrID]sai.Value, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
