// Package driver defines the boundary this engine talks across to reach
// the vendor SAI implementation. The vendor driver itself is an external
// collaborator (spec.md §1, Non-goals) — this package only names the
// interface the executor, switch inventory, and hard-reinit subsystems
// invoke, plus an in-memory fake for tests (pkg/driver/fake).
package driver

import (
	"context"

	"github.com/flowbridge/syncd/pkg/sai"
)

// Driver is the narrow surface the engine needs from a vendor SAI binding:
// create/set/get/remove on real IDs, plus the one switch-level bootstrap
// call that seeds the discovery walk.
type Driver interface {
	// CreateSwitch brings up the switch object and returns its RID. attrs
	// holds only the CREATE_ONLY/MANDATORY_ON_CREATE attributes a caller
	// chooses to set at boot (e.g. hardware_info); the driver is free to
	// create further objects implicitly, discovered later by pkg/inventory.
	CreateSwitch(ctx context.Context, attrs map[sai.AttrID]sai.Value) (sai.RID, error)

	// CreateObject creates an object of type t with the given attributes
	// and returns its RID.
	CreateObject(ctx context.Context, t sai.ObjectType, key sai.Key, attrs map[sai.AttrID]sai.Value) (sai.RID, error)

	// RemoveObject removes the object identified by rid.
	RemoveObject(ctx context.Context, t sai.ObjectType, rid sai.RID) error

	// SetAttribute sets a single CREATE_AND_SET attribute on rid.
	SetAttribute(ctx context.Context, t sai.ObjectType, rid sai.RID, id sai.AttrID, value sai.Value) error

	// GetAttribute reads a single attribute from rid. Used by switch
	// inventory discovery and by hard reinit's default-object matching.
	GetAttribute(ctx context.Context, t sai.ObjectType, rid sai.RID, id sai.AttrID) (sai.Value, error)

	// SetEntryAttribute sets an attribute on a non-OID entry (route,
	// neighbor, FDB), addressed by its composite key rather than a RID —
	// matching the vendor SAI calling convention for entry types, which
	// have no object id at all.
	SetEntryAttribute(ctx context.Context, t sai.ObjectType, key sai.Key, id sai.AttrID, value sai.Value) error

	// RemoveEntry removes a non-OID entry by its composite key.
	RemoveEntry(ctx context.Context, t sai.ObjectType, key sai.Key) error

	// ObjectTypeOf returns the object type of rid. Real SAI bindings
	// derive this from the RID itself (sai_object_type_query); switch
	// inventory needs it while walking objects it didn't create itself
	// and therefore has no a priori type for.
	ObjectTypeOf(ctx context.Context, rid sai.RID) (sai.ObjectType, error)
}

// Notification is one asynchronous driver event: a port state change, an
// FDB update, or any other callback the vendor SDK delivers outside the
// request/response flow (spec.md §9: "the notifications thread's select
// + dequeue pattern maps to a bounded channel plus a dedicated task").
type Notification struct {
	Name    string
	Payload string
	Fields  map[string]string
}

// NotificationSource is implemented by drivers that deliver asynchronous
// events. It is optional: for a driver that doesn't implement it the
// engine's notifications loop has nothing to start. pkg/driver/fake
// implements it and delivers whatever its Emit method queues.
type NotificationSource interface {
	Notifications() <-chan Notification
}
