package sai

import "strings"

// Status is an object's lifecycle state during view reconciliation (§3).
// Transitions form a DAG: NotProcessed -> {Matched, Final, Removed},
// Matched -> Final. Final and Removed are terminal (P10: no regression).
type Status uint8

const (
	NotProcessed Status = iota
	Matched
	Removed
	Final
)

func (s Status) String() string {
	switch s {
	case NotProcessed:
		return "NOT_PROCESSED"
	case Matched:
		return "MATCHED"
	case Removed:
		return "REMOVED"
	case Final:
		return "FINAL"
	default:
		return "UNKNOWN"
	}
}

// CanTransitionTo reports whether moving from s to next is legal under the
// lifecycle lattice (P10).
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case NotProcessed:
		return next == Matched || next == Final || next == Removed
	case Matched:
		return next == Final
	default:
		return false // Final, Removed are terminal
	}
}

// Object is a single record in a view: its type, identity, attributes, and
// lifecycle status (§3).
type Object struct {
	Type   ObjectType
	Key    Key
	Attrs  map[AttrID]Value
	Status Status

	// Created marks that this object was produced by reconciliation
	// (create_new_from_temp) and has no driver RID yet at the time it was
	// built; the executor assigns one on successful create.
	Created bool
}

// NewObject constructs an empty object of the given type and key.
func NewObject(t ObjectType, key Key) *Object {
	return &Object{Type: t, Key: key, Attrs: make(map[AttrID]Value)}
}

// VID returns the object's identity VID for OID objects, or NullVID for
// non-OID entries (use Key directly for those).
func (o *Object) VID() VID {
	if o.Type.IsOID() {
		return o.Key.OID
	}
	return NullVID
}

// SetStatus transitions the object's status, panicking on a lattice
// violation — this indicates a reconciler bug (P10), not a recoverable
// condition.
func (o *Object) SetStatus(next Status) {
	if !o.Status.CanTransitionTo(next) && o.Status != next {
		panic("sai: illegal status transition " + o.Status.String() + " -> " + next.String())
	}
	o.Status = next
}

// OIDsInAttrs enumerates every VID referenced by every attribute on the
// object (§3 invariant: enumeration must be exhaustive, honoring ACL
// enable flags via Value.OIDs).
func (o *Object) OIDsInAttrs() []VID {
	var out []VID
	for _, v := range o.Attrs {
		out = append(out, v.OIDs()...)
	}
	return out
}

// Clone returns a deep copy of the object, used by create_new_from_temp
// (§4.7.2) which must not alias the temp object's attribute map.
func (o *Object) Clone() *Object {
	clone := &Object{
		Type:    o.Type,
		Key:     o.Key,
		Status:  o.Status,
		Created: o.Created,
		Attrs:   make(map[AttrID]Value, len(o.Attrs)),
	}
	for id, v := range o.Attrs {
		clone.Attrs[id] = v
	}
	return clone
}

// IsDefaultRoute reports whether a route_entry key has prefix length zero,
// for both IPv4 and IPv6 ("0.0.0.0/0", "::/0") — the vendor ordering
// constraint that the default route must be created before any
// non-default route (§4.7 step 2).
func (k RouteKey) IsDefaultRoute() bool {
	return strings.HasSuffix(k.Prefix, "/0")
}
