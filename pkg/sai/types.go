// Package sai models the virtual switch abstraction's object system: object
// types, virtual/real identifiers, typed attributes, and the objects that
// carry them. It has no knowledge of persistence, matching, or
// reconciliation — those live in pkg/vid, pkg/ridvid, pkg/match, and
// pkg/reconcile, all built on top of the types defined here.
package sai

import "fmt"

// ObjectType identifies the kind of a SAI object. It is encoded directly
// into the object-type field of a VID (see VID, below), so its numeric
// values are part of the wire contract between this engine and the
// producer: never renumber an existing constant.
type ObjectType uint8

const (
	ObjectTypeNull ObjectType = iota
	ObjectTypeSwitch
	ObjectTypePort
	ObjectTypeVirtualRouter
	ObjectTypeRouterInterface
	ObjectTypeNextHop
	ObjectTypeNextHopGroup
	ObjectTypeNeighborEntry
	ObjectTypeRouteEntry
	ObjectTypeFDBEntry
	ObjectTypeVLAN
	ObjectTypeVLANMember
	ObjectTypeBridge
	ObjectTypeBridgePort
	ObjectTypeSTP
	ObjectTypeSTPPort
	ObjectTypeLAG
	ObjectTypeLAGMember
	ObjectTypeACLTable
	ObjectTypeACLEntry
	ObjectTypeACLCounter
	ObjectTypeQueue
	ObjectTypeScheduler
	ObjectTypeSchedulerGroup
	ObjectTypeIngressPriorityGroup
	ObjectTypeHash
	ObjectTypeHostifTrapGroup
	ObjectTypeHostifTrap
	ObjectTypePolicer
	ObjectTypeBufferPool
	ObjectTypeBufferProfile
	ObjectTypeTunnel
	ObjectTypeTunnelMap

	objectTypeSentinel // must stay last; used to size lookup tables
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeNull:                 "NULL",
	ObjectTypeSwitch:               "SWITCH",
	ObjectTypePort:                 "PORT",
	ObjectTypeVirtualRouter:        "VIRTUAL_ROUTER",
	ObjectTypeRouterInterface:      "ROUTER_INTERFACE",
	ObjectTypeNextHop:              "NEXT_HOP",
	ObjectTypeNextHopGroup:         "NEXT_HOP_GROUP",
	ObjectTypeNeighborEntry:        "NEIGHBOR_ENTRY",
	ObjectTypeRouteEntry:           "ROUTE_ENTRY",
	ObjectTypeFDBEntry:             "FDB_ENTRY",
	ObjectTypeVLAN:                 "VLAN",
	ObjectTypeVLANMember:           "VLAN_MEMBER",
	ObjectTypeBridge:               "BRIDGE",
	ObjectTypeBridgePort:           "BRIDGE_PORT",
	ObjectTypeSTP:                  "STP",
	ObjectTypeSTPPort:              "STP_PORT",
	ObjectTypeLAG:                  "LAG",
	ObjectTypeLAGMember:            "LAG_MEMBER",
	ObjectTypeACLTable:             "ACL_TABLE",
	ObjectTypeACLEntry:             "ACL_ENTRY",
	ObjectTypeACLCounter:           "ACL_COUNTER",
	ObjectTypeQueue:                "QUEUE",
	ObjectTypeScheduler:            "SCHEDULER",
	ObjectTypeSchedulerGroup:       "SCHEDULER_GROUP",
	ObjectTypeIngressPriorityGroup: "INGRESS_PRIORITY_GROUP",
	ObjectTypeHash:                 "HASH",
	ObjectTypeHostifTrapGroup:      "HOSTIF_TRAP_GROUP",
	ObjectTypeHostifTrap:           "HOSTIF_TRAP",
	ObjectTypePolicer:              "POLICER",
	ObjectTypeBufferPool:           "BUFFER_POOL",
	ObjectTypeBufferProfile:        "BUFFER_PROFILE",
	ObjectTypeTunnel:               "TUNNEL",
	ObjectTypeTunnelMap:            "TUNNEL_MAP",
}

// String renders the canonical metadata name for the type, e.g. "PORT".
// Producers and dumps use this name, never the numeric value (§6).
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// IsValid reports whether t decodes to a known, non-null object type, the
// round-trip guarantee required by invariant P1.
func (t ObjectType) IsValid() bool {
	_, ok := objectTypeNames[t]
	return ok && t != ObjectTypeNull
}

// nonOIDTypes is the fixed set of object types whose identity is a composite
// key embedding other OIDs rather than a single VID (§3, "Non-OID entry").
var nonOIDTypes = map[ObjectType]bool{
	ObjectTypeNeighborEntry: true,
	ObjectTypeRouteEntry:    true,
	ObjectTypeFDBEntry:      true,
}

// IsOID reports whether objects of this type are identified by a single VID
// as opposed to a composite struct key.
func (t ObjectType) IsOID() bool {
	return !nonOIDTypes[t]
}

// persistentlyNonRemovable is the fixed list of object types that, when
// discovered at switch-create time, are never removable regardless of
// whether they match a switch internal-default attribute value (§4.3).
var persistentlyNonRemovable = map[ObjectType]bool{
	ObjectTypePort:                 true,
	ObjectTypeQueue:                true,
	ObjectTypeIngressPriorityGroup: true,
	ObjectTypeSchedulerGroup:       true,
	ObjectTypeHash:                 true,
}

// IsPersistentlyNonRemovable reports whether t is in the fixed list of
// types that discovery always marks non-removable (§4.3 policy clause b).
func (t ObjectType) IsPersistentlyNonRemovable() bool {
	return persistentlyNonRemovable[t]
}

// stubbornRemovableTypes names the types swept by the reconciler's
// destructive-remove phase (§4.7 step 5) to work around producers that
// never reference them.
var stubbornRemovableTypes = map[ObjectType]bool{
	ObjectTypeVLANMember: true,
	ObjectTypeSTPPort:    true,
	ObjectTypeBridgePort: true,
}

// IsStubbornRemovable reports whether t is swept by the reconciler's
// destructive-remove phase.
func (t ObjectType) IsStubbornRemovable() bool {
	return stubbornRemovableTypes[t]
}
