package sai

import "sync"

var (
	metaMu sync.RWMutex
	table  = make(map[ObjectType]map[AttrID]AttrMeta)
)

// register adds (or overwrites, for test fixtures) one attribute's metadata.
func register(m AttrMeta) {
	metaMu.Lock()
	defer metaMu.Unlock()
	perType, ok := table[m.Type]
	if !ok {
		perType = make(map[AttrID]AttrMeta)
		table[m.Type] = perType
	}
	perType[m.ID] = m
}

// Meta looks up an attribute's metadata by object type and id.
func Meta(t ObjectType, id AttrID) (AttrMeta, bool) {
	metaMu.RLock()
	defer metaMu.RUnlock()
	perType, ok := table[t]
	if !ok {
		return AttrMeta{}, false
	}
	m, ok := perType[id]
	return m, ok
}

// AttrsOf returns every known attribute id for an object type, in no
// particular order; callers that need determinism should sort.
func AttrsOf(t ObjectType) []AttrID {
	metaMu.RLock()
	defer metaMu.RUnlock()
	perType := table[t]
	out := make([]AttrID, 0, len(perType))
	for id := range perType {
		out = append(out, id)
	}
	return out
}

// Switch-internal default attribute ids, looked up by inventory discovery
// and by DefaultAttrValue resolution (§4.3, §4.4).
const (
	AttrSwitchSrcMAC           AttrID = "SWITCH_SRC_MAC_ADDRESS"
	AttrSwitchDefaultVR        AttrID = "SWITCH_DEFAULT_VIRTUAL_ROUTER_ID"
	AttrSwitchDefaultTrapGroup AttrID = "SWITCH_DEFAULT_TRAP_GROUP"
	AttrSwitchCPUPort          AttrID = "SWITCH_CPU_PORT"
	AttrSwitchHardwareInfo     AttrID = "SWITCH_HARDWARE_INFO"
)

func init() {
	registerSwitch()
	registerPort()
	registerRouting()
	registerBridging()
	registerACL()
	registerQueueing()
	registerHostif()
}

func registerSwitch() {
	t := ObjectTypeSwitch
	register(AttrMeta{ID: AttrSwitchHardwareInfo, Type: t, Flags: CreateOnly, ValueKind: KindBytes})
	register(AttrMeta{ID: AttrSwitchSrcMAC, Type: t, Flags: CreateAndSet, ValueKind: KindMAC, DefaultKind: DefaultSwitchInternal})
	register(AttrMeta{ID: AttrSwitchDefaultVR, Type: t, Flags: ReadOnly, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultSwitchInternal})
	register(AttrMeta{ID: AttrSwitchDefaultTrapGroup, Type: t, Flags: ReadOnly, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultSwitchInternal})
	register(AttrMeta{ID: AttrSwitchCPUPort, Type: t, Flags: ReadOnly, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultSwitchInternal})
}

func registerPort() {
	t := ObjectTypePort
	register(AttrMeta{ID: "PORT_ADMIN_STATE", Type: t, Flags: CreateAndSet, ValueKind: KindBool,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(BoolValue(false))})
	register(AttrMeta{ID: "PORT_MTU", Type: t, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(1514))})
	register(AttrMeta{ID: "PORT_HW_LANE_LIST", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32List})
}

func registerRouting() {
	register(AttrMeta{ID: "VIRTUAL_ROUTER_ADMIN_V4_STATE", Type: ObjectTypeVirtualRouter, Flags: CreateAndSet, ValueKind: KindBool,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(BoolValue(true))})
	register(AttrMeta{ID: "VIRTUAL_ROUTER_SRC_MAC_ADDRESS", Type: ObjectTypeVirtualRouter, Flags: CreateAndSet, ValueKind: KindMAC,
		DefaultKind: DefaultSwitchInternal})

	t := ObjectTypeRouterInterface
	register(AttrMeta{ID: "ROUTER_INTERFACE_VIRTUAL_ROUTER_ID", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "ROUTER_INTERFACE_TYPE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "ROUTER_INTERFACE_PORT_ID", Type: t, Flags: CreateOnly, ValueKind: KindOID, BearsOID: true, IsConditional: true})
	register(AttrMeta{ID: "ROUTER_INTERFACE_MTU", Type: t, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(1514))})

	t = ObjectTypeNextHop
	register(AttrMeta{ID: "NEXT_HOP_TYPE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "NEXT_HOP_IP", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindIPv4})
	register(AttrMeta{ID: "NEXT_HOP_ROUTER_INTERFACE_ID", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})

	t = ObjectTypeNextHopGroup
	register(AttrMeta{ID: "NEXT_HOP_GROUP_TYPE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "NEXT_HOP_GROUP_NEXT_HOP_MEMBER_LIST", Type: t, Flags: ReadOnly, ValueKind: KindOIDList, BearsOID: true})

	register(AttrMeta{ID: "ROUTE_ENTRY_NEXT_HOP_ID", Type: ObjectTypeRouteEntry, Flags: CreateAndSet, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "ROUTE_ENTRY_PACKET_ACTION", Type: ObjectTypeRouteEntry, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(0))})

	register(AttrMeta{ID: "NEIGHBOR_ENTRY_DST_MAC_ADDRESS", Type: ObjectTypeNeighborEntry, Flags: CreateAndSet | MandatoryOnCreate, ValueKind: KindMAC})
}

func registerBridging() {
	register(AttrMeta{ID: "FDB_ENTRY_TYPE", Type: ObjectTypeFDBEntry, Flags: CreateAndSet | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "FDB_ENTRY_BRIDGE_PORT_ID", Type: ObjectTypeFDBEntry, Flags: CreateAndSet, ValueKind: KindOID, BearsOID: true})

	register(AttrMeta{ID: "VLAN_MEMBER_VLAN_ID", Type: ObjectTypeVLANMember, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "VLAN_MEMBER_BRIDGE_PORT_ID", Type: ObjectTypeVLANMember, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})

	register(AttrMeta{ID: "BRIDGE_PORT_PORT_ID", Type: ObjectTypeBridgePort, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "BRIDGE_PORT_BRIDGE_ID", Type: ObjectTypeBridgePort, Flags: CreateOnly, ValueKind: KindOID, BearsOID: true, IsConditional: true})

	register(AttrMeta{ID: "STP_PORT_STP", Type: ObjectTypeSTPPort, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "STP_PORT_BRIDGE_PORT", Type: ObjectTypeSTPPort, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "STP_PORT_STATE", Type: ObjectTypeSTPPort, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(0))})

	register(AttrMeta{ID: "LAG_MEMBER_LAG_ID", Type: ObjectTypeLAGMember, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "LAG_MEMBER_PORT_ID", Type: ObjectTypeLAGMember, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
}

func registerACL() {
	t := ObjectTypeACLTable
	register(AttrMeta{ID: "ACL_TABLE_ACL_STAGE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "ACL_TABLE_SIZE", Type: t, Flags: CreateOnly, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(0))})

	t = ObjectTypeACLEntry
	register(AttrMeta{ID: "ACL_ENTRY_TABLE_ID", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "ACL_ENTRY_PRIORITY", Type: t, Flags: CreateAndSet | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "ACL_ENTRY_FIELD_SRC_IP", Type: t, Flags: CreateAndSet, ValueKind: KindACLField,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(ACLFieldValue(false, Value{}))})
	register(AttrMeta{ID: "ACL_ENTRY_ACTION_PACKET_ACTION", Type: t, Flags: CreateAndSet, ValueKind: KindACLAction,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(ACLActionValue(false, Value{}))})
	register(AttrMeta{ID: "ACL_ENTRY_ACTION_REDIRECT", Type: t, Flags: CreateAndSet, ValueKind: KindACLAction, BearsOID: true,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(ACLActionValue(false, Value{}))})
}

func registerQueueing() {
	t := ObjectTypeQueue
	register(AttrMeta{ID: "QUEUE_TYPE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "QUEUE_INDEX", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "QUEUE_PORT", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "QUEUE_SCHEDULER_PROFILE_ID", Type: t, Flags: CreateAndSet, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultNone})

	t = ObjectTypeSchedulerGroup
	register(AttrMeta{ID: "SCHEDULER_GROUP_PORT_ID", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "SCHEDULER_GROUP_LEVEL", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "SCHEDULER_GROUP_SCHEDULER_PROFILE_ID", Type: t, Flags: CreateAndSet | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultNone, IsConditional: true})

	t = ObjectTypeScheduler
	register(AttrMeta{ID: "SCHEDULER_TYPE", Type: t, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(0))})
	register(AttrMeta{ID: "SCHEDULER_WEIGHT", Type: t, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(1))})

	register(AttrMeta{ID: "INGRESS_PRIORITY_GROUP_PORT", Type: ObjectTypeIngressPriorityGroup, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindOID, BearsOID: true})
	register(AttrMeta{ID: "INGRESS_PRIORITY_GROUP_BUFFER_PROFILE", Type: ObjectTypeIngressPriorityGroup, Flags: CreateAndSet, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(OIDValue(NullVID))})

	register(AttrMeta{ID: "HASH_NATIVE_FIELD_LIST", Type: ObjectTypeHash, Flags: CreateAndSet, ValueKind: KindU32List,
		DefaultKind: DefaultEmptyList})
}

func registerHostif() {
	t := ObjectTypeHostifTrapGroup
	register(AttrMeta{ID: "TRAP_GROUP_QUEUE", Type: t, Flags: CreateAndSet, ValueKind: KindU32,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U32Value(0))})
	register(AttrMeta{ID: "TRAP_GROUP_ADMIN_STATE", Type: t, Flags: CreateAndSet, ValueKind: KindBool,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(BoolValue(true))})

	t = ObjectTypeHostifTrap
	register(AttrMeta{ID: "TRAP_TYPE", Type: t, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "TRAP_TRAP_GROUP", Type: t, Flags: CreateAndSet, ValueKind: KindOID, BearsOID: true,
		DefaultKind: DefaultAttrValue, DefaultRefAttr: AttrSwitchDefaultTrapGroup})

	register(AttrMeta{ID: "POLICER_MODE", Type: ObjectTypePolicer, Flags: CreateOnly | MandatoryOnCreate, ValueKind: KindU32})
	register(AttrMeta{ID: "POLICER_CBS", Type: ObjectTypePolicer, Flags: CreateAndSet, ValueKind: KindU64,
		DefaultKind: DefaultConst, DefaultConstVal: boolPtr(U64Value(0))})
}

func boolPtr(v Value) *Value { return &v }
