package sai

// DefaultContext supplies the view-scoped lookups default_value_for needs:
// the current value of a switch attribute (for DefaultAttrValue) and the
// source MAC captured at discovery (for the DefaultSwitchInternal case that
// §4.4 calls out by name). Implementations are provided by pkg/inventory,
// which owns the discovery snapshot.
type DefaultContext interface {
	// SwitchAttr returns the switch object's current value for id, already
	// expressed in the caller's VID space.
	SwitchAttr(id AttrID) (Value, bool)

	// InventorySrcMAC returns SWITCH_SRC_MAC_ADDRESS as captured during
	// switch inventory discovery (§4.3), used to substitute for a missing
	// default when the driver doesn't report one directly.
	InventorySrcMAC() (Value, bool)
}

// DefaultValueFor implements §4.4's default_value_for: given an attribute's
// metadata, compute its default value, or report that none is available
// (NONE — caller must treat the attribute as "cannot bring to default").
func DefaultValueFor(meta AttrMeta, ctx DefaultContext) (Value, bool) {
	switch meta.DefaultKind {
	case DefaultEmptyList:
		switch meta.ValueKind {
		case KindOIDList:
			return EmptyOIDListValue(), true
		case KindU32List:
			return EmptyU32ListValue(), true
		default:
			return Value{}, false
		}

	case DefaultConst:
		if meta.DefaultConstVal == nil {
			return Value{}, false
		}
		switch meta.ValueKind {
		case KindOID, KindBool, KindU8, KindU16, KindU32, KindU64, KindS32,
			KindMAC, KindIPv4, KindIPv6, KindBytes:
			return *meta.DefaultConstVal, true
		default:
			// CONST is only valid for primitive and OID types (§4.4).
			return Value{}, false
		}

	case DefaultAttrValue:
		if ctx == nil || meta.DefaultRefAttr == "" {
			return Value{}, false
		}
		return ctx.SwitchAttr(meta.DefaultRefAttr)

	case DefaultSwitchInternal:
		if meta.ID == AttrSwitchSrcMAC && ctx != nil {
			return ctx.InventorySrcMAC()
		}
		if ctx != nil {
			return ctx.SwitchAttr(meta.ID)
		}
		return Value{}, false

	default: // DefaultNone
		return Value{}, false
	}
}
