package sai

// AttrID identifies an attribute within an object type's metadata table.
// Producers serialize attribute ids as canonical metadata names (§6); the
// string itself *is* that canonical name, e.g. "SAI_PORT_ATTR_ADMIN_STATE".
type AttrID string

// Flag is a single mutability/role bit from an attribute's metadata. An
// attribute's Flags is the union of these, e.g. CreateAndSet alone, or
// MandatoryOnCreate|CreateOnly together (§3 Attribute).
type Flag uint8

const (
	// CreateOnly attributes may be supplied at create time but never set
	// afterward; a mismatch on an existing object forces recreation.
	CreateOnly Flag = 1 << iota
	// CreateAndSet attributes may be supplied at create time and changed
	// later via a set operation.
	CreateAndSet
	// MandatoryOnCreate attributes must be present when creating the
	// object (independent of whether they are also CreateOnly or
	// CreateAndSet).
	MandatoryOnCreate
	// ReadOnly attributes are never written by this engine; they are
	// only read back from the driver (e.g. during discovery).
	ReadOnly
	// KeyFlag marks attributes that participate in object identity rather
	// than being ordinary mutable state (rare; mirrors vendor metadata that
	// marks a handful of creation parameters as KEY).
	KeyFlag
)

// Has reports whether f includes the given bit.
func (f Flag) Has(bit Flag) bool {
	return f&bit != 0
}

// DefaultKind names how an attribute's default value is computed when the
// reconciler needs to bring an object "back to default" (§3, §4.4).
type DefaultKind uint8

const (
	// DefaultNone means there is no default; the caller must treat the
	// attribute as "cannot bring to default" and may need to recreate.
	DefaultNone DefaultKind = iota
	// DefaultConst means the metadata itself carries the literal default
	// value (only valid for primitive and OID-typed attributes).
	DefaultConst
	// DefaultEmptyList means the default is a zero-length list.
	DefaultEmptyList
	// DefaultAttrValue means the default is read from another attribute,
	// generally on the switch object (e.g. a trap's trap-group attribute
	// defaults to the switch's default trap group).
	DefaultAttrValue
	// DefaultSwitchInternal means the value is one of the handful of
	// switch-internal defaults captured by switch inventory discovery
	// (default virtual router, default trap group, CPU port, switch
	// source MAC).
	DefaultSwitchInternal
)

// AttrMeta is the immutable metadata describing one attribute of one
// object type: its value shape, mutability flags, default-value rule, and
// whether its presence is conditional on another attribute.
type AttrMeta struct {
	ID    AttrID
	Type  ObjectType
	Flags Flag

	// ValueKind constrains what Value.Kind a value for this attribute may
	// carry; see value.go.
	ValueKind ValueKind

	// DefaultKind and DefaultConstValue together describe how to compute
	// a default (§4.4 default_value_for). DefaultAttrValue's referenced
	// attribute is DefaultRefAttr (looked up on the switch object).
	DefaultKind     DefaultKind
	DefaultConstVal *Value
	DefaultRefAttr  AttrID

	// IsConditional mirrors the SAI notion of a conditional attribute:
	// one whose applicability depends on the value of another attribute.
	// The reconciler treats conditional attributes leniently when a
	// default cannot be computed (§4.7.1).
	IsConditional bool

	// BearsOID is true when OIDsIn must be consulted for this attribute's
	// value (OID, OID-list, or ACL field/action types that reference
	// objects). Invariant (§3): for any such attribute, OID extraction
	// must enumerate *all* OIDs it contains.
	BearsOID bool
}
