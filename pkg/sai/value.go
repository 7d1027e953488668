package sai

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the shape carried by a Value. It mirrors the
// attribute-value taxonomy in spec.md §3: primitive, list of primitive,
// OID, list of OIDs, ACL field/action (enable flag + payload), and the
// composite map types (QoS map, tunnel map).
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindS32
	KindMAC
	KindIPv4
	KindIPv6
	KindBytes
	KindU32List
	KindOID
	KindOIDList
	KindACLField
	KindACLAction
	KindQoSMap
	KindTunnelMap
)

// MapEntry is one (key, value) pair of a QoS-map or tunnel-map composite
// attribute value.
type MapEntry struct {
	Key   uint32
	Value uint32
}

// Value is a typed attribute value. Exactly the fields relevant to Kind are
// meaningful; callers must check Kind before reading fields, as with any
// tagged union modeled without an interface hierarchy.
type Value struct {
	Kind ValueKind

	Bool bool
	Num  uint64 // Bool/U8/U16/U32/U64/S32 (S32 stored as its uint64 bit pattern)
	Raw  []byte // MAC (6 bytes), IPv4 (4), IPv6 (16), Bytes (char data)

	List []uint32 // KindU32List

	OID     VID   // KindOID
	OIDList []VID // KindOIDList

	ACLEnabled bool   // KindACLField / KindACLAction
	ACLPayload *Value // KindACLField / KindACLAction

	Map []MapEntry // KindQoSMap / KindTunnelMap
}

// BoolValue, U32Value, U64Value, OIDValue, OIDListValue construct the
// corresponding Value shapes. Only the handful actually produced by the
// engine (discovery, defaults, tests) are provided; producers supply the
// rest via Parse.

func BoolValue(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func U32Value(n uint32) Value  { return Value{Kind: KindU32, Num: uint64(n)} }
func U64Value(n uint64) Value  { return Value{Kind: KindU64, Num: n} }
func S32Value(n int32) Value   { return Value{Kind: KindS32, Num: uint64(uint32(n))} }
func OIDValue(v VID) Value     { return Value{Kind: KindOID, OID: v} }
func OIDListValue(v []VID) Value {
	return Value{Kind: KindOIDList, OIDList: append([]VID(nil), v...)}
}
func EmptyOIDListValue() Value { return Value{Kind: KindOIDList, OIDList: nil} }
func EmptyU32ListValue() Value { return Value{Kind: KindU32List, List: nil} }
func MACValue(mac net.HardwareAddr) Value {
	raw := make([]byte, 6)
	copy(raw, mac)
	return Value{Kind: KindMAC, Raw: raw}
}

// ACLFieldValue and ACLActionValue construct the enable-flag-plus-payload
// shape used by ACL table attributes. A disabled field/action carries no
// OIDs regardless of its payload (§3 invariant).
func ACLFieldValue(enabled bool, payload Value) Value {
	p := payload
	return Value{Kind: KindACLField, ACLEnabled: enabled, ACLPayload: &p}
}
func ACLActionValue(enabled bool, payload Value) Value {
	p := payload
	return Value{Kind: KindACLAction, ACLEnabled: enabled, ACLPayload: &p}
}

// OIDs enumerates every VID referenced by v, honoring the ACL enable flag:
// a disabled ACL field/action contributes no OIDs even if its payload is
// OID-shaped (§3 invariant, §4.4).
func (v Value) OIDs() []VID {
	switch v.Kind {
	case KindOID:
		if v.OID.IsNull() {
			return nil
		}
		return []VID{v.OID}
	case KindOIDList:
		out := make([]VID, 0, len(v.OIDList))
		for _, o := range v.OIDList {
			if !o.IsNull() {
				out = append(out, o)
			}
		}
		return out
	case KindACLField, KindACLAction:
		if !v.ACLEnabled || v.ACLPayload == nil {
			return nil
		}
		return v.ACLPayload.OIDs()
	default:
		return nil
	}
}

// Equal is structural equality within a single view: same serialized form.
// Cross-view OID comparison (where a temp-space VID and a current-space VID
// may denote the same real object) is a distinct notion implemented by
// pkg/match, which rewrites OIDs before calling this method.
func (a Value) Equal(b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindU8, KindU16, KindU32, KindU64, KindS32:
		return a.Num == b.Num
	case KindMAC, KindIPv4, KindIPv6, KindBytes:
		return bytes.Equal(a.Raw, b.Raw)
	case KindU32List:
		return equalU32List(a.List, b.List)
	case KindOID:
		return a.OID == b.OID
	case KindOIDList:
		return equalOIDList(a.OIDList, b.OIDList)
	case KindACLField, KindACLAction:
		if a.ACLEnabled != b.ACLEnabled {
			return false
		}
		if !a.ACLEnabled {
			// disabled ACL field/action: payload is immaterial
			return true
		}
		if a.ACLPayload == nil || b.ACLPayload == nil {
			return a.ACLPayload == b.ACLPayload
		}
		return a.ACLPayload.Equal(*b.ACLPayload)
	case KindQoSMap, KindTunnelMap:
		return equalMap(a.Map, b.Map)
	default:
		return false
	}
}

func equalU32List(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalOIDList compares two OID lists: same length, element-wise equal at
// each index — order is significant (§4.6).
func equalOIDList(a, b []VID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalMap(a, b []MapEntry) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]MapEntry(nil), a...)
	sb := append([]MapEntry(nil), b...)
	sort.Slice(sa, func(i, j int) bool { return sa[i].Key < sa[j].Key })
	sort.Slice(sb, func(i, j int) bool { return sb[i].Key < sb[j].Key })
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// Serialize renders the per-type textual form specified by §6.
func (v Value) Serialize() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindU8, KindU16, KindU32, KindU64:
		return fmt.Sprintf("%d", v.Num)
	case KindS32:
		return fmt.Sprintf("%d", int32(uint32(v.Num)))
	case KindMAC:
		return net.HardwareAddr(v.Raw).String()
	case KindIPv4:
		return net.IP(v.Raw).String()
	case KindIPv6:
		return net.IP(v.Raw).String()
	case KindBytes:
		return string(v.Raw)
	case KindU32List:
		parts := make([]string, len(v.List))
		for i, n := range v.List {
			parts[i] = fmt.Sprintf("%d", n)
		}
		return fmt.Sprintf("%d:%s", len(v.List), strings.Join(parts, ","))
	case KindOID:
		return v.OID.String()
	case KindOIDList:
		parts := make([]string, len(v.OIDList))
		for i, o := range v.OIDList {
			parts[i] = o.String()
		}
		return fmt.Sprintf("%d:%s", len(v.OIDList), strings.Join(parts, ","))
	case KindACLField, KindACLAction:
		if !v.ACLEnabled {
			return "disabled"
		}
		payload := ""
		if v.ACLPayload != nil {
			payload = v.ACLPayload.Serialize()
		}
		return "enabled:" + payload
	case KindQoSMap, KindTunnelMap:
		parts := make([]string, len(v.Map))
		for i, e := range v.Map {
			parts[i] = fmt.Sprintf("%d:%d", e.Key, e.Value)
		}
		return fmt.Sprintf("%d:%s", len(v.Map), strings.Join(parts, ","))
	default:
		return ""
	}
}

// Parse builds a Value of the given kind from the textual form the
// recording stream writes (the inverse of pkg/recorder's FormatValue).
// Producers supply arbitrary attribute values this way when replaying a
// recorded session, since recorded text alone doesn't carry a Value's Kind
// tag; callers look it up via Meta before calling Parse.
func Parse(kind ValueKind, s string) (Value, error) {
	switch kind {
	case KindBool:
		switch s {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		default:
			return Value{}, fmt.Errorf("sai: invalid bool %q", s)
		}
	case KindU8, KindU16, KindU32, KindU64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid %s %q: %w", kindName(kind), s, err)
		}
		return Value{Kind: kind, Num: n}, nil
	case KindS32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid s32 %q: %w", s, err)
		}
		return S32Value(int32(n)), nil
	case KindMAC:
		mac, err := net.ParseMAC(s)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid mac %q: %w", s, err)
		}
		return MACValue(mac), nil
	case KindIPv4, KindIPv6:
		ip := net.ParseIP(s)
		if ip == nil {
			return Value{}, fmt.Errorf("sai: invalid ip %q", s)
		}
		raw := ip.To16()
		if kind == KindIPv4 {
			if v4 := ip.To4(); v4 != nil {
				raw = v4
			}
		}
		return Value{Kind: kind, Raw: raw}, nil
	case KindBytes:
		raw, err := hex.DecodeString(s)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid hex bytes %q: %w", s, err)
		}
		return Value{Kind: KindBytes, Raw: raw}, nil
	case KindU32List:
		list, err := parseU32List(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindU32List, List: list}, nil
	case KindOID:
		v, err := ParseVID(s)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid oid %q: %w", s, err)
		}
		return OIDValue(v), nil
	case KindOIDList:
		if s == "" {
			return EmptyOIDListValue(), nil
		}
		parts := strings.Split(s, ",")
		vids := make([]VID, len(parts))
		for i, p := range parts {
			v, err := ParseVID(p)
			if err != nil {
				return Value{}, fmt.Errorf("sai: invalid oid list %q: %w", s, err)
			}
			vids[i] = v
		}
		return OIDListValue(vids), nil
	case KindACLField, KindACLAction:
		return parseACLValue(kind, s)
	case KindQoSMap, KindTunnelMap:
		entries, err := parseMapEntries(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Map: entries}, nil
	default:
		return Value{}, fmt.Errorf("sai: unknown value kind %d", kind)
	}
}

func kindName(k ValueKind) string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	default:
		return "uint"
	}
}

func parseU32List(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sai: invalid u32 list %q: %w", s, err)
		}
		out[i] = uint32(n)
	}
	return out, nil
}

func parseMapEntries(s string) ([]MapEntry, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]MapEntry, len(parts))
	for i, p := range parts {
		k, v, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("sai: invalid map entry %q", p)
		}
		kn, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sai: invalid map entry key %q: %w", p, err)
		}
		vn, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sai: invalid map entry value %q: %w", p, err)
		}
		out[i] = MapEntry{Key: uint32(kn), Value: uint32(vn)}
	}
	return out, nil
}

// parseACLValue inverts FormatValue's "%t:%s" ACL field/action rendering.
// The payload's own kind isn't recorded in the text, so a disabled
// field/action (the common case once an ACL entry is torn down) parses to
// an empty payload, and an enabled one is sniffed: an OID-shaped payload
// ("oid:0x..."), else a dotted/colon IP, else a bare integer.
func parseACLValue(kind ValueKind, s string) (Value, error) {
	enabledStr, payloadStr, ok := strings.Cut(s, ":")
	if !ok {
		return Value{}, fmt.Errorf("sai: invalid acl value %q", s)
	}
	enabled := enabledStr == "true"

	var payload Value
	switch {
	case payloadStr == "":
		payload = Value{}
	case strings.HasPrefix(payloadStr, "oid:"):
		v, err := ParseVID(payloadStr)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid acl payload %q: %w", payloadStr, err)
		}
		payload = OIDValue(v)
	case strings.Contains(payloadStr, "."), strings.Contains(payloadStr, ":"):
		ip := net.ParseIP(payloadStr)
		if ip == nil {
			return Value{}, fmt.Errorf("sai: invalid acl payload ip %q", payloadStr)
		}
		payload = Value{Kind: KindIPv4, Raw: ip.To4()}
	default:
		n, err := strconv.ParseUint(payloadStr, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("sai: invalid acl payload %q: %w", payloadStr, err)
		}
		payload = U32Value(uint32(n))
	}

	if kind == KindACLAction {
		return ACLActionValue(enabled, payload), nil
	}
	return ACLFieldValue(enabled, payload), nil
}

// encodeUint64 / decodeUint64 are small binary-encoding helpers used by
// pkg/kvstore when persisting counters and values; kept alongside Value
// since they encode the same primitives.
func encodeUint64(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("sai: expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
