package recorder

import (
	"encoding/hex"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/flowbridge/syncd/pkg/sai"
)

// FormatAttr renders a single attribute as the "name=value" textual form
// spec.md §6 specifies. Canonical attribute ids already carry their own
// name as their string form (pkg/sai.AttrID); only the value needs
// per-kind rendering.
func FormatAttr(id sai.AttrID, v sai.Value) string {
	return string(id) + "=" + FormatValue(v)
}

// FormatAttrs renders a full attribute map, sorted by attribute name so
// two identical maps always produce byte-identical recording lines
// (useful for diffing recordings and for replay determinism).
func FormatAttrs(attrs map[sai.AttrID]sai.Value) string {
	ids := make([]string, 0, len(attrs))
	for id := range attrs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = FormatAttr(sai.AttrID(id), attrs[sai.AttrID(id)])
	}
	return strings.Join(parts, "|")
}

// FormatValue renders v in the per-kind textual format spec.md §6
// describes for attribute values.
func FormatValue(v sai.Value) string {
	switch v.Kind {
	case sai.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case sai.KindU8, sai.KindU16, sai.KindU32, sai.KindU64:
		return strconv.FormatUint(v.Num, 10)
	case sai.KindS32:
		return strconv.FormatInt(int64(int32(v.Num)), 10)
	case sai.KindMAC:
		return net.HardwareAddr(v.Raw).String()
	case sai.KindIPv4, sai.KindIPv6:
		return net.IP(v.Raw).String()
	case sai.KindBytes:
		return hex.EncodeToString(v.Raw)
	case sai.KindU32List:
		parts := make([]string, len(v.List))
		for i, n := range v.List {
			parts[i] = strconv.FormatUint(uint64(n), 10)
		}
		return strings.Join(parts, ",")
	case sai.KindOID:
		return v.OID.String()
	case sai.KindOIDList:
		parts := make([]string, len(v.OIDList))
		for i, o := range v.OIDList {
			parts[i] = o.String()
		}
		return strings.Join(parts, ",")
	case sai.KindACLField, sai.KindACLAction:
		payload := ""
		if v.ACLPayload != nil {
			payload = FormatValue(*v.ACLPayload)
		}
		return fmt.Sprintf("%t:%s", v.ACLEnabled, payload)
	case sai.KindQoSMap, sai.KindTunnelMap:
		parts := make([]string, len(v.Map))
		for i, e := range v.Map {
			parts[i] = fmt.Sprintf("%d:%d", e.Key, e.Value)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// ParseAttr is the inverse of FormatAttr: it splits a single "name=value"
// pair and parses the value using the attribute's registered Kind for ot,
// used by replay to rebuild a create/set request from a recorded line.
// Unregistered attribute ids (fixtures, attributes added by a newer
// producer than this engine's metadata table) parse as raw bytes rather
// than failing outright, so replay degrades gracefully instead of
// aborting on an unknown name.
func ParseAttr(ot sai.ObjectType, pair string) (sai.AttrID, sai.Value, error) {
	name, raw, ok := strings.Cut(pair, "=")
	if !ok {
		return "", sai.Value{}, fmt.Errorf("recorder: invalid attribute pair %q", pair)
	}
	id := sai.AttrID(name)

	meta, ok := sai.Meta(ot, id)
	if !ok {
		return id, sai.Value{Kind: sai.KindBytes, Raw: []byte(raw)}, nil
	}
	v, err := sai.Parse(meta.ValueKind, raw)
	if err != nil {
		return "", sai.Value{}, fmt.Errorf("recorder: parse attribute %s: %w", name, err)
	}
	return id, v, nil
}

// ParseAttrs is the inverse of FormatAttrs: it splits the "|"-joined
// "name=value" pairs FormatAttrs produces and parses each one for ot.
func ParseAttrs(ot sai.ObjectType, s string) (map[sai.AttrID]sai.Value, error) {
	out := make(map[sai.AttrID]sai.Value)
	if s == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, "|") {
		id, v, err := ParseAttr(ot, pair)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}
