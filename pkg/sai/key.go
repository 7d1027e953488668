package sai

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
)

// Key is an object's identity: either a single VID (OID object) or one of
// the three composite non-OID keys, each embedding OIDs as struct members
// (§3). Exactly one of the non-OID fields is set when Type.IsOID() is
// false.
type Key struct {
	Type ObjectType

	OID VID // valid when Type.IsOID()

	Route    *RouteKey
	Neighbor *NeighborKey
	FDB      *FDBKey
}

// RouteKey identifies a route_entry: a virtual router plus an IP prefix,
// scoped to a switch.
type RouteKey struct {
	SwitchID VID
	VR       VID
	Prefix   string // "a.b.c.d/p" or the IPv6 equivalent
}

// NeighborKey identifies a neighbor_entry: a router interface plus an IP
// address, scoped to a switch.
type NeighborKey struct {
	SwitchID VID
	RIF      VID
	IP       net.IP
}

// FDBKey identifies an fdb_entry: a MAC address within a bridge (or VLAN,
// depending on BridgeType), scoped to a switch.
type FDBKey struct {
	SwitchID   VID
	BridgeType string // "VLAN" or "BRIDGE"
	BridgeID   VID
	MAC        net.HardwareAddr
}

// OIDsIn returns every OID embedded in a non-OID key's struct members, used
// by the reconciler when recursively processing dependencies (§4.7 step
// 3b) and by the matcher when rewriting a key from temp-space to
// current-space (§4.6).
func (k Key) OIDsIn() []VID {
	switch k.Type {
	case ObjectTypeRouteEntry:
		if k.Route == nil {
			return nil
		}
		return nonNull(k.Route.SwitchID, k.Route.VR)
	case ObjectTypeNeighborEntry:
		if k.Neighbor == nil {
			return nil
		}
		return nonNull(k.Neighbor.SwitchID, k.Neighbor.RIF)
	case ObjectTypeFDBEntry:
		if k.FDB == nil {
			return nil
		}
		return nonNull(k.FDB.SwitchID, k.FDB.BridgeID)
	default:
		return nil
	}
}

func nonNull(vids ...VID) []VID {
	out := make([]VID, 0, len(vids))
	for _, v := range vids {
		if !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}

// rewriteVID rewrites a single VID through f, leaving the null VID alone.
func rewriteVID(v VID, f func(VID) VID) VID {
	if v.IsNull() {
		return v
	}
	return f(v)
}

// Rewrite returns a copy of k with every embedded OID passed through f. Used
// by the matcher to translate a temp-space key into current-space before
// looking it up, and by create_new_from_temp to rebind a cloned key (§4.6,
// §4.7.2).
func (k Key) Rewrite(f func(VID) VID) Key {
	out := k
	switch k.Type {
	case ObjectTypeRouteEntry:
		if k.Route != nil {
			r := *k.Route
			r.SwitchID = rewriteVID(r.SwitchID, f)
			r.VR = rewriteVID(r.VR, f)
			out.Route = &r
		}
	case ObjectTypeNeighborEntry:
		if k.Neighbor != nil {
			n := *k.Neighbor
			n.SwitchID = rewriteVID(n.SwitchID, f)
			n.RIF = rewriteVID(n.RIF, f)
			out.Neighbor = &n
		}
	case ObjectTypeFDBEntry:
		if k.FDB != nil {
			fd := *k.FDB
			fd.SwitchID = rewriteVID(fd.SwitchID, f)
			fd.BridgeID = rewriteVID(fd.BridgeID, f)
			out.FDB = &fd
		}
	}
	return out
}

// routeKeyJSON, neighborKeyJSON, fdbKeyJSON fix the field order the wire
// format uses (§6); encoding/json preserves struct declaration order.
type routeKeyJSON struct {
	Dest     string `json:"dest"`
	SwitchID string `json:"switch_id"`
	VR       string `json:"vr"`
}

type neighborKeyJSON struct {
	RIF      string `json:"rif"`
	IP       string `json:"ip"`
	SwitchID string `json:"switch_id"`
}

type fdbKeyJSON struct {
	MAC        string `json:"mac"`
	BridgeType string `json:"bridge_type"`
	BridgeID   string `json:"bridge_id"`
	SwitchID   string `json:"switch_id"`
}

// Serialize renders the identifier-indexed-map key form: "oid:0x..." for
// OID objects, or the type-specific JSON composite for non-OID entries
// (§6).
func (k Key) Serialize() string {
	switch k.Type {
	case ObjectTypeRouteEntry:
		b, _ := json.Marshal(routeKeyJSON{
			Dest:     k.Route.Prefix,
			SwitchID: k.Route.SwitchID.String(),
			VR:       k.Route.VR.String(),
		})
		return string(b)
	case ObjectTypeNeighborEntry:
		b, _ := json.Marshal(neighborKeyJSON{
			RIF:      k.Neighbor.RIF.String(),
			IP:       k.Neighbor.IP.String(),
			SwitchID: k.Neighbor.SwitchID.String(),
		})
		return string(b)
	case ObjectTypeFDBEntry:
		b, _ := json.Marshal(fdbKeyJSON{
			MAC:        k.FDB.MAC.String(),
			BridgeType: k.FDB.BridgeType,
			BridgeID:   k.FDB.BridgeID.String(),
			SwitchID:   k.FDB.SwitchID.String(),
		})
		return string(b)
	default:
		return k.OID.String()
	}
}

// OIDKey builds the identity of an ordinary OID object.
func OIDKey(t ObjectType, v VID) Key {
	return Key{Type: t, OID: v}
}

// RouteEntryKey builds a route_entry identity.
func RouteEntryKey(switchID, vr VID, prefix string) Key {
	return Key{Type: ObjectTypeRouteEntry, Route: &RouteKey{SwitchID: switchID, VR: vr, Prefix: prefix}}
}

// NeighborEntryKey builds a neighbor_entry identity.
func NeighborEntryKey(switchID, rif VID, ip net.IP) Key {
	return Key{Type: ObjectTypeNeighborEntry, Neighbor: &NeighborKey{SwitchID: switchID, RIF: rif, IP: ip}}
}

// FDBEntryKey builds an fdb_entry identity.
func FDBEntryKey(switchID VID, bridgeType string, bridgeID VID, mac net.HardwareAddr) Key {
	return Key{Type: ObjectTypeFDBEntry, FDB: &FDBKey{SwitchID: switchID, BridgeType: bridgeType, BridgeID: bridgeID, MAC: mac}}
}

// String implements fmt.Stringer for debug output and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s%s", k.Type, k.Serialize())
}

// ParseKey recovers a Key from its String form, used by the recording
// stream's replay tool to reconstruct requests from a recorded line (§6).
// It resolves the object type by matching the longest registered type name
// that prefixes s, since some names prefix others (e.g. "STP" of
// "STP_PORT"), then parses the remainder as either a VID or the
// type-specific JSON composite Serialize produces.
func ParseKey(s string) (Key, error) {
	t, rest, ok := splitTypeName(s)
	if !ok {
		return Key{}, fmt.Errorf("sai: %q does not start with a known object type name", s)
	}

	if t.IsOID() {
		v, err := ParseVID(rest)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse key %q: %w", s, err)
		}
		return OIDKey(t, v), nil
	}

	switch t {
	case ObjectTypeRouteEntry:
		var j routeKeyJSON
		if err := json.Unmarshal([]byte(rest), &j); err != nil {
			return Key{}, fmt.Errorf("sai: parse route_entry key %q: %w", s, err)
		}
		switchID, err := ParseVID(j.SwitchID)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse route_entry switch_id: %w", err)
		}
		vr, err := ParseVID(j.VR)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse route_entry vr: %w", err)
		}
		return RouteEntryKey(switchID, vr, j.Dest), nil
	case ObjectTypeNeighborEntry:
		var j neighborKeyJSON
		if err := json.Unmarshal([]byte(rest), &j); err != nil {
			return Key{}, fmt.Errorf("sai: parse neighbor_entry key %q: %w", s, err)
		}
		switchID, err := ParseVID(j.SwitchID)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse neighbor_entry switch_id: %w", err)
		}
		rif, err := ParseVID(j.RIF)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse neighbor_entry rif: %w", err)
		}
		ip := net.ParseIP(j.IP)
		if ip == nil {
			return Key{}, fmt.Errorf("sai: parse neighbor_entry ip %q", j.IP)
		}
		return NeighborEntryKey(switchID, rif, ip), nil
	case ObjectTypeFDBEntry:
		var j fdbKeyJSON
		if err := json.Unmarshal([]byte(rest), &j); err != nil {
			return Key{}, fmt.Errorf("sai: parse fdb_entry key %q: %w", s, err)
		}
		switchID, err := ParseVID(j.SwitchID)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse fdb_entry switch_id: %w", err)
		}
		bridgeID, err := ParseVID(j.BridgeID)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse fdb_entry bridge_id: %w", err)
		}
		mac, err := net.ParseMAC(j.MAC)
		if err != nil {
			return Key{}, fmt.Errorf("sai: parse fdb_entry mac %q: %w", j.MAC, err)
		}
		return FDBEntryKey(switchID, j.BridgeType, bridgeID, mac), nil
	default:
		return Key{}, fmt.Errorf("sai: unhandled non-OID type %s", t)
	}
}

func splitTypeName(s string) (ObjectType, string, bool) {
	var best ObjectType
	bestLen := -1
	for t, name := range objectTypeNames {
		if t == ObjectTypeNull {
			continue
		}
		if strings.HasPrefix(s, name) && len(name) > bestLen {
			best, bestLen = t, len(name)
		}
	}
	if bestLen < 0 {
		return 0, "", false
	}
	return best, s[bestLen:], true
}
