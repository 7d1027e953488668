// Package ridtranslate rewrites VID-space attribute values and non-OID
// keys into the RID space a driver.Driver understands. Both the executor
// (spec.md §4.8) and hard reinit (spec.md §4.9) sit at this same VID<->RID
// boundary and share this translation logic rather than each growing its
// own copy.
package ridtranslate

import "github.com/flowbridge/syncd/pkg/sai"

// Resolver looks up the RID a VID currently maps to. Callers pass
// different resolvers depending on context: live RIDOf when the
// referenced object must still be mapped, RIDOfIncludingRemoved when
// translating a remove whose dependents may already be unmapped.
type Resolver func(sai.VID) (sai.RID, bool)

// Value rewrites every VID embedded in v into the RID space the driver
// understands, recursing into ACL payloads. Values carrying no OID pass
// through unchanged.
func Value(v sai.Value, resolve Resolver) (sai.Value, error) {
	switch v.Kind {
	case sai.KindOID:
		if v.OID.IsNull() {
			return v, nil
		}
		rid, ok := resolve(v.OID)
		if !ok {
			return sai.Value{}, &UnresolvedVIDError{VID: v.OID}
		}
		out := v
		out.OID = sai.VID(uint64(rid))
		return out, nil

	case sai.KindOIDList:
		out := v
		out.OIDList = make([]sai.VID, len(v.OIDList))
		for i, vid := range v.OIDList {
			if vid.IsNull() {
				out.OIDList[i] = vid
				continue
			}
			rid, ok := resolve(vid)
			if !ok {
				return sai.Value{}, &UnresolvedVIDError{VID: vid}
			}
			out.OIDList[i] = sai.VID(uint64(rid))
		}
		return out, nil

	case sai.KindACLField, sai.KindACLAction:
		if v.ACLPayload == nil {
			return v, nil
		}
		payload, err := Value(*v.ACLPayload, resolve)
		if err != nil {
			return sai.Value{}, err
		}
		out := v
		out.ACLPayload = &payload
		return out, nil

	default:
		return v, nil
	}
}

// Attrs applies Value across an attribute map, returning a fresh map so
// the in-memory view's own VID-space attributes are never mutated in
// place.
func Attrs(attrs map[sai.AttrID]sai.Value, resolve Resolver) (map[sai.AttrID]sai.Value, error) {
	out := make(map[sai.AttrID]sai.Value, len(attrs))
	for id, v := range attrs {
		tv, err := Value(v, resolve)
		if err != nil {
			return nil, err
		}
		out[id] = tv
	}
	return out, nil
}

// Key rewrites the OIDs embedded in a non-OID entry key (route, neighbor,
// FDB) into RID space. OID-object keys are translated by the caller
// directly, via their own VID, not through this path.
func Key(k sai.Key, resolve Resolver) (sai.Key, error) {
	out := k
	switch k.Type {
	case sai.ObjectTypeRouteEntry:
		if k.Route == nil {
			return out, nil
		}
		rk := *k.Route
		sw, err := resolveVID(rk.SwitchID, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		vr, err := resolveVID(rk.VR, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		rk.SwitchID, rk.VR = sw, vr
		out.Route = &rk

	case sai.ObjectTypeNeighborEntry:
		if k.Neighbor == nil {
			return out, nil
		}
		nk := *k.Neighbor
		sw, err := resolveVID(nk.SwitchID, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		rif, err := resolveVID(nk.RIF, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		nk.SwitchID, nk.RIF = sw, rif
		out.Neighbor = &nk

	case sai.ObjectTypeFDBEntry:
		if k.FDB == nil {
			return out, nil
		}
		fk := *k.FDB
		sw, err := resolveVID(fk.SwitchID, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		bridge, err := resolveVID(fk.BridgeID, resolve)
		if err != nil {
			return sai.Key{}, err
		}
		fk.SwitchID, fk.BridgeID = sw, bridge
		out.FDB = &fk
	}
	return out, nil
}

func resolveVID(vid sai.VID, resolve Resolver) (sai.VID, error) {
	if vid.IsNull() {
		return vid, nil
	}
	rid, ok := resolve(vid)
	if !ok {
		return sai.NullVID, &UnresolvedVIDError{VID: vid}
	}
	return sai.VID(uint64(rid)), nil
}

// UnresolvedVIDError reports a VID with no RID mapping at the time of
// translation — always a programming bug, since every VID an operation
// touches must already be matched or created before it reaches this
// boundary.
type UnresolvedVIDError struct {
	VID sai.VID
}

func (e *UnresolvedVIDError) Error() string {
	return "ridtranslate: no RID mapping for VID " + e.VID.String()
}
