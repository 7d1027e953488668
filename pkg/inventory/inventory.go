// Package inventory discovers the objects a vendor driver creates
// implicitly at switch-create time (spec.md §4.3): default virtual
// router, default trap group, CPU port, default queues and scheduler
// groups, and so on. The reconciler consults it to know which RIDs must
// never be removed and what their attributes looked like immediately
// after creation.
package inventory

import (
	"context"
	"fmt"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/sai"
)

// maxListElements bounds how many entries of an OID-list attribute the
// walk will follow, per spec.md §4.3 ("at least 1024 per list").
const maxListElements = 1024

// laneListAttr is the hardware lane list every discovered port carries.
// It doesn't bear an OID, so the main discovery walk (which only follows
// BearsOID attributes) never reads it; captureLanes does that separately.
const laneListAttr = sai.AttrID("PORT_HW_LANE_LIST")

// LaneMap is the port RID -> hardware lane list table discovery fills in,
// persisted by the caller into kvstore's LANES table (spec.md §6).
type LaneMap map[sai.RID][]uint32

// persistentlyNonRemovableTypes lists object types whose discovered instances
// are never removable outright, independent of whether they match a
// switch-internal default attribute.
var persistentlyNonRemovableTypes = map[sai.ObjectType]bool{
	sai.ObjectTypePort:                 true,
	sai.ObjectTypeQueue:                true,
	sai.ObjectTypeIngressPriorityGroup: true,
	sai.ObjectTypeSchedulerGroup:       true,
	sai.ObjectTypeHash:                 true,
}

// Exclusion identifies one (object type, attribute) pair whose read is
// known to misbehave on some vendor implementation and must be skipped
// during discovery rather than treated as a fatal error.
type Exclusion struct {
	Type sai.ObjectType
	Attr sai.AttrID
}

// Inventory holds the result of one discovery walk for a single switch.
type Inventory struct {
	switchRID sai.RID

	discovered    map[sai.RID]sai.ObjectType
	defaultOIDMap map[sai.RID]map[sai.AttrID]sai.RID

	defaultAttrsByID map[sai.AttrID]sai.RID
	srcMAC           *sai.Value

	lanes LaneMap

	exclusions map[Exclusion]bool
}

// New constructs an empty Inventory. exclusions is the pluggable set of
// (type, attr) reads to skip; callers pass whatever the deployed vendor
// driver is known to mishandle.
func New(exclusions []Exclusion) *Inventory {
	excl := make(map[Exclusion]bool, len(exclusions))
	for _, e := range exclusions {
		excl[e] = true
	}
	return &Inventory{
		discovered:       make(map[sai.RID]sai.ObjectType),
		defaultOIDMap:    make(map[sai.RID]map[sai.AttrID]sai.RID),
		defaultAttrsByID: make(map[sai.AttrID]sai.RID),
		lanes:            make(LaneMap),
		exclusions:       excl,
	}
}

// Discover walks every OID and OID-list attribute reachable from
// switchRID, collecting every RID the driver created implicitly at
// switch-create time.
func (inv *Inventory) Discover(ctx context.Context, drv driver.Driver, switchRID sai.RID) error {
	inv.switchRID = switchRID
	inv.discovered[switchRID] = sai.ObjectTypeSwitch

	if err := inv.captureSwitchInternalDefaults(ctx, drv, switchRID); err != nil {
		return err
	}

	queue := []sai.RID{switchRID}
	for len(queue) > 0 {
		rid := queue[0]
		queue = queue[1:]

		t := inv.discovered[rid]
		if t == sai.ObjectTypePort {
			inv.captureLanes(ctx, drv, rid)
		}
		for _, attrID := range sai.AttrsOf(t) {
			if inv.exclusions[Exclusion{Type: t, Attr: attrID}] {
				continue
			}
			meta, ok := sai.Meta(t, attrID)
			if !ok || !meta.BearsOID {
				continue
			}

			value, err := drv.GetAttribute(ctx, t, rid, attrID)
			if err != nil {
				logger.Debug("inventory: skipping unreadable attribute",
					"type", t.String(), "attr", string(attrID), "err", err)
				continue
			}

			oids := value.OIDs()
			if len(oids) > maxListElements {
				oids = oids[:maxListElements]
			}

			children := make(map[sai.AttrID]sai.RID, len(oids))
			for _, vid := range oids {
				childRID, err := inv.asRID(ctx, drv, vid)
				if err != nil {
					return err
				}
				if childRID == sai.NullRID {
					continue
				}
				children[attrID] = childRID
				if _, seen := inv.discovered[childRID]; seen {
					continue
				}
				childType, err := drv.ObjectTypeOf(ctx, childRID)
				if err != nil {
					return fmt.Errorf("inventory: object type of %s: %w", childRID, err)
				}
				inv.discovered[childRID] = childType
				queue = append(queue, childRID)
			}
			if len(children) > 0 {
				if inv.defaultOIDMap[rid] == nil {
					inv.defaultOIDMap[rid] = make(map[sai.AttrID]sai.RID)
				}
				for attr, childRID := range children {
					inv.defaultOIDMap[rid][attr] = childRID
				}
			}
		}
	}
	return nil
}

// asRID exists because discovery reads attributes straight off the
// driver, which knows nothing of VIDs: a sai.Value returned by
// driver.GetAttribute carries RID bits in its OID field, not a real VID.
// This reinterpretation is confined to the driver boundary; everywhere
// else in the engine sai.Value.OID is a genuine VID.
func (inv *Inventory) asRID(_ context.Context, _ driver.Driver, vid sai.VID) (sai.RID, error) {
	if vid.IsNull() {
		return sai.NullRID, nil
	}
	return sai.RID(uint64(vid)), nil
}

func (inv *Inventory) captureSwitchInternalDefaults(ctx context.Context, drv driver.Driver, switchRID sai.RID) error {
	for _, attrID := range sai.AttrsOf(sai.ObjectTypeSwitch) {
		meta, ok := sai.Meta(sai.ObjectTypeSwitch, attrID)
		if !ok || meta.DefaultKind != sai.DefaultSwitchInternal {
			continue
		}
		value, err := drv.GetAttribute(ctx, sai.ObjectTypeSwitch, switchRID, attrID)
		if err != nil {
			logger.Debug("inventory: switch internal default unreadable", "attr", string(attrID), "err", err)
			continue
		}
		if attrID == sai.AttrSwitchSrcMAC {
			v := value
			inv.srcMAC = &v
			continue
		}
		if meta.BearsOID && value.Kind == sai.KindOID && !value.OID.IsNull() {
			inv.defaultAttrsByID[attrID] = sai.RID(uint64(value.OID))
		}
	}
	return nil
}

// captureLanes reads a discovered port's hardware lane list and records it
// in the lane map, logging and continuing on an unreadable attribute the
// same as the main walk does.
func (inv *Inventory) captureLanes(ctx context.Context, drv driver.Driver, portRID sai.RID) {
	value, err := drv.GetAttribute(ctx, sai.ObjectTypePort, portRID, laneListAttr)
	if err != nil {
		logger.Debug("inventory: lane list unreadable", "port", portRID.String(), "err", err)
		return
	}
	inv.lanes[portRID] = append([]uint32(nil), value.List...)
}

// Lanes returns the port RID -> hardware lane list map collected by the
// most recent Discover call, for the caller to persist into kvstore's
// LANES table.
func (inv *Inventory) Lanes() LaneMap {
	out := make(LaneMap, len(inv.lanes))
	for rid, lanes := range inv.lanes {
		out[rid] = append([]uint32(nil), lanes...)
	}
	return out
}

// IsDiscovered reports whether rid was found during the walk.
func (inv *Inventory) IsDiscovered(rid sai.RID) bool {
	_, ok := inv.discovered[rid]
	return ok
}

// IsNonRemovable implements the non-removable policy from spec.md §4.3: a
// discovered RID is non-removable if it is a recorded switch-internal
// default, or its object type is persistently non-removable.
func (inv *Inventory) IsNonRemovable(rid sai.RID) bool {
	t, ok := inv.discovered[rid]
	if !ok {
		return false
	}
	if persistentlyNonRemovableTypes[t] {
		return true
	}
	for _, defaultRID := range inv.defaultAttrsByID {
		if defaultRID == rid {
			return true
		}
	}
	return false
}

// DefaultOIDMap returns the OID value a given (rid, attr) pair held
// immediately after discovery, used by the reconciler to compute default
// values for default-created objects.
func (inv *Inventory) DefaultOIDMap(rid sai.RID, attr sai.AttrID) (sai.RID, bool) {
	m, ok := inv.defaultOIDMap[rid]
	if !ok {
		return sai.NullRID, false
	}
	r, ok := m[attr]
	return r, ok
}

// DefaultAttrRID returns the discovery-time RID recorded for a switch
// SWITCH_INTERNAL default attribute, e.g. the default virtual router.
func (inv *Inventory) DefaultAttrRID(attr sai.AttrID) (sai.RID, bool) {
	r, ok := inv.defaultAttrsByID[attr]
	return r, ok
}

// Discovered returns every RID found during the walk, along with its
// object type.
func (inv *Inventory) Discovered() map[sai.RID]sai.ObjectType {
	out := make(map[sai.RID]sai.ObjectType, len(inv.discovered))
	for k, v := range inv.discovered {
		out[k] = v
	}
	return out
}
