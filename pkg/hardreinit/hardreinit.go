// Package hardreinit runs instead of an initial APPLY when the process
// starts and the persisted database already holds desired state
// (spec.md §4.9): it recreates the switch and every object fresh against
// the driver, recovering VID identity for switch-internal default objects
// from the desired state's own recorded attribute values, then walks the
// remaining desired objects, matching or creating each.
package hardreinit

import (
	"context"
	"fmt"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/inventory"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/ridtranslate"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/flowbridge/syncd/pkg/vid"
)

// HardReinit drives one full recreate-from-desired-state pass.
type HardReinit struct {
	Driver    driver.Driver
	RIDVID    *ridvid.Map
	Allocator *vid.Allocator
	Store     kvstore.Store
}

// New constructs a HardReinit.
func New(drv driver.Driver, ridVid *ridvid.Map, alloc *vid.Allocator, store kvstore.Store) *HardReinit {
	return &HardReinit{Driver: drv, RIDVID: ridVid, Allocator: alloc, Store: store}
}

// Run executes the hard reinit sequence and returns the inventory
// discovered along the way, so the caller can build the reconciler's
// sai.DefaultContext the same way a normal startup would.
func (h *HardReinit) Run(ctx context.Context) (*inventory.Inventory, error) {
	desired, err := asicview.LoadView(ctx, h.Store, kvstore.TableAsicState)
	if err != nil {
		return nil, fmt.Errorf("hardreinit: load desired state: %w", err)
	}

	switches := desired.ObjectsByType(sai.ObjectTypeSwitch)
	if len(switches) != 1 {
		return nil, fmt.Errorf("hardreinit: expected exactly one desired switch, got %d", len(switches))
	}
	desiredSwitch := switches[0]
	switchVID := desiredSwitch.VID()

	switchRID, err := h.createSwitch(ctx, desiredSwitch)
	if err != nil {
		return nil, err
	}

	h.Allocator.MarkSwitchIndexOccupied(switchVID.SwitchIndex())
	if err := h.RIDVID.Insert(ctx, switchVID, switchRID); err != nil {
		return nil, fmt.Errorf("hardreinit: map switch vid: %w", err)
	}

	inv := inventory.New(nil)
	if err := inv.Discover(ctx, h.Driver, switchRID); err != nil {
		return nil, fmt.Errorf("hardreinit: discover switch-internal defaults: %w", err)
	}

	if err := h.recoverDefaultIdentities(ctx, inv, desiredSwitch, desired); err != nil {
		return nil, err
	}

	if err := h.setRemainingSwitchAttrs(ctx, switchRID, desiredSwitch); err != nil {
		return nil, err
	}

	if err := h.walkOrdinaryObjects(ctx, desired); err != nil {
		return nil, err
	}

	for _, fdb := range desired.ObjectsByType(sai.ObjectTypeFDBEntry) {
		if err := h.matchOrCreateEntry(ctx, fdb); err != nil {
			return nil, err
		}
	}
	for _, nbr := range desired.ObjectsByType(sai.ObjectTypeNeighborEntry) {
		if err := h.matchOrCreateEntry(ctx, nbr); err != nil {
			return nil, err
		}
	}

	var defaultRoutes, otherRoutes []*sai.Object
	for _, route := range desired.ObjectsByType(sai.ObjectTypeRouteEntry) {
		if route.Key.Route != nil && route.Key.Route.IsDefaultRoute() {
			defaultRoutes = append(defaultRoutes, route)
		} else {
			otherRoutes = append(otherRoutes, route)
		}
	}
	for _, route := range otherRoutes {
		if err := h.matchOrCreateEntry(ctx, route); err != nil {
			return nil, err
		}
	}
	for _, route := range defaultRoutes {
		if err := h.matchOrCreateEntry(ctx, route); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

// createSwitch filters desired's attributes to MANDATORY_ON_CREATE plus
// CREATE_ONLY, none of which bear OIDs by construction (spec.md §4.9), and
// creates the switch.
func (h *HardReinit) createSwitch(ctx context.Context, desiredSwitch *sai.Object) (sai.RID, error) {
	createAttrs := make(map[sai.AttrID]sai.Value)
	for id, v := range desiredSwitch.Attrs {
		meta, ok := sai.Meta(sai.ObjectTypeSwitch, id)
		if !ok {
			continue
		}
		if meta.Flags.Has(sai.MandatoryOnCreate) || meta.Flags.Has(sai.CreateOnly) {
			createAttrs[id] = v
		}
	}
	rid, err := h.Driver.CreateSwitch(ctx, createAttrs)
	if err != nil {
		return sai.NullRID, fmt.Errorf("hardreinit: create switch: %w", err)
	}
	return rid, nil
}

// recoverDefaultIdentities re-establishes VID identity for the
// switch-internal default objects (default virtual router, default trap
// group, CPU port, ...) that this fresh driver instance just created
// implicitly. The desired switch object's own attribute values, recorded
// the last time this engine ran, name the VID each default role held;
// inv.Discover just found the RID occupying that role now. Matching the
// two re-establishes the mapping across the restart.
//
// Any default role present in the new discovery but absent from desired
// (the user removed the object that referenced it, or desired predates
// this role existing) is pruned: the RID is removed from the driver
// rather than left dangling with no VID and no representation in the
// state this engine is converging toward (spec.md §4.9, "prune ... any
// default-created RID that is not represented in the loaded desired
// state").
func (h *HardReinit) recoverDefaultIdentities(ctx context.Context, inv *inventory.Inventory, desiredSwitch *sai.Object, desired *asicview.View) error {
	for _, attrID := range sai.AttrsOf(sai.ObjectTypeSwitch) {
		meta, ok := sai.Meta(sai.ObjectTypeSwitch, attrID)
		if !ok || meta.DefaultKind != sai.DefaultSwitchInternal || attrID == sai.AttrSwitchSrcMAC {
			continue
		}
		defaultRID, ok := inv.DefaultAttrRID(attrID)
		if !ok {
			continue
		}
		desiredVal, ok := desiredSwitch.Attrs[attrID]
		represented := ok && desiredVal.Kind == sai.KindOID && !desiredVal.OID.IsNull()

		if !represented {
			h.pruneDefaultRole(ctx, attrID, defaultRID)
			continue
		}

		if err := h.RIDVID.Insert(ctx, desiredVal.OID, defaultRID); err != nil {
			return fmt.Errorf("hardreinit: map default role %s: %w", attrID, err)
		}
	}
	return nil
}

// pruneDefaultRole removes a default-created RID the current desired
// state no longer represents (spec.md §4.9: "prune ... any default-
// created RID that is not represented in the loaded desired state").
// Failures are logged rather than propagated: the role is gone from
// desired state either way, and a stuck orphan default object is a
// lesser problem than aborting the whole reinit over it.
func (h *HardReinit) pruneDefaultRole(ctx context.Context, attrID sai.AttrID, rid sai.RID) {
	logger.Debug("hardreinit: default role not represented in desired state, pruning",
		"attr", string(attrID), "rid", rid.String())
	t, err := h.Driver.ObjectTypeOf(ctx, rid)
	if err != nil {
		logger.Debug("hardreinit: prune default role: object type lookup failed", "attr", string(attrID), "err", err)
		return
	}
	if err := h.Driver.RemoveObject(ctx, t, rid); err != nil {
		logger.Debug("hardreinit: prune default role failed", "attr", string(attrID), "err", err)
	}
}

// setRemainingSwitchAttrs applies every desired switch attribute not
// already supplied at create time, as ordinary sets.
func (h *HardReinit) setRemainingSwitchAttrs(ctx context.Context, switchRID sai.RID, desiredSwitch *sai.Object) error {
	for id, v := range desiredSwitch.Attrs {
		meta, ok := sai.Meta(sai.ObjectTypeSwitch, id)
		if !ok || meta.Flags.Has(sai.MandatoryOnCreate) || meta.Flags.Has(sai.CreateOnly) {
			continue
		}
		value, err := ridtranslate.Value(v, h.RIDVID.RIDOf)
		if err != nil {
			return err
		}
		if err := h.Driver.SetAttribute(ctx, sai.ObjectTypeSwitch, switchRID, id, value); err != nil {
			return fmt.Errorf("hardreinit: set switch attr %s: %w", id, err)
		}
	}
	return nil
}

// walkOrdinaryObjects processes every desired OID object other than the
// switch, FDB/neighbor entries, and routes (those are handled in their
// own explicit ordering passes below, matching spec.md §4.9's specified
// order: FDBs, neighbors, non-default routes, default routes last).
func (h *HardReinit) walkOrdinaryObjects(ctx context.Context, desired *asicview.View) error {
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		switch t {
		case sai.ObjectTypeSwitch, sai.ObjectTypeRouteEntry, sai.ObjectTypeNeighborEntry, sai.ObjectTypeFDBEntry:
			continue
		}
		for _, obj := range desired.ObjectsByType(t) {
			if err := h.matchOrCreate(ctx, obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchOrCreate implements the (a)/(b) branch for OID objects: if the
// object's VID already has a RID mapping (recovered above, or a prior
// object in this same walk that another object's attribute happened to
// reference first), only its CREATE_AND_SET attributes are applied as
// sets, skipping CREATE_ONLY ones the object already carries. Otherwise
// the object is created fresh.
func (h *HardReinit) matchOrCreate(ctx context.Context, obj *sai.Object) error {
	vid := obj.VID()
	if rid, ok := h.RIDVID.RIDOf(vid); ok {
		for id, v := range obj.Attrs {
			meta, ok := sai.Meta(obj.Type, id)
			if !ok || !meta.Flags.Has(sai.CreateAndSet) {
				continue
			}
			value, err := ridtranslate.Value(v, h.RIDVID.RIDOf)
			if err != nil {
				return err
			}
			if err := h.Driver.SetAttribute(ctx, obj.Type, rid, id, value); err != nil {
				return fmt.Errorf("hardreinit: set %s on matched %s: %w", id, obj.Type, err)
			}
		}
		return nil
	}

	attrs, err := ridtranslate.Attrs(obj.Attrs, h.RIDVID.RIDOf)
	if err != nil {
		return err
	}
	rid, err := h.Driver.CreateObject(ctx, obj.Type, obj.Key, attrs)
	if err != nil {
		return fmt.Errorf("hardreinit: create %s: %w", obj.Type, err)
	}
	return h.RIDVID.Insert(ctx, vid, rid)
}

// matchOrCreateEntry is matchOrCreate's counterpart for non-OID entries,
// which have no VID of their own to match against existing identity —
// every entry is created fresh, the driver call itself is naturally
// idempotent-by-key from the fake/vendor driver's perspective, and there
// is no matching concept for entries in spec.md §4.9.
func (h *HardReinit) matchOrCreateEntry(ctx context.Context, obj *sai.Object) error {
	key, err := ridtranslate.Key(obj.Key, h.RIDVID.RIDOf)
	if err != nil {
		return err
	}
	attrs, err := ridtranslate.Attrs(obj.Attrs, h.RIDVID.RIDOf)
	if err != nil {
		return err
	}
	if _, err := h.Driver.CreateObject(ctx, obj.Type, key, attrs); err != nil {
		return fmt.Errorf("hardreinit: create entry %s: %w", obj.Type, err)
	}
	return nil
}
