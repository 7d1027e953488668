package reconcile

import (
	"fmt"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/sai"
)

// finalizeDefaultTrapGroup implements step 4: the default trap group can
// survive reconciliation NOT_PROCESSED, kept alive only by reference
// counts from traps that reference it. If so, reset its CREATE_AND_SET
// attributes to their computed defaults and mark it FINAL.
func (r *Reconciler) finalizeDefaultTrapGroup() error {
	rid, ok := r.defaultTrapGroupRID()
	if !ok {
		return nil
	}
	vid, ok := r.RIDVID.VIDOf(rid)
	if !ok {
		return nil
	}
	obj, ok := r.Current.Get(sai.ObjectTypeHostifTrapGroup, sai.OIDKey(sai.ObjectTypeHostifTrapGroup, vid))
	if !ok || obj.Status != sai.NotProcessed {
		return nil
	}
	return r.bringToDefault(obj)
}

func (r *Reconciler) defaultTrapGroupRID() (sai.RID, bool) {
	if r.Inv == nil {
		return sai.NullRID, false
	}
	return r.Inv.DefaultAttrRID(sai.AttrSwitchDefaultTrapGroup)
}

// destructiveRemoveStubborn implements step 5: for VLAN_MEMBER, STP_PORT,
// and BRIDGE_PORT, remove any NOT_PROCESSED current-view object with
// reference count zero. Works around producers that create these
// implicitly (as side effects of other creates) without ever referencing
// them directly.
func (r *Reconciler) destructiveRemoveStubborn() error {
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		if !t.IsStubbornRemovable() {
			continue
		}
		for _, obj := range r.Current.NotProcessedByType(t) {
			if r.Current.ReferenceCount(obj.VID()) == 0 {
				r.Current.RemoveObject(obj)
			}
		}
	}
	return nil
}

// fixedPointRemoveLoop implements step 6: repeatedly sweep NOT_PROCESSED
// current-view objects, removing or defaulting anything whose refcount
// has dropped to zero (or non-OID entries, unconditionally), until a full
// pass makes no progress.
func (r *Reconciler) fixedPointRemoveLoop() error {
	for {
		progress := false
		for _, obj := range r.Current.AllNotProcessed() {
			eligible := !obj.Type.IsOID() || r.Current.ReferenceCount(obj.VID()) == 0
			if !eligible {
				continue
			}
			if err := r.removeOrDefault(obj); err != nil {
				return err
			}
			progress = true
		}
		if !progress {
			return nil
		}
	}
}

// checkAllFinal implements step 7's post-condition: every object in both
// views must have reached a terminal status.
func (r *Reconciler) checkAllFinal() error {
	for _, obj := range r.Current.AllNotProcessed() {
		logger.Error("reconcile: current-view object left unprocessed", "type", obj.Type.String(), "key", obj.Key.Serialize())
		return ErrUnprocessedObjects
	}
	for _, obj := range r.Temp.AllNotProcessed() {
		logger.Error("reconcile: temp-view object left unprocessed", "type", obj.Type.String(), "key", obj.Key.Serialize())
		return ErrUnprocessedObjects
	}
	return nil
}

// checkViewSizeMatch implements step 8's invariant: after reconciliation,
// both views must agree on total object count (every temp object landed
// somewhere in current, one way or another).
func (r *Reconciler) checkViewSizeMatch() error {
	curCount, tempCount := 0, 0
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		curCount += len(r.Current.ObjectsByType(t))
		tempCount += len(r.Temp.ObjectsByType(t))
	}
	if curCount != tempCount {
		return fmt.Errorf("%w: current=%d temp=%d", ErrViewSizeMismatch, curCount, tempCount)
	}
	return nil
}
