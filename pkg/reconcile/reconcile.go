// Package reconcile implements the view-transition algorithm (spec.md
// §4.7): the core of this engine. Given a current view (what's
// programmed into the ASIC) and a temporary view (what the producer
// wants), it classifies every temp object, decides update-in-place vs.
// remove-and-create vs. bring-to-default, mutates both views, and leaves
// behind the ASIC operations the executor must run to make it so.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"time"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/inventory"
	"github.com/flowbridge/syncd/pkg/match"
	"github.com/flowbridge/syncd/pkg/metrics"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
)

var (
	// ErrUnprocessedObjects is the post-condition failure from step 7:
	// some object in either view never reached a terminal status.
	ErrUnprocessedObjects = errors.New("reconcile: UNPROCESSED_OBJECTS")

	// ErrViewSizeMismatch is the invariant failure from step 8: the
	// resulting maps disagree on object count between views.
	ErrViewSizeMismatch = errors.New("reconcile: VIEW_SIZE_MISMATCH")

	// ErrSanity covers the step-1 precondition checks.
	ErrSanity = errors.New("reconcile: sanity check failed")

	// ErrSwitchRemoveUnsupported: remove-switch mid-apply is fatal, not
	// a recoverable reconciliation outcome (§4.7.3).
	ErrSwitchRemoveUnsupported = errors.New("reconcile: switch removal is not supported mid-apply")

	// ErrRefcountViolation: remove_or_default saw a non-zero refcount on
	// an object with no non-removable policy protecting it — a
	// dependency-ordering bug, not a data problem.
	ErrRefcountViolation = errors.New("reconcile: object removed out of dependency order")
)

// Reconciler runs one APPLY's view transition.
type Reconciler struct {
	Current *asicview.View
	Temp    *asicview.View
	Matcher *match.Matcher
	RIDVID  *ridvid.Map
	Inv     *inventory.Inventory
	Default sai.DefaultContext
	Metrics *metrics.ReconcileMetrics
}

// New constructs a Reconciler. seed fixes the matcher's tie-break random
// source for reproducibility (P7).
func New(current, temp *asicview.View, ridVid *ridvid.Map, inv *inventory.Inventory, def sai.DefaultContext, seed int64) *Reconciler {
	return &Reconciler{
		Current: current,
		Temp:    temp,
		Matcher: match.New(current, temp, ridVid, seed),
		RIDVID:  ridVid,
		Inv:     inv,
		Default: def,
	}
}

// Run executes the full top-level algorithm (spec.md §4.7, steps 1-8).
// On success, Current and Temp hold the post-reconciliation state and
// every emitted ASIC operation is queued on Current for the executor.
func (r *Reconciler) Run(ctx context.Context) error {
	start := time.Now()
	defer func() { r.Metrics.ObserveDuration(time.Since(start)) }()

	match.PreMatch(r.Current, r.Temp, r.RIDVID)

	if err := r.sanity(); err != nil {
		return err
	}

	for _, tempObj := range r.orderedTempObjects() {
		if err := r.process(ctx, tempObj); err != nil {
			return err
		}
	}

	if err := r.finalizeDefaultTrapGroup(); err != nil {
		return err
	}

	if err := r.destructiveRemoveStubborn(); err != nil {
		return err
	}

	if err := r.fixedPointRemoveLoop(); err != nil {
		return err
	}

	if err := r.checkAllFinal(); err != nil {
		return err
	}

	if err := r.checkViewSizeMatch(); err != nil {
		return err
	}

	r.recordEmittedOps()
	return nil
}

func (r *Reconciler) recordEmittedOps() {
	if r.Metrics == nil {
		return
	}
	for _, op := range r.Current.GeneralOperations() {
		r.Metrics.RecordOp(op.Kind.String())
	}
	for _, op := range r.Current.NonOIDRemoveOperations() {
		r.Metrics.RecordOp(op.Kind.String())
	}
}

// sanity implements step 1: exactly one switch per view, matching VIDs
// and hardware info, and every physical port already pre-matched.
func (r *Reconciler) sanity() error {
	curSwitches := r.Current.ObjectsByType(sai.ObjectTypeSwitch)
	tempSwitches := r.Temp.ObjectsByType(sai.ObjectTypeSwitch)
	if len(curSwitches) != 1 || len(tempSwitches) != 1 {
		return fmt.Errorf("%w: expected exactly one switch per view, got current=%d temp=%d",
			ErrSanity, len(curSwitches), len(tempSwitches))
	}
	cur, temp := curSwitches[0], tempSwitches[0]
	if cur.VID() != temp.VID() {
		return fmt.Errorf("%w: switch vid mismatch %s != %s", ErrSanity, cur.VID(), temp.VID())
	}
	curHW, curOK := cur.Attrs[sai.AttrSwitchHardwareInfo]
	tempHW, tempOK := temp.Attrs[sai.AttrSwitchHardwareInfo]
	if curOK != tempOK || (curOK && !curHW.Equal(tempHW)) {
		return fmt.Errorf("%w: hardware_info mismatch", ErrSanity)
	}

	for _, port := range r.Temp.ObjectsByType(sai.ObjectTypePort) {
		if port.Status != sai.Matched {
			return fmt.Errorf("%w: port %s not pre-matched", ErrSanity, port.VID())
		}
	}
	return nil
}

// orderedTempObjects implements step 2's deterministic type order:
// non-route objects first, then default routes, then remaining routes.
func (r *Reconciler) orderedTempObjects() []*sai.Object {
	var out []*sai.Object
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		if t == sai.ObjectTypeRouteEntry {
			continue
		}
		out = append(out, r.Temp.ObjectsByType(t)...)
	}

	var defaultRoutes, otherRoutes []*sai.Object
	for _, route := range r.Temp.ObjectsByType(sai.ObjectTypeRouteEntry) {
		if route.Key.Route != nil && route.Key.Route.IsDefaultRoute() {
			defaultRoutes = append(defaultRoutes, route)
		} else {
			otherRoutes = append(otherRoutes, route)
		}
	}
	out = append(out, defaultRoutes...)
	out = append(out, otherRoutes...)
	return out
}

// process implements step 3: recursively resolve dependencies, find a
// match, and either transition in place or create/recreate.
func (r *Reconciler) process(ctx context.Context, tempObj *sai.Object) error {
	if tempObj.Status == sai.Final {
		return nil
	}

	for _, attrValue := range tempObj.Attrs {
		for _, vid := range attrValue.OIDs() {
			if err := r.processVID(ctx, vid); err != nil {
				return err
			}
		}
	}
	for _, vid := range tempObj.Key.OIDsIn() {
		if err := r.processVID(ctx, vid); err != nil {
			return err
		}
	}

	current, err := r.Matcher.FindBestCurrentMatch(tempObj)
	if err != nil {
		return err
	}

	if current == nil {
		return r.createNewFromTemp(tempObj)
	}

	ok, err := r.transition(current, tempObj, false)
	if err != nil {
		return err
	}
	if ok {
		if _, err := r.transition(current, tempObj, true); err != nil {
			return err
		}
		if err := r.recordMatch(ctx, tempObj, current); err != nil {
			return err
		}
		current.SetStatus(sai.Final)
		tempObj.SetStatus(sai.Final)
		return nil
	}

	if err := r.removeOrDefault(current); err != nil {
		return err
	}
	return r.createNewFromTemp(tempObj)
}

// recordMatch implements the matcher's explicit match step (spec.md §4.2):
// when a generic-OID match pairs temp with a current object of a
// different VID (find_best_current_match case 4 picked an existing
// object rather than the identity-matched one), the temp VID must gain
// an entry in the RID/VID map pointing at the matched object's RID so
// later references to the temp VID translate correctly. Identity
// matches (switch, MATCHED-status OID, non-OID rewrite) already share a
// VID and this is a no-op for them.
func (r *Reconciler) recordMatch(ctx context.Context, temp, current *sai.Object) error {
	if !temp.Type.IsOID() || temp.VID() == current.VID() {
		return nil
	}
	rid, ok := r.RIDVID.RIDOf(current.VID())
	if !ok {
		return nil
	}
	return r.RIDVID.Insert(ctx, temp.VID(), rid)
}

// processVID resolves a single referenced VID's owning object (if it is
// still NOT_PROCESSED in the temp view) before the referencing object is
// itself processed.
func (r *Reconciler) processVID(ctx context.Context, vid sai.VID) error {
	if vid.IsNull() {
		return nil
	}
	obj, ok := r.Temp.Get(vid.ObjectType(), sai.OIDKey(vid.ObjectType(), vid))
	if !ok || obj.Status == sai.Final {
		return nil
	}
	return r.process(ctx, obj)
}
