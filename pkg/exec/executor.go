// Package exec is the last stage of a reconciliation cycle (spec.md §4.8):
// it takes the operation list a Reconciler produced, reorders it with the
// remove-hoist optimization, replays each operation against the vendor
// driver translating VIDs to RIDs at the boundary, and on success rewrites
// the persisted ASIC state and RID/VID map from the final in-memory view.
package exec

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/metrics"
	"github.com/flowbridge/syncd/pkg/ridtranslate"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
)

// ErrFatalDriverFailure wraps any driver error outside the one tolerated
// workaround (spec.md §4.8/§7: "only SWITCH_SRC_MAC_ADDRESS set failures
// are tolerated; every other driver failure during apply is fatal").
// Callers are expected to treat this as a process-exit condition, not
// something to roll back from — there is no undo path once operations
// have started landing on the driver.
var ErrFatalDriverFailure = errors.New("exec: fatal driver failure")

// workaroundAttrs names the attributes whose set failures are swallowed
// rather than treated as fatal. SWITCH_SRC_MAC_ADDRESS is the one
// documented case: some vendor SDKs reject setting it post-init even
// though it is CREATE_AND_SET, and syncd has historically carried a
// workaround rather than treat that as a hard failure.
var workaroundAttrs = map[sai.AttrID]bool{
	sai.AttrSwitchSrcMAC: true,
}

// StormGuardFunc is invoked immediately before a set operation lands on
// the driver, giving a watchdog a chance to veto or delay it. The default
// is a no-op; a real guard (PFC storm detection on queues) is not part of
// this engine and is wired in by the caller.
type StormGuardFunc func(obj *sai.Object, attrID sai.AttrID, value sai.Value) error

func noopStormGuard(*sai.Object, sai.AttrID, sai.Value) error { return nil }

// Executor replays a view's pending operations against a driver and
// commits the resulting state.
type Executor struct {
	Current *asicview.View
	RIDVID  *ridvid.Map
	Store   kvstore.Store
	Driver  driver.Driver

	StormGuard StormGuardFunc
	Metrics    *metrics.ExecutorMetrics
}

// New constructs an Executor with a no-op StormGuard. Assign
// Executor.StormGuard directly to install a real one.
func New(view *asicview.View, ridvidMap *ridvid.Map, store kvstore.Store, drv driver.Driver) *Executor {
	return &Executor{
		Current:    view,
		RIDVID:     ridvidMap,
		Store:      store,
		Driver:     drv,
		StormGuard: noopStormGuard,
	}
}

// Execute hoists and replays every pending operation, then persists the
// resulting state. It stops at the first fatal driver failure, leaving
// whatever prefix of operations already landed in place — there is no
// rollback (spec.md §7).
func (e *Executor) Execute(ctx context.Context) error {
	ops := hoist(e.Current.NonOIDRemoveOperations(), e.Current.GeneralOperations(), e.Current.LastDecrefOpID)

	for _, op := range ops {
		if err := e.apply(ctx, op); err != nil {
			e.Metrics.RecordApplyOutcome("fatal")
			return err
		}
	}

	if err := e.Persist(ctx); err != nil {
		e.Metrics.RecordApplyOutcome("fatal")
		return err
	}
	e.Metrics.RecordApplyOutcome("success")
	return nil
}

func (e *Executor) apply(ctx context.Context, op asicview.Operation) error {
	switch op.Kind {
	case asicview.OpCreate:
		return e.applyCreate(ctx, op)
	case asicview.OpSet:
		return e.applySet(ctx, op)
	case asicview.OpRemove:
		return e.applyRemove(ctx, op)
	default:
		return fmt.Errorf("exec: unknown operation kind %v", op.Kind)
	}
}

func (e *Executor) applyCreate(ctx context.Context, op asicview.Operation) error {
	obj := op.Object
	attrs, err := ridtranslate.Attrs(obj.Attrs, e.RIDVID.RIDOf)
	if err != nil {
		return err
	}

	if obj.Type.IsOID() {
		rid, err := e.Driver.CreateObject(ctx, obj.Type, obj.Key, attrs)
		if err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrFatalDriverFailure, obj.Type, err)
		}
		return e.RIDVID.Insert(ctx, obj.VID(), rid)
	}

	key, err := ridtranslate.Key(obj.Key, e.RIDVID.RIDOf)
	if err != nil {
		return err
	}
	if _, err := e.Driver.CreateObject(ctx, obj.Type, key, attrs); err != nil {
		return fmt.Errorf("%w: create entry %s: %v", ErrFatalDriverFailure, obj.Type, err)
	}
	return nil
}

func (e *Executor) applySet(ctx context.Context, op asicview.Operation) error {
	obj := op.Object

	if err := e.StormGuard(obj, op.AttrID, op.Value); err != nil {
		return fmt.Errorf("exec: storm guard rejected set: %w", err)
	}

	value, err := ridtranslate.Value(op.Value, e.RIDVID.RIDOf)
	if err != nil {
		return err
	}

	if obj.Type.IsOID() {
		rid, ok := e.RIDVID.RIDOf(obj.VID())
		if !ok {
			return &ridtranslate.UnresolvedVIDError{VID: obj.VID()}
		}
		if err := e.Driver.SetAttribute(ctx, obj.Type, rid, op.AttrID, value); err != nil {
			if workaroundAttrs[op.AttrID] {
				return nil
			}
			return fmt.Errorf("%w: set %s on %s: %v", ErrFatalDriverFailure, op.AttrID, obj.Type, err)
		}
		return nil
	}

	key, err := ridtranslate.Key(obj.Key, e.RIDVID.RIDOf)
	if err != nil {
		return err
	}
	if err := e.Driver.SetEntryAttribute(ctx, obj.Type, key, op.AttrID, value); err != nil {
		if workaroundAttrs[op.AttrID] {
			return nil
		}
		return fmt.Errorf("%w: set entry %s on %s: %v", ErrFatalDriverFailure, op.AttrID, obj.Type, err)
	}
	return nil
}

func (e *Executor) applyRemove(ctx context.Context, op asicview.Operation) error {
	obj := op.Object

	if obj.Type.IsOID() {
		vid := obj.VID()
		rid, ok := e.RIDVID.RIDOfIncludingRemoved(vid)
		if !ok {
			return &ridtranslate.UnresolvedVIDError{VID: vid}
		}
		if err := e.Driver.RemoveObject(ctx, obj.Type, rid); err != nil {
			return fmt.Errorf("%w: remove %s: %v", ErrFatalDriverFailure, obj.Type, err)
		}
		return e.RIDVID.Remove(ctx, vid)
	}

	key, err := ridtranslate.Key(obj.Key, e.RIDVID.RIDOfIncludingRemoved)
	if err != nil {
		return err
	}
	if err := e.Driver.RemoveEntry(ctx, obj.Type, key); err != nil {
		return fmt.Errorf("%w: remove entry %s: %v", ErrFatalDriverFailure, obj.Type, err)
	}
	return nil
}

// Persist replaces ASIC_STATE with the fully reconciled view and rewrites
// the RID/VID map from the final in-memory state (spec.md §4.8). It
// persists Current rather than Temp: by the time Execute reaches here,
// transition() and bringToDefault() have already folded every create/set
// outcome into Current, and Temp holds only the pre-transition snapshot
// the reconciler diffed against (see DESIGN.md, OQ-6).
func (e *Executor) Persist(ctx context.Context) error {
	if err := e.Current.Dump(ctx, e.Store, kvstore.TableAsicState); err != nil {
		return fmt.Errorf("exec: persist asic state: %w", err)
	}
	if err := e.Store.Batch(ctx, func(b kvstore.Batch) error {
		b.Clear(kvstore.TableTempAsicState)
		return nil
	}); err != nil {
		return fmt.Errorf("exec: clear temp asic state: %w", err)
	}
	if err := e.RIDVID.Rewrite(ctx); err != nil {
		return fmt.Errorf("exec: rewrite rid/vid map: %w", err)
	}
	e.RIDVID.ClearRemoved()
	return nil
}
