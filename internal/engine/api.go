package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/exec"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/reconcile"
	"github.com/flowbridge/syncd/pkg/ridtranslate"
	"github.com/flowbridge/syncd/pkg/sai"
)

// ErrNotInInitView is returned by create/remove/set/bulk calls issued
// outside an INIT_VIEW/APPLY_VIEW bracket: writes against desired state
// only make sense while building the next temp view (spec.md §6).
var ErrNotInInitView = errors.New("engine: not in init-view mode")

// StatusNoResponse is the textual status this engine reports when a get
// call's driver round trip exceeds ExecutorConfig.GetResponseTimeout
// (spec.md §5: "imposes a 360-second timeout").
const StatusNoResponse = "NO_RESPONSE"

// ErrNotImplemented is returned by bulk operations the reconciler's
// counterpart doesn't support. Route entries are the one case this
// applies to today (OQ-1): bulk-create and bulk-get work for routes same
// as any other object type, but bulk-remove never shipped for routes.
var ErrNotImplemented = errors.New("engine: not implemented")

// InitView clears any prior temp view and enters init-view mode
// (spec.md §6, step 1).
func (e *Engine) InitView(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.Store.Clear(ctx, kvstore.TableTempAsicState); err != nil {
		return fmt.Errorf("engine: clear temp asic state: %w", err)
	}
	e.Temp = asicview.New()
	return e.Stream.Notify("INIT_VIEW", "")
}

func (e *Engine) requireInitView() error {
	if e.Temp == nil {
		return ErrNotInInitView
	}
	return nil
}

// Create deposits a create request into the temp view (spec.md §6, step 2).
func (e *Engine) Create(ctx context.Context, t sai.ObjectType, key sai.Key, attrs map[sai.AttrID]sai.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	if err := e.Stream.Create(key, attrs); err != nil {
		logger.Warn("recorder write failed", "op", "create", "error", err)
	}

	obj := sai.NewObject(t, key)
	for id, v := range attrs {
		obj.Attrs[id] = v
	}
	e.Temp.Insert(obj)
	return nil
}

// Remove deletes key from the temp view; a prior INIT_VIEW clear already
// started from empty, so an explicit remove on a never-created key leaves
// the view unchanged, matching the reconciler's "anything in current but
// not in temp gets removed" semantics.
func (e *Engine) Remove(ctx context.Context, t sai.ObjectType, key sai.Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	if err := e.Stream.Remove(key); err != nil {
		logger.Warn("recorder write failed", "op", "remove", "error", err)
	}
	e.Temp.Delete(t, key)
	return nil
}

// Set records a single-attribute set against an object already deposited
// into the temp view this init-view cycle.
func (e *Engine) Set(ctx context.Context, t sai.ObjectType, key sai.Key, id sai.AttrID, value sai.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	if err := e.Stream.Set(key, id, value); err != nil {
		logger.Warn("recorder write failed", "op", "set", "error", err)
	}

	obj, ok := e.Temp.Get(t, key)
	if !ok {
		obj = sai.NewObject(t, key)
		e.Temp.Insert(obj)
	}
	obj.Attrs[id] = value
	return nil
}

// BulkCreate deposits several create requests at once.
func (e *Engine) BulkCreate(ctx context.Context, t sai.ObjectType, keys []sai.Key, attrs []map[sai.AttrID]sai.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	if err := e.Stream.BulkCreate(keys, attrs); err != nil {
		logger.Warn("recorder write failed", "op", "bulkcreate", "error", err)
	}
	for i, key := range keys {
		obj := sai.NewObject(t, key)
		if i < len(attrs) {
			for id, v := range attrs[i] {
				obj.Attrs[id] = v
			}
		}
		e.Temp.Insert(obj)
	}
	return nil
}

// BulkSet applies the same attribute id to several keys.
func (e *Engine) BulkSet(ctx context.Context, t sai.ObjectType, keys []sai.Key, id sai.AttrID, values []sai.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	if err := e.Stream.BulkSet(keys, id, values); err != nil {
		logger.Warn("recorder write failed", "op", "bulkset", "error", err)
	}
	for i, key := range keys {
		obj, ok := e.Temp.Get(t, key)
		if !ok {
			obj = sai.NewObject(t, key)
			e.Temp.Insert(obj)
		}
		if i < len(values) {
			obj.Attrs[id] = values[i]
		}
	}
	return nil
}

// BulkRemove deposits several remove requests at once, except for route
// entries: the original tool never implemented a bulk-remove path for
// routes (OQ-1), so this mirrors that by rejecting it outright rather
// than silently falling back to one remove per key.
func (e *Engine) BulkRemove(ctx context.Context, t sai.ObjectType, keys []sai.Key) error {
	if t == sai.ObjectTypeRouteEntry {
		return ErrNotImplemented
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := e.Stream.Remove(key); err != nil {
			logger.Warn("recorder write failed", "op", "bulkremove", "error", err)
		}
		e.Temp.Delete(t, key)
	}
	return nil
}

// GetResult is what Get reports: either the requested attributes or,
// if the driver round trip timed out, StatusNoResponse.
type GetResult struct {
	Status string
	Attrs  map[sai.AttrID]sai.Value
}

// Get reads attributes live from the driver through the current RID/VID
// map, bounded by ExecutorConfig.GetResponseTimeout (spec.md §5, §7:
// "driver timeout on get-response: reply NO_RESPONSE").
func (e *Engine) Get(ctx context.Context, t sai.ObjectType, key sai.Key, ids []sai.AttrID) (GetResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(ctx, t, key, ids)
}

// BulkGet reads attributes for several keys of the same object type in
// one round trip (sai_redis_route.cpp's bulk-get path, OQ-1). It holds
// the engine lock for the whole batch rather than per key, so a
// concurrent init-view/apply-view can't interleave with it.
func (e *Engine) BulkGet(ctx context.Context, t sai.ObjectType, keys []sai.Key, ids []sai.AttrID) ([]GetResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]GetResult, len(keys))
	for i, key := range keys {
		res, err := e.getLocked(ctx, t, key, ids)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (e *Engine) getLocked(ctx context.Context, t sai.ObjectType, key sai.Key, ids []sai.AttrID) (GetResult, error) {
	if err := e.Stream.Get(key, ids); err != nil {
		logger.Warn("recorder write failed", "op", "get", "error", err)
	}

	timeout := e.Cfg.Executor.GetResponseTimeout
	if timeout <= 0 {
		timeout = 360 * time.Second
	}
	getCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !t.IsOID() {
		return GetResult{}, fmt.Errorf("engine: get is only supported for OID object types, got %s", t)
	}
	rid, ok := e.RIDVID.RIDOf(key.OID)
	if !ok {
		return GetResult{}, &ridtranslate.UnresolvedVIDError{VID: key.OID}
	}

	out := make(map[sai.AttrID]sai.Value, len(ids))
	for _, id := range ids {
		v, err := e.Driver.GetAttribute(getCtx, t, rid, id)
		if err != nil {
			if getCtx.Err() != nil {
				e.recordGetResponseNoResponse(key)
				return GetResult{Status: StatusNoResponse}, nil
			}
			return GetResult{}, err
		}
		out[id] = v
	}

	if err := e.Stream.GetResponse("SUCCESS", out, 0); err != nil {
		logger.Warn("recorder write failed", "op", "getresponse", "error", err)
	}
	return GetResult{Status: "SUCCESS", Attrs: out}, nil
}

func (e *Engine) recordGetResponseNoResponse(key sai.Key) {
	if err := e.Stream.GetResponse(StatusNoResponse, nil, 0); err != nil {
		logger.Warn("recorder write failed", "op", "getresponse", "error", err)
	}
}

// ApplyView runs the apply-view handshake's final step (spec.md §6, step
// 3): load both views, reconcile, execute, persist. On a reconciliation
// failure the temp view is discarded and current state remains
// authoritative (spec.md §7: "apply-view failure before execute"); on an
// executor failure the error is fatal and the caller is expected to exit
// the process, matching the source's "process terminates" policy.
func (e *Engine) ApplyView(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInitView(); err != nil {
		return err
	}

	reqID, err := e.Stream.ApplyRequest()
	if err != nil {
		logger.Warn("recorder write failed", "op", "applyrequest", "error", err)
	}

	temp := e.Temp
	e.Temp = nil

	if err := temp.Dump(ctx, e.Store, kvstore.TableTempAsicState); err != nil {
		e.recordApplyFailure(reqID)
		return fmt.Errorf("engine: persist temp view: %w", err)
	}

	r := reconcile.New(e.Current, temp, e.RIDVID, e.Inv, e.defaultContext(), e.Seed)
	r.Metrics = e.Metrics.Reconcile
	if err := r.Run(ctx); err != nil {
		e.recordApplyFailure(reqID)
		logger.Warn("reconciliation failed, discarding temp view", "error", err)
		return nil
	}

	ex := exec.New(e.Current, e.RIDVID, e.Store, e.Driver)
	ex.Metrics = e.Metrics.Executor
	if err := ex.Execute(ctx); err != nil {
		e.recordApplyFailure(reqID)
		return fmt.Errorf("engine: %w (process must exit)", err)
	}

	if err := e.Store.Clear(ctx, kvstore.TableTempAsicState); err != nil {
		logger.Warn("failed to clear temp asic state after apply", "error", err)
	}

	if err := e.Stream.ApplyResponse(reqID, true); err != nil {
		logger.Warn("recorder write failed", "op", "applyresponse", "error", err)
	}
	return nil
}

func (e *Engine) recordApplyFailure(reqID string) {
	if err := e.Stream.ApplyResponse(reqID, false); err != nil {
		logger.Warn("recorder write failed", "op", "applyresponse", "error", err)
	}
}
