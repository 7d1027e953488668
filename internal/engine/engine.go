// Package engine wires together allocator, RID/VID map, inventory,
// matcher, reconciler, and executor into the running process spec.md §5
// describes: a single coarse mutex serializing the producer-facing API,
// a notifications thread dispatching driver events under that same
// mutex, and a startup branch choosing between an ordinary cold start
// and hard reinit (spec.md §4.9). Grounded on the teacher's
// pkg/controlplane/runtime/lifecycle.Service: a sync.Once-guarded Serve
// that blocks on a context/error select and runs an explicit shutdown
// sequence, generalized from HTTP server start/stop to driver session
// start/stop.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/config"
	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/hardreinit"
	"github.com/flowbridge/syncd/pkg/inventory"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/metrics"
	"github.com/flowbridge/syncd/pkg/recorder"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/flowbridge/syncd/pkg/vid"
)

// Metrics groups the per-concern instrumentation the engine wires into
// the components it owns. Every field is nil-safe; a zero-value Metrics
// disables all instrumentation.
type Metrics struct {
	Reconcile *metrics.ReconcileMetrics
	Executor  *metrics.ExecutorMetrics
	Recorder  *metrics.RecorderMetrics
}

// Engine is the running process: one coarse mutex, the current and (if
// mid-apply) temporary views, and every collaborator the producer API,
// reconciler, and executor need.
type Engine struct {
	mu sync.Mutex

	Current *asicview.View
	Temp    *asicview.View

	RIDVID *ridvid.Map
	Alloc  *vid.Allocator
	Inv    *inventory.Inventory

	Store    kvstore.Store
	Driver   driver.Driver
	Stream   recorder.Stream
	Metrics  Metrics
	Cfg      *config.Config
	Seed     int64

	shutdown chan ShutdownKind
	serveOnce sync.Once
}

// New constructs an Engine. Call Start before using the producer API.
func New(cfg *config.Config, store kvstore.Store, drv driver.Driver, stream recorder.Stream, m Metrics, seed int64) *Engine {
	if stream == nil {
		stream = recorder.NullStream{}
	}
	return &Engine{
		RIDVID:   ridvid.New(store),
		Alloc:    vid.NewAllocator(kvstoreCounterStore{store}),
		Store:    store,
		Driver:   drv,
		Stream:   stream,
		Metrics:  m,
		Cfg:      cfg,
		Seed:     seed,
		shutdown: make(chan ShutdownKind, 1),
	}
}

// Start loads the RID/VID map and either hard-reinits or cold-starts the
// switch, populating e.Current and e.Inv. It must run once, before any
// producer API call or Serve.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.RIDVID.Load(ctx); err != nil {
		return fmt.Errorf("engine: load rid/vid map: %w", err)
	}

	hasDesiredState, err := e.hasPersistedDesiredState(ctx)
	if err != nil {
		return err
	}

	if e.Cfg.Executor.WarmBoot && hasDesiredState {
		logger.Info("starting hard reinit", "reason", "warm boot with persisted desired state")
		hr := hardreinit.New(e.Driver, e.RIDVID, e.Alloc, e.Store)
		inv, err := hr.Run(ctx)
		if err != nil {
			return fmt.Errorf("engine: hard reinit: %w", err)
		}
		e.Inv = inv
		if err := e.persistLanes(ctx); err != nil {
			return fmt.Errorf("engine: persist lane map: %w", err)
		}
		current, err := asicview.LoadView(ctx, e.Store, kvstore.TableAsicState)
		if err != nil {
			return fmt.Errorf("engine: load current view after hard reinit: %w", err)
		}
		e.Current = current
		return nil
	}

	return e.coldStart(ctx)
}

// hasPersistedDesiredState reports whether ASIC_STATE already holds any
// object, the hard reinit trigger condition (spec.md §4.9).
func (e *Engine) hasPersistedDesiredState(ctx context.Context) (bool, error) {
	rows, err := e.Store.Scan(ctx, kvstore.TableAsicState)
	if err != nil {
		return false, fmt.Errorf("engine: scan asic state: %w", err)
	}
	return len(rows) > 0, nil
}

// coldStart runs on a genuinely empty database: create the switch, run
// discovery, seed a current view containing just the switch.
func (e *Engine) coldStart(ctx context.Context) error {
	switchVID, err := e.Alloc.AllocateSwitchVID()
	if err != nil {
		return fmt.Errorf("engine: allocate switch vid: %w", err)
	}

	attrs := map[sai.AttrID]sai.Value{}
	if e.Cfg.Switch.HardwareInfo != "" {
		attrs[sai.AttrSwitchHardwareInfo] = sai.Value{Kind: sai.KindBytes, Raw: []byte(e.Cfg.Switch.HardwareInfo)}
	}

	switchRID, err := e.Driver.CreateSwitch(ctx, attrs)
	if err != nil {
		return fmt.Errorf("engine: create switch: %w", err)
	}
	if err := e.RIDVID.Insert(ctx, switchVID, switchRID); err != nil {
		return fmt.Errorf("engine: map switch vid: %w", err)
	}

	e.Inv = inventory.New(nil)
	if err := e.Inv.Discover(ctx, e.Driver, switchRID); err != nil {
		return fmt.Errorf("engine: discover inventory: %w", err)
	}
	if err := e.persistLanes(ctx); err != nil {
		return fmt.Errorf("engine: persist lane map: %w", err)
	}

	sw := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, switchVID))
	for id, v := range attrs {
		sw.Attrs[id] = v
	}
	sw.SetStatus(sai.Final)

	e.Current = asicview.New()
	e.Current.Insert(sw)
	return e.Current.Dump(ctx, e.Store, kvstore.TableAsicState)
}

// persistLanes writes the port RID -> hardware lane list map discovery just
// collected into the LANES table, following ridvid's plain-string key/value
// convention rather than a structured encoding.
func (e *Engine) persistLanes(ctx context.Context) error {
	lanes := e.Inv.Lanes()
	if len(lanes) == 0 {
		return nil
	}
	return e.Store.Batch(ctx, func(b kvstore.Batch) error {
		for rid, list := range lanes {
			b.Set(kvstore.TableLanes, rid.String(), formatLanes(list))
		}
		return nil
	})
}

func formatLanes(lanes []uint32) string {
	parts := make([]string, len(lanes))
	for i, l := range lanes {
		parts[i] = strconv.FormatUint(uint64(l), 10)
	}
	return strings.Join(parts, ",")
}

// defaultContext builds the sai.DefaultContext the reconciler and
// attribute model consult, translating inventory's RID-space defaults
// through the current RID/VID map.
func (e *Engine) defaultContext() sai.DefaultContext {
	return &inventory.DefaultContext{Inventory: e.Inv, RIDVID: e.RIDVID}
}

// Serve blocks until ctx is cancelled or a shutdown is requested via
// RequestShutdown, then runs the shutdown sequence. Safe to call once;
// later calls are no-ops (mirrors the teacher's sync.Once-guarded Serve).
func (e *Engine) Serve(ctx context.Context) error {
	var err error
	e.serveOnce.Do(func() {
		err = e.serve(ctx)
	})
	return err
}

func (e *Engine) serve(ctx context.Context) error {
	logger.Info("engine serving")

	notifyCtx, cancelNotify := context.WithCancel(ctx)
	defer cancelNotify()
	go e.notificationsLoop(notifyCtx)

	var kind ShutdownKind
	select {
	case <-ctx.Done():
		kind = ShutdownCold
		logger.Info("shutdown: context cancelled", "reason", ctx.Err())
	case kind = <-e.shutdown:
		logger.Info("shutdown requested", "kind", kind)
	}

	return e.runShutdown(kind)
}

func (e *Engine) runShutdown(kind ShutdownKind) error {
	// OQ-3: the original throws on WARM; this engine treats WARM
	// identically to COLD rather than attempting to persist in-flight
	// apply-view state across the restart.
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.Stream.Close(); err != nil {
		logger.Warn("error closing recording stream", "error", err)
	}
	logger.Info("engine stopped", "kind", kind)
	return nil
}

// kvstoreCounterStore adapts kvstore.Store's flat key/value table into
// vid.Allocator's CounterStore contract: one monotonic uint64 per switch
// index, stored as a decimal string.
type kvstoreCounterStore struct {
	store kvstore.Store
}

func (c kvstoreCounterStore) Next(switchIndex uint8) (uint64, error) {
	ctx := context.Background()
	key := fmt.Sprintf("%d", switchIndex)
	raw, ok, err := c.store.Get(ctx, kvstore.TableVIDCounters, key)
	if err != nil {
		return 0, fmt.Errorf("engine: read vid counter: %w", err)
	}
	var n uint64
	if ok {
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return 0, fmt.Errorf("engine: parse vid counter %q: %w", raw, err)
		}
	}
	n++
	if err := c.store.Set(ctx, kvstore.TableVIDCounters, key, fmt.Sprintf("%d", n)); err != nil {
		return 0, fmt.Errorf("engine: persist vid counter: %w", err)
	}
	return n, nil
}
