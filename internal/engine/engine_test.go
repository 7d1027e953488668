package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowbridge/syncd/pkg/config"
	"github.com/flowbridge/syncd/pkg/driver"
	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/sai"
)

func newTestEngine(t *testing.T) (*Engine, *fake.Driver) {
	t.Helper()
	cfg := config.DefaultConfig()
	drv := fake.New()
	e := New(cfg, memory.New(), drv, nil, Metrics{}, 1)
	require.NoError(t, e.Start(context.Background()))
	return e, drv
}

func switchVID(t *testing.T, e *Engine) sai.VID {
	t.Helper()
	objs := e.Current.ObjectsByType(sai.ObjectTypeSwitch)
	require.Len(t, objs, 1)
	return objs[0].Key.OID
}

func TestColdStartCreatesSwitch(t *testing.T) {
	e, _ := newTestEngine(t)
	objs := e.Current.ObjectsByType(sai.ObjectTypeSwitch)
	require.Len(t, objs, 1)
	require.Equal(t, sai.Final, objs[0].Status)
}

func TestColdStartPersistsLaneMap(t *testing.T) {
	cfg := config.DefaultConfig()
	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchCPUPort: sai.ObjectTypePort,
	}
	store := memory.New()
	e := New(cfg, store, drv, nil, Metrics{}, 1)
	require.NoError(t, e.Start(context.Background()))

	cpuPortRID, ok := e.Inv.DefaultAttrRID(sai.AttrSwitchCPUPort)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, drv.SetAttribute(ctx, sai.ObjectTypePort, cpuPortRID, "PORT_HW_LANE_LIST",
		sai.Value{Kind: sai.KindU32List, List: []uint32{10, 11}}))

	switchRID, ok := e.RIDVID.RIDOf(switchVID(t, e))
	require.True(t, ok)
	require.NoError(t, e.Inv.Discover(ctx, drv, switchRID))
	require.NoError(t, e.persistLanes(ctx))

	rows, err := store.Scan(ctx, kvstore.TableLanes)
	require.NoError(t, err)
	require.Equal(t, "10,11", rows[cpuPortRID.String()])
}

func TestApplyViewRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sw := switchVID(t, e)

	require.NoError(t, e.InitView(ctx))

	vlanVID, err := e.Alloc.AllocateObjectVID(sai.ObjectTypeVLAN, sw)
	require.NoError(t, err)
	vlanKey := sai.OIDKey(sai.ObjectTypeVLAN, vlanVID)

	require.NoError(t, e.Create(ctx, sai.ObjectTypeVLAN, vlanKey, map[sai.AttrID]sai.Value{
		"VLAN_ID": sai.U32Value(100),
	}))

	require.NoError(t, e.ApplyView(ctx))

	obj, ok := e.Current.Get(sai.ObjectTypeVLAN, vlanKey)
	require.True(t, ok)
	require.Equal(t, sai.Final, obj.Status)
}

func TestBulkGetReadsEachKey(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sw := switchVID(t, e)

	require.NoError(t, e.InitView(ctx))
	var keys []sai.Key
	var attrs []map[sai.AttrID]sai.Value
	for i := 0; i < 2; i++ {
		vid, err := e.Alloc.AllocateObjectVID(sai.ObjectTypeVLAN, sw)
		require.NoError(t, err)
		keys = append(keys, sai.OIDKey(sai.ObjectTypeVLAN, vid))
		attrs = append(attrs, map[sai.AttrID]sai.Value{"VLAN_ID": sai.U32Value(uint32(100 + i))})
	}
	require.NoError(t, e.BulkCreate(ctx, sai.ObjectTypeVLAN, keys, attrs))
	require.NoError(t, e.ApplyView(ctx))

	results, err := e.BulkGet(ctx, sai.ObjectTypeVLAN, keys, []sai.AttrID{"VLAN_ID"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, sai.U32Value(100), results[0].Attrs["VLAN_ID"])
	require.Equal(t, sai.U32Value(101), results[1].Attrs["VLAN_ID"])
}

func TestBulkRemoveRouteEntryNotImplemented(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sw := switchVID(t, e)
	vr, err := e.Alloc.AllocateObjectVID(sai.ObjectTypeVirtualRouter, sw)
	require.NoError(t, err)

	key := sai.RouteEntryKey(sw, vr, "10.0.0.0/24")
	err = e.BulkRemove(ctx, sai.ObjectTypeRouteEntry, []sai.Key{key})
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestBulkRemoveOtherTypesSucceeds(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sw := switchVID(t, e)

	require.NoError(t, e.InitView(ctx))
	vid, err := e.Alloc.AllocateObjectVID(sai.ObjectTypeVLAN, sw)
	require.NoError(t, err)
	key := sai.OIDKey(sai.ObjectTypeVLAN, vid)
	require.NoError(t, e.Create(ctx, sai.ObjectTypeVLAN, key, map[sai.AttrID]sai.Value{"VLAN_ID": sai.U32Value(200)}))

	require.NoError(t, e.BulkRemove(ctx, sai.ObjectTypeVLAN, []sai.Key{key}))

	_, ok := e.Temp.Get(sai.ObjectTypeVLAN, key)
	require.False(t, ok)
}

func TestApplyViewWithoutInitViewFails(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.ApplyView(context.Background())
	require.ErrorIs(t, err, ErrNotInInitView)
}

// hangingDriver wraps a fake.Driver whose GetAttribute never returns on its
// own, forcing callers to hit the context deadline.
type hangingDriver struct {
	*fake.Driver
}

func (hangingDriver) GetAttribute(ctx context.Context, _ sai.ObjectType, _ sai.RID, _ sai.AttrID) (sai.Value, error) {
	<-ctx.Done()
	return sai.Value{}, ctx.Err()
}

func TestGetTimesOutWithNoResponse(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Executor.GetResponseTimeout = 10 * time.Millisecond
	drv := hangingDriver{fake.New()}
	e := New(cfg, memory.New(), drv, nil, Metrics{}, 1)
	require.NoError(t, e.Start(context.Background()))

	sw := switchVID(t, e)
	result, err := e.Get(context.Background(), sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, sw), []sai.AttrID{sai.AttrSwitchHardwareInfo})
	require.NoError(t, err)
	require.Equal(t, StatusNoResponse, result.Status)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}

func TestServeStopsOnRequestShutdown(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	e.RequestShutdown(ShutdownCold)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not return after shutdown request")
	}
}

func TestNotificationsLoopDispatchesUnderLock(t *testing.T) {
	e, drv := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.notificationsLoop(ctx)
		close(done)
	}()

	drv.Emit(driver.Notification{
		Name:    "PORT_STATE_CHANGE",
		Payload: `[{"port_id":"oid:0x1","status":"UP"}]`,
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifications loop did not exit after cancellation")
	}
}
