package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

func newExecutorFixture(t *testing.T) (*Executor, *asicview.View, *ridvid.Map, *fake.Driver) {
	t.Helper()
	store := memory.New()
	view := asicview.New()
	ridMap := ridvid.New(store)
	drv := fake.New()
	return New(view, ridMap, store, drv), view, ridMap, drv
}

// TestExecuteCreateAssignsRID confirms a create operation is translated,
// dispatched to the driver, and recorded into the RID/VID map before
// Persist rewrites the durable tables.
func TestExecuteCreateAssignsRID(t *testing.T) {
	ctx := context.Background()
	e, view, ridMap, _ := newExecutorFixture(t)

	swVID := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	sw := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, swVID))
	sw.Created = true
	view.CreateObject(sw)
	sw.SetStatus(sai.Final)

	require.NoError(t, e.Execute(ctx))

	_, ok := ridMap.RIDOf(swVID)
	require.True(t, ok)

	rows, err := e.Store.Scan(ctx, kvstore.TableAsicState)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// TestExecuteRemoveDropsMapping confirms a remove operation clears the
// object's RID/VID mapping once the driver confirms removal.
func TestExecuteRemoveDropsMapping(t *testing.T) {
	ctx := context.Background()
	e, view, ridMap, drv := newExecutorFixture(t)

	portVID := sai.EncodeVID(sai.ObjectTypePort, 0, 7)
	port := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, portVID))

	rid, err := drv.CreateObject(ctx, sai.ObjectTypePort, port.Key, nil)
	require.NoError(t, err)
	require.NoError(t, ridMap.Insert(ctx, portVID, rid))

	view.RemoveObject(port)

	require.NoError(t, e.Execute(ctx))

	_, ok := ridMap.RIDOf(portVID)
	require.False(t, ok)
}

// failingSrcMACDriver wraps the fake driver and fails every
// SWITCH_SRC_MAC_ADDRESS set, exercising the one tolerated workaround
// (spec.md §4.8/§7): this failure must not surface as fatal.
type failingSrcMACDriver struct {
	*fake.Driver
}

func (d *failingSrcMACDriver) SetAttribute(ctx context.Context, t sai.ObjectType, rid sai.RID, id sai.AttrID, value sai.Value) error {
	if id == sai.AttrSwitchSrcMAC {
		return errors.New("vendor sdk: src mac rejected")
	}
	return d.Driver.SetAttribute(ctx, t, rid, id, value)
}

func TestExecuteToleratesSrcMACWorkaround(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	view := asicview.New()
	ridMap := ridvid.New(store)
	drv := &failingSrcMACDriver{Driver: fake.New()}
	e := New(view, ridMap, store, drv)

	swVID := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	sw := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, swVID))
	view.CreateObject(sw)
	sw.SetStatus(sai.Final)
	require.NoError(t, e.Execute(ctx))

	view.SetAttribute(sw, sai.AttrSwitchSrcMAC, sai.Value{Kind: sai.KindMAC, Raw: []byte{1, 2, 3, 4, 5, 6}})

	require.NoError(t, e.Execute(ctx))
}

// TestExecuteFatalOnOtherDriverFailure confirms a driver failure outside
// the workaround list is surfaced as ErrFatalDriverFailure.
func TestExecuteFatalOnOtherDriverFailure(t *testing.T) {
	ctx := context.Background()
	e, view, ridMap, _ := newExecutorFixture(t)

	portVID := sai.EncodeVID(sai.ObjectTypePort, 0, 1)
	port := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, portVID))
	// Map the VID to a RID the fake driver never actually created, so its
	// remove call fails with "unknown rid" rather than this test's own
	// translation step failing first with an unresolved VID.
	require.NoError(t, ridMap.Insert(ctx, portVID, sai.RID(999)))
	view.RemoveObject(port)

	err := e.Execute(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFatalDriverFailure)
}
