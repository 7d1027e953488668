package hardreinit

import (
	"context"
	"testing"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/kvstore"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/flowbridge/syncd/pkg/vid"
	"github.com/stretchr/testify/require"
)

// TestRunRecoversDefaultIdentityAndCreatesFresh builds a desired state
// dump with a switch whose default virtual router VID was recorded from
// a prior run, plus one ordinary port object with no such history, and
// confirms: the default VR's old VID maps to whatever RID the fresh
// driver instance assigns its implicitly-created VR, and the port gets
// created fresh with a brand new mapping.
func TestRunRecoversDefaultIdentityAndCreatesFresh(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	switchVID := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	oldVRVID := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 7)
	portVID := sai.EncodeVID(sai.ObjectTypePort, 0, 42)

	desired := asicview.New()
	sw := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, switchVID))
	sw.Attrs[sai.AttrSwitchHardwareInfo] = sai.Value{Kind: sai.KindBytes, Raw: []byte("fixture")}
	sw.Attrs[sai.AttrSwitchDefaultVR] = sai.OIDValue(oldVRVID)
	sw.SetStatus(sai.Final)
	desired.Insert(sw)

	port := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, portVID))
	port.SetStatus(sai.Final)
	desired.Insert(port)

	require.NoError(t, desired.Dump(ctx, store, kvstore.TableAsicState))

	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchDefaultVR: sai.ObjectTypeVirtualRouter,
	}

	ridMap := ridvid.New(store)
	alloc := vid.NewAllocator(vid.NewMemoryCounterStore())
	h := New(drv, ridMap, alloc, store)

	inv, err := h.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, inv)

	_, ok := ridMap.RIDOf(switchVID)
	require.True(t, ok)

	vrRID, ok := ridMap.RIDOf(oldVRVID)
	require.True(t, ok)
	require.True(t, inv.IsNonRemovable(vrRID))

	_, ok = ridMap.RIDOf(portVID)
	require.True(t, ok)
}

// TestRunPrunesUnrepresentedDefaultRole confirms a default role whose old
// VID is no longer present in desired state gets its RID removed rather
// than left mapped to nothing.
func TestRunPrunesUnrepresentedDefaultRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	switchVID := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	desired := asicview.New()
	sw := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, switchVID))
	sw.SetStatus(sai.Final)
	desired.Insert(sw)
	require.NoError(t, desired.Dump(ctx, store, kvstore.TableAsicState))

	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchDefaultVR: sai.ObjectTypeVirtualRouter,
	}

	ridMap := ridvid.New(store)
	alloc := vid.NewAllocator(vid.NewMemoryCounterStore())
	h := New(drv, ridMap, alloc, store)

	_, err := h.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ridMap.Size())
}
