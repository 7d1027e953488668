package inventory

import (
	"context"
	"net"
	"testing"

	"github.com/flowbridge/syncd/pkg/driver/fake"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFindsImplicitChildrenAndDefaults(t *testing.T) {
	ctx := context.Background()
	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchDefaultVR:         sai.ObjectTypeVirtualRouter,
		sai.AttrSwitchDefaultTrapGroup:  sai.ObjectTypeHostifTrapGroup,
		sai.AttrSwitchCPUPort:           sai.ObjectTypePort,
	}

	switchRID, err := drv.CreateSwitch(ctx, map[sai.AttrID]sai.Value{
		sai.AttrSwitchSrcMAC: sai.MACValue(net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}),
	})
	require.NoError(t, err)

	inv := New(nil)
	require.NoError(t, inv.Discover(ctx, drv, switchRID))

	require.True(t, inv.IsDiscovered(switchRID))
	require.Len(t, inv.Discovered(), 4) // switch + 3 implicit children

	vrRID, ok := inv.DefaultAttrRID(sai.AttrSwitchDefaultVR)
	require.True(t, ok)
	require.True(t, inv.IsNonRemovable(vrRID))

	cpuPortRID, ok := inv.DefaultAttrRID(sai.AttrSwitchCPUPort)
	require.True(t, ok)
	require.True(t, inv.IsNonRemovable(cpuPortRID)) // port type is persistently non-removable too

	require.NotNil(t, inv.srcMAC)
}

func TestDiscoverCapturesPortLanes(t *testing.T) {
	ctx := context.Background()
	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchCPUPort: sai.ObjectTypePort,
	}

	switchRID, err := drv.CreateSwitch(ctx, nil)
	require.NoError(t, err)

	probe := New(nil)
	require.NoError(t, probe.Discover(ctx, drv, switchRID))
	cpuPortRID, ok := probe.DefaultAttrRID(sai.AttrSwitchCPUPort)
	require.True(t, ok)

	require.NoError(t, drv.SetAttribute(ctx, sai.ObjectTypePort, cpuPortRID, laneListAttr,
		sai.Value{Kind: sai.KindU32List, List: []uint32{4, 5, 6, 7}}))

	inv := New(nil)
	require.NoError(t, inv.Discover(ctx, drv, switchRID))

	lanes := inv.Lanes()
	require.Equal(t, []uint32{4, 5, 6, 7}, lanes[cpuPortRID])
}

func TestDiscoverSkipsUnreadableLaneList(t *testing.T) {
	ctx := context.Background()
	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchCPUPort: sai.ObjectTypePort,
	}
	switchRID, err := drv.CreateSwitch(ctx, nil)
	require.NoError(t, err)

	inv := New(nil)
	require.NoError(t, inv.Discover(ctx, drv, switchRID))

	require.Empty(t, inv.Lanes())
}

func TestRemovableDiscoveredType(t *testing.T) {
	ctx := context.Background()
	drv := fake.New()
	drv.ImplicitChildren = map[sai.AttrID]sai.ObjectType{
		sai.AttrSwitchDefaultVR: sai.ObjectTypeBridgePort,
	}
	switchRID, err := drv.CreateSwitch(ctx, nil)
	require.NoError(t, err)

	inv := New(nil)
	require.NoError(t, inv.Discover(ctx, drv, switchRID))

	bridgePortRID, ok := inv.DefaultAttrRID(sai.AttrSwitchDefaultVR)
	require.True(t, ok)
	// Bridge ports are discovered but, per the non-removable policy,
	// removable unless they also happen to be a recorded default.
	require.True(t, inv.IsNonRemovable(bridgePortRID))
}
