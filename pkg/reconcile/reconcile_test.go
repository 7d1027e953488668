package reconcile

import (
	"context"
	"testing"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

type fakeDefaultCtx struct{}

func (fakeDefaultCtx) SwitchAttr(sai.AttrID) (sai.Value, bool) { return sai.Value{}, false }
func (fakeDefaultCtx) InventorySrcMAC() (sai.Value, bool)      { return sai.Value{}, false }

func buildSwitches(t *testing.T, rv *ridvid.Map, ctx context.Context) (*sai.Object, *sai.Object, sai.VID) {
	t.Helper()
	sw := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	require.NoError(t, rv.Insert(ctx, sw, sai.RID(1)))

	cur := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, sw))
	cur.Attrs[sai.AttrSwitchHardwareInfo] = sai.MACValue(nil)
	cur.SetStatus(sai.Matched)

	temp := sai.NewObject(sai.ObjectTypeSwitch, sai.OIDKey(sai.ObjectTypeSwitch, sw))
	temp.Attrs[sai.AttrSwitchHardwareInfo] = sai.MACValue(nil)
	temp.SetStatus(sai.Matched)

	return cur, temp, sw
}

// TestCreateNewObjectWhenNoMatch exercises the "no match -> create" path
// (process step 3d) for a plain OID object with no current-view
// counterpart.
func TestCreateNewObjectWhenNoMatch(t *testing.T) {
	ctx := context.Background()
	rv := ridvid.New(memory.New())
	current := asicview.New()
	temp := asicview.New()

	curSwitch, tempSwitch, sw := buildSwitches(t, rv, ctx)
	current.Insert(curSwitch)
	temp.Insert(tempSwitch)
	_ = sw

	tempVLAN := sai.NewObject(sai.ObjectTypeVLAN, sai.OIDKey(sai.ObjectTypeVLAN, sai.EncodeVID(sai.ObjectTypeVLAN, 0, 5)))
	tempVLAN.Attrs["VLAN_ID"] = sai.U32Value(100)
	temp.Insert(tempVLAN)

	r := New(current, temp, rv, nil, fakeDefaultCtx{}, 1)
	require.NoError(t, r.Run(ctx))

	require.Equal(t, sai.Final, tempVLAN.Status)
	got, ok := current.Get(sai.ObjectTypeVLAN, tempVLAN.Key)
	require.True(t, ok)
	require.Equal(t, sai.Final, got.Status)
	require.True(t, got.Created)
}

// TestUpdateInPlaceForMatchedObject exercises transition() committing a
// CREATE_AND_SET attribute change on an identity-matched object rather
// than recreating it.
func TestUpdateInPlaceForMatchedObject(t *testing.T) {
	ctx := context.Background()
	rv := ridvid.New(memory.New())
	current := asicview.New()
	temp := asicview.New()

	curSwitch, tempSwitch, _ := buildSwitches(t, rv, ctx)
	current.Insert(curSwitch)
	temp.Insert(tempSwitch)

	portVID := sai.EncodeVID(sai.ObjectTypePort, 0, 9)
	require.NoError(t, rv.Insert(ctx, portVID, sai.RID(50)))

	curPort := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, portVID))
	curPort.Attrs["PORT_ADMIN_STATE"] = sai.BoolValue(false)
	current.Insert(curPort)

	tempPort := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, portVID))
	tempPort.Attrs["PORT_ADMIN_STATE"] = sai.BoolValue(true)
	temp.Insert(tempPort)

	r := New(current, temp, rv, nil, fakeDefaultCtx{}, 1)
	require.NoError(t, r.Run(ctx))

	require.Equal(t, sai.Final, curPort.Status)
	require.False(t, curPort.Created)
	v, ok := curPort.Attrs["PORT_ADMIN_STATE"]
	require.True(t, ok)
	require.True(t, v.Bool)
}

// TestNonOIDEntryCreatedAfterDependencyResolves exercises process()'s
// recursive dependency resolution: a route referencing a not-yet-matched
// virtual router must only be processed once the VR itself is final.
func TestNonOIDEntryCreatedAfterDependencyResolves(t *testing.T) {
	ctx := context.Background()
	rv := ridvid.New(memory.New())
	current := asicview.New()
	temp := asicview.New()

	curSwitch, tempSwitch, sw := buildSwitches(t, rv, ctx)
	current.Insert(curSwitch)
	temp.Insert(tempSwitch)

	vrVID := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 3)
	tempVR := sai.NewObject(sai.ObjectTypeVirtualRouter, sai.OIDKey(sai.ObjectTypeVirtualRouter, vrVID))
	temp.Insert(tempVR)

	route := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vrVID, "10.0.0.0/24"))
	temp.Insert(route)

	r := New(current, temp, rv, nil, fakeDefaultCtx{}, 1)
	require.NoError(t, r.Run(ctx))

	require.Equal(t, sai.Final, tempVR.Status)
	require.Equal(t, sai.Final, route.Status)

	_, ok := current.Get(sai.ObjectTypeVirtualRouter, sai.OIDKey(sai.ObjectTypeVirtualRouter, vrVID))
	require.True(t, ok)
}
