package match

import (
	"context"
	"testing"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/kvstore/memory"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

func newRIDVID(t *testing.T) *ridvid.Map {
	t.Helper()
	return ridvid.New(memory.New())
}

func TestMatchByIdentity(t *testing.T) {
	ctx := context.Background()
	current := asicview.New()
	temp := asicview.New()
	rv := newRIDVID(t)

	vid := sai.EncodeVID(sai.ObjectTypePort, 0, 1)
	require.NoError(t, rv.Insert(ctx, vid, sai.RID(100)))

	curPort := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, vid))
	current.Insert(curPort)

	tempPort := sai.NewObject(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, vid))
	temp.Insert(tempPort)

	PreMatch(current, temp, rv)
	require.Equal(t, sai.Matched, curPort.Status)
	require.Equal(t, sai.Matched, tempPort.Status)

	m := New(current, temp, rv, 1)
	got, err := m.FindBestCurrentMatch(tempPort)
	require.NoError(t, err)
	require.Same(t, curPort, got)
}

func TestMatchGenericOIDScoresAttributes(t *testing.T) {
	current := asicview.New()
	temp := asicview.New()
	rv := newRIDVID(t)

	candA := sai.NewObject(sai.ObjectTypeVLAN, sai.OIDKey(sai.ObjectTypeVLAN, sai.EncodeVID(sai.ObjectTypeVLAN, 0, 1)))
	candA.Attrs["VLAN_ID"] = sai.U32Value(10)
	current.Insert(candA)

	candB := sai.NewObject(sai.ObjectTypeVLAN, sai.OIDKey(sai.ObjectTypeVLAN, sai.EncodeVID(sai.ObjectTypeVLAN, 0, 2)))
	candB.Attrs["VLAN_ID"] = sai.U32Value(20)
	current.Insert(candB)

	tempVLAN := sai.NewObject(sai.ObjectTypeVLAN, sai.OIDKey(sai.ObjectTypeVLAN, sai.EncodeVID(sai.ObjectTypeVLAN, 0, 99)))
	tempVLAN.Attrs["VLAN_ID"] = sai.U32Value(10)
	temp.Insert(tempVLAN)

	m := New(current, temp, rv, 1)
	got, err := m.FindBestCurrentMatch(tempVLAN)
	require.NoError(t, err)
	require.Same(t, candA, got)
}

func TestMatchNonOIDReturnsNilWhenDependencyUnresolved(t *testing.T) {
	current := asicview.New()
	temp := asicview.New()
	rv := newRIDVID(t)

	sw := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	vr := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 5)

	route := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vr, "10.0.0.0/24"))
	temp.Insert(route)

	m := New(current, temp, rv, 1)
	got, err := m.FindBestCurrentMatch(route)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMatchNonOIDFindsRewrittenMatch(t *testing.T) {
	ctx := context.Background()
	current := asicview.New()
	temp := asicview.New()
	rv := newRIDVID(t)

	sw := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	vrTemp := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 5)
	vrCur := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 6)
	require.NoError(t, rv.Insert(ctx, vrTemp, sai.RID(7)))
	require.NoError(t, rv.Insert(ctx, vrCur, sai.RID(7)))
	require.NoError(t, rv.Insert(ctx, sw, sai.RID(1)))

	curRoute := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vrCur, "10.0.0.0/24"))
	current.Insert(curRoute)

	tempRoute := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vrTemp, "10.0.0.0/24"))
	temp.Insert(tempRoute)

	m := New(current, temp, rv, 1)
	got, err := m.FindBestCurrentMatch(tempRoute)
	require.NoError(t, err)
	require.Same(t, curRoute, got)
}

func TestMatchNonOIDDuplicateInvariant(t *testing.T) {
	ctx := context.Background()
	current := asicview.New()
	temp := asicview.New()
	rv := newRIDVID(t)

	sw := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	vr := sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, 5)
	require.NoError(t, rv.Insert(ctx, sw, sai.RID(1)))
	require.NoError(t, rv.Insert(ctx, vr, sai.RID(2)))

	curRoute := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vr, "10.0.0.0/24"))
	curRoute.SetStatus(sai.Final)
	current.Insert(curRoute)

	tempRoute := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vr, "10.0.0.0/24"))
	temp.Insert(tempRoute)

	m := New(current, temp, rv, 1)
	_, err := m.FindBestCurrentMatch(tempRoute)
	require.ErrorIs(t, err, ErrDuplicateNonOIDMatch)
}
