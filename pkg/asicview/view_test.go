package asicview

import (
	"testing"

	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

func portVID(counter uint64) sai.VID {
	return sai.EncodeVID(sai.ObjectTypePort, 0, counter)
}

func vrVID(counter uint64) sai.VID {
	return sai.EncodeVID(sai.ObjectTypeVirtualRouter, 0, counter)
}

// TestRefcountSoundness is the P2/P3 properties from spec.md §8:
// reference counts never go negative and creating+removing an object
// leaves every referenced VID's count unchanged net.
func TestRefcountSoundness(t *testing.T) {
	v := New()

	vr := vrVID(1)
	require.NoError(t, v.InsertNewVID(vr))

	rif := sai.NewObject(sai.ObjectTypeRouterInterface, sai.OIDKey(sai.ObjectTypeRouterInterface, portVID(2)))
	rif.Attrs["ROUTER_INTERFACE_VIRTUAL_ROUTER_ID"] = sai.OIDValue(vr)
	v.CreateObject(rif)

	require.EqualValues(t, 1, v.ReferenceCount(vr))

	v.RemoveObject(rif)
	require.EqualValues(t, 0, v.ReferenceCount(vr))

	id, ok := v.LastDecrefOpID(vr)
	require.True(t, ok)
	require.Greater(t, id, uint64(0))
}

func TestSetAttributeReleasesOldBindsNew(t *testing.T) {
	v := New()
	vr1 := vrVID(1)
	vr2 := vrVID(2)
	require.NoError(t, v.InsertNewVID(vr1))
	require.NoError(t, v.InsertNewVID(vr2))

	rif := sai.NewObject(sai.ObjectTypeRouterInterface, sai.OIDKey(sai.ObjectTypeRouterInterface, portVID(5)))
	v.CreateObject(rif)
	v.SetAttribute(rif, "ROUTER_INTERFACE_VIRTUAL_ROUTER_ID", sai.OIDValue(vr1))
	require.EqualValues(t, 1, v.ReferenceCount(vr1))

	v.SetAttribute(rif, "ROUTER_INTERFACE_VIRTUAL_ROUTER_ID", sai.OIDValue(vr2))
	require.EqualValues(t, 0, v.ReferenceCount(vr1))
	require.EqualValues(t, 1, v.ReferenceCount(vr2))
}

func TestRemoveObjectPlacesNonOIDOnFrontQueue(t *testing.T) {
	v := New()
	sw := sai.EncodeVID(sai.ObjectTypeSwitch, 0, 0)
	vr := vrVID(1)
	require.NoError(t, v.InsertNewVID(vr))

	route := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(sw, vr, "10.0.0.0/24"))
	v.CreateObject(route)
	require.EqualValues(t, 1, v.ReferenceCount(vr))

	v.RemoveObject(route)
	require.Len(t, v.NonOIDRemoveOperations(), 1)
	require.Len(t, v.GeneralOperations(), 1) // only the create
	require.Equal(t, sai.Removed, route.Status)
	require.EqualValues(t, 0, v.ReferenceCount(vr))
}

func TestInsertNewVIDRejectsDuplicate(t *testing.T) {
	v := New()
	vid := portVID(1)
	require.NoError(t, v.InsertNewVID(vid))
	require.Error(t, v.InsertNewVID(vid))
}

func TestCreateDummyExistingObjectIsNotProcessed(t *testing.T) {
	v := New()
	vid := portVID(9)
	obj := v.CreateDummyExistingObject(vid)
	require.Equal(t, sai.NotProcessed, obj.Status)

	got, ok := v.Get(sai.ObjectTypePort, sai.OIDKey(sai.ObjectTypePort, vid))
	require.True(t, ok)
	require.Same(t, obj, got)
}
