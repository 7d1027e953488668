package exec

import (
	"testing"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/sai"
	"github.com/stretchr/testify/require"
)

func vid(t sai.ObjectType, counter uint64) sai.VID {
	return sai.EncodeVID(t, 0, counter)
}

func oidObj(v sai.VID) *sai.Object {
	return sai.NewObject(v.ObjectType(), sai.OIDKey(v.ObjectType(), v))
}

// TestHoistOrdering implements P6's worked example (spec.md §8): non-OID
// removes go first; an OID remove whose VID last hit zero refcount at a
// known op id is reinserted right after that op; an OID remove with no
// recorded decref (never referenced) falls to the front of the general
// operations instead of trailing at the end.
func TestHoistOrdering(t *testing.T) {
	routeVID := vid(sai.ObjectTypePort, 99) // stand-in non-OID op object, type irrelevant to hoist
	route := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(vid(sai.ObjectTypeSwitch, 0), routeVID, "10.0.0.0/24"))
	nonOID := []asicview.Operation{{ID: 100, Kind: asicview.OpRemove, Object: route}}

	a := oidObj(vid(sai.ObjectTypePort, 1))
	c := oidObj(vid(sai.ObjectTypePort, 2))
	bVID := vid(sai.ObjectTypeVirtualRouter, 3)
	b := oidObj(bVID)
	dVID := vid(sai.ObjectTypeNextHop, 4)
	d := oidObj(dVID)
	eVID := vid(sai.ObjectTypeNextHop, 5)
	e := oidObj(eVID)

	general := []asicview.Operation{
		{ID: 1, Kind: asicview.OpCreate, Object: a},
		{ID: 2, Kind: asicview.OpCreate, Object: c},
		{ID: 3, Kind: asicview.OpSet, Object: b},
		{ID: 4, Kind: asicview.OpRemove, Object: d},
		{ID: 5, Kind: asicview.OpRemove, Object: e},
	}

	lastDecref := func(v sai.VID) (uint64, bool) {
		if v == dVID {
			return 3, true
		}
		return 0, false
	}

	got := hoist(nonOID, general, lastDecref)

	require.Len(t, got, 6)
	require.Equal(t, nonOID[0], got[0])
	require.Equal(t, e, got[1].Object)
	require.Equal(t, a, got[2].Object)
	require.Equal(t, c, got[3].Object)
	require.Equal(t, b, got[4].Object)
	require.Equal(t, d, got[5].Object)
}

// TestHoistPreservesNonOIDOrder confirms multiple non-OID removes keep
// their relative emission order at the front.
func TestHoistPreservesNonOIDOrder(t *testing.T) {
	r1 := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(vid(sai.ObjectTypeSwitch, 0), vid(sai.ObjectTypeVirtualRouter, 1), "10.0.0.0/24"))
	r2 := sai.NewObject(sai.ObjectTypeRouteEntry, sai.RouteEntryKey(vid(sai.ObjectTypeSwitch, 0), vid(sai.ObjectTypeVirtualRouter, 1), "10.0.1.0/24"))
	nonOID := []asicview.Operation{
		{ID: 10, Kind: asicview.OpRemove, Object: r1},
		{ID: 11, Kind: asicview.OpRemove, Object: r2},
	}

	got := hoist(nonOID, nil, func(sai.VID) (uint64, bool) { return 0, false })
	require.Equal(t, []asicview.Operation{nonOID[0], nonOID[1]}, got)
}
