package sai

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeyOIDRoundTrip(t *testing.T) {
	vid := EncodeVID(ObjectTypeVLAN, 2, 7)
	key := OIDKey(ObjectTypeVLAN, vid)

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	require.Equal(t, key, parsed)
}

func TestParseKeyRouteEntryRoundTrip(t *testing.T) {
	sw := EncodeVID(ObjectTypeSwitch, 0, 1)
	vr := EncodeVID(ObjectTypeVirtualRouter, 0, 2)
	key := RouteEntryKey(sw, vr, "10.0.0.0/24")

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	require.Equal(t, key, parsed)
}

func TestParseKeyNeighborEntryRoundTrip(t *testing.T) {
	sw := EncodeVID(ObjectTypeSwitch, 0, 1)
	rif := EncodeVID(ObjectTypeRouterInterface, 0, 3)
	key := NeighborEntryKey(sw, rif, net.ParseIP("192.168.1.1"))

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	require.Equal(t, key.Type, parsed.Type)
	require.Equal(t, key.Neighbor.SwitchID, parsed.Neighbor.SwitchID)
	require.Equal(t, key.Neighbor.RIF, parsed.Neighbor.RIF)
	require.True(t, key.Neighbor.IP.Equal(parsed.Neighbor.IP))
}

func TestParseKeyFDBEntryRoundTrip(t *testing.T) {
	sw := EncodeVID(ObjectTypeSwitch, 0, 1)
	bridge := EncodeVID(ObjectTypeVLAN, 0, 4)
	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	key := FDBEntryKey(sw, "VLAN", bridge, mac)

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	require.Equal(t, key.Type, parsed.Type)
	require.Equal(t, key.FDB.SwitchID, parsed.FDB.SwitchID)
	require.Equal(t, key.FDB.BridgeType, parsed.FDB.BridgeType)
	require.Equal(t, key.FDB.BridgeID, parsed.FDB.BridgeID)
	require.Equal(t, key.FDB.MAC.String(), parsed.FDB.MAC.String())
}

// TestParseKeyPrefersLongestTypeName guards against STP matching before
// STP_PORT, which would otherwise leave a bogus "_PORT..." remainder.
func TestParseKeyPrefersLongestTypeName(t *testing.T) {
	vid := EncodeVID(ObjectTypeSTPPort, 0, 1)
	key := OIDKey(ObjectTypeSTPPort, vid)

	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	require.Equal(t, ObjectTypeSTPPort, parsed.Type)
	require.Equal(t, vid, parsed.OID)
}

func TestParseKeyUnknownPrefix(t *testing.T) {
	_, err := ParseKey("NOT_A_TYPEoid:0x0000000000000001")
	require.Error(t, err)
}
