package sai

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	v, err := Parse(KindBool, "true")
	require.NoError(t, err)
	require.Equal(t, BoolValue(true), v)

	v, err = Parse(KindBool, "false")
	require.NoError(t, err)
	require.Equal(t, BoolValue(false), v)

	_, err = Parse(KindBool, "yes")
	require.Error(t, err)
}

func TestParseUints(t *testing.T) {
	v, err := Parse(KindU32, "1500")
	require.NoError(t, err)
	require.Equal(t, U32Value(1500), v)
}

func TestParseS32(t *testing.T) {
	v, err := Parse(KindS32, "-7")
	require.NoError(t, err)
	require.Equal(t, S32Value(-7), v)
}

func TestParseMAC(t *testing.T) {
	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)

	v, err := Parse(KindMAC, "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	require.Equal(t, MACValue(mac), v)
}

func TestParseIPv4(t *testing.T) {
	v, err := Parse(KindIPv4, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, net.ParseIP("10.0.0.1").To4(), net.IP(v.Raw))
}

func TestParseBytes(t *testing.T) {
	v, err := Parse(KindBytes, "deadbeef")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, v.Raw)
}

func TestParseU32List(t *testing.T) {
	v, err := Parse(KindU32List, "1,2,3")
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, v.List)

	v, err = Parse(KindU32List, "")
	require.NoError(t, err)
	require.Nil(t, v.List)
}

func TestParseOID(t *testing.T) {
	vid := EncodeVID(ObjectTypePort, 0, 1)
	v, err := Parse(KindOID, vid.String())
	require.NoError(t, err)
	require.Equal(t, OIDValue(vid), v)
}

func TestParseOIDList(t *testing.T) {
	a := EncodeVID(ObjectTypePort, 0, 1)
	b := EncodeVID(ObjectTypePort, 0, 2)
	v, err := Parse(KindOIDList, a.String()+","+b.String())
	require.NoError(t, err)
	require.Equal(t, OIDListValue([]VID{a, b}), v)
}

func TestParseACLFieldDisabled(t *testing.T) {
	v, err := Parse(KindACLField, "false:")
	require.NoError(t, err)
	require.False(t, v.ACLEnabled)
	require.Equal(t, Value{}, *v.ACLPayload)
}

func TestParseACLFieldIPPayload(t *testing.T) {
	v, err := Parse(KindACLField, "true:10.0.0.1")
	require.NoError(t, err)
	require.True(t, v.ACLEnabled)
	require.Equal(t, KindIPv4, v.ACLPayload.Kind)
}

func TestParseACLActionOIDPayload(t *testing.T) {
	vid := EncodeVID(ObjectTypePort, 0, 9)
	v, err := Parse(KindACLAction, "true:"+vid.String())
	require.NoError(t, err)
	require.True(t, v.ACLEnabled)
	require.Equal(t, KindOID, v.ACLPayload.Kind)
	require.Equal(t, vid, v.ACLPayload.OID)
}

func TestParseQoSMap(t *testing.T) {
	v, err := Parse(KindQoSMap, "0:1,2:3")
	require.NoError(t, err)
	require.Equal(t, []MapEntry{{Key: 0, Value: 1}, {Key: 2, Value: 3}}, v.Map)
}
