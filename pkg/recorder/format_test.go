package recorder

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowbridge/syncd/pkg/sai"
)

func TestFormatValueParseRoundTrip(t *testing.T) {
	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	vid := sai.EncodeVID(sai.ObjectTypePort, 0, 5)

	cases := []struct {
		name string
		v    sai.Value
	}{
		{"bool", sai.BoolValue(true)},
		{"u32", sai.U32Value(1500)},
		{"s32", sai.S32Value(-3)},
		{"mac", sai.MACValue(mac)},
		{"oid", sai.OIDValue(vid)},
		{"oidlist", sai.OIDListValue([]sai.VID{vid, vid})},
		{"u32list", sai.Value{Kind: sai.KindU32List, List: []uint32{1, 2, 3}}},
		{"qosmap", sai.Value{Kind: sai.KindQoSMap, Map: []sai.MapEntry{{Key: 1, Value: 2}}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			text := FormatValue(c.v)
			parsed, err := sai.Parse(c.v.Kind, text)
			require.NoError(t, err)
			require.True(t, c.v.Equal(parsed))
		})
	}
}

func TestParseAttrUsesRegisteredKind(t *testing.T) {
	id, v, err := ParseAttr(sai.ObjectTypePort, "PORT_MTU=1500")
	require.NoError(t, err)
	require.Equal(t, sai.AttrID("PORT_MTU"), id)
	require.Equal(t, sai.U32Value(1500), v)
}

func TestParseAttrUnregisteredFallsBackToBytes(t *testing.T) {
	id, v, err := ParseAttr(sai.ObjectTypePort, "CUSTOM_VENDOR_ATTR=whatever")
	require.NoError(t, err)
	require.Equal(t, sai.AttrID("CUSTOM_VENDOR_ATTR"), id)
	require.Equal(t, sai.KindBytes, v.Kind)
	require.Equal(t, []byte("whatever"), v.Raw)
}

func TestParseAttrsRoundTrip(t *testing.T) {
	attrs := map[sai.AttrID]sai.Value{
		sai.AttrID("PORT_ADMIN_STATE"): sai.BoolValue(true),
		sai.AttrID("PORT_MTU"):         sai.U32Value(9000),
	}
	text := FormatAttrs(attrs)

	parsed, err := ParseAttrs(sai.ObjectTypePort, text)
	require.NoError(t, err)
	require.Equal(t, attrs, parsed)
}

func TestParseAttrsEmpty(t *testing.T) {
	parsed, err := ParseAttrs(sai.ObjectTypePort, "")
	require.NoError(t, err)
	require.Empty(t, parsed)
}
