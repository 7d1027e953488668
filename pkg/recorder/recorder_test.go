package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowbridge/syncd/pkg/sai"
)

func TestCreateRemoveSetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncd.rec")
	r, err := New(path)
	require.NoError(t, err)

	vid := sai.EncodeVID(sai.ObjectTypePort, 0, 1)
	key := sai.OIDKey(sai.ObjectTypePort, vid)

	require.NoError(t, r.Create(key, map[sai.AttrID]sai.Value{
		sai.AttrID("PORT_ADMIN_STATE"): sai.BoolValue(true),
	}))
	require.NoError(t, r.Set(key, sai.AttrID("PORT_MTU"), sai.U32Value(1500)))
	require.NoError(t, r.Remove(key))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4) // recording-on comment + 3 events

	records, err := ReadAll(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.Equal(t, TagComment, records[0].Tag)
	require.Equal(t, TagCreate, records[1].Tag)
	require.Equal(t, TagSet, records[2].Tag)
	require.Equal(t, TagRemove, records[3].Tag)

	createFields := records[1].Fields()
	require.Equal(t, key.String(), createFields[0])
	require.Contains(t, createFields[1], "PORT_ADMIN_STATE=true")
}

func TestApplyRequestResponseCorrelation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncd.rec")
	r, err := New(path)
	require.NoError(t, err)

	id, err := r.ApplyRequest()
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, r.ApplyResponse(id, true))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := ReadAll(strings.NewReader(string(data)))
	require.NoError(t, err)

	var reqID, respID string
	for _, rec := range records {
		switch rec.Tag {
		case TagApplyRequest:
			reqID = rec.Fields()[0]
		case TagApplyResponse:
			fields := rec.Fields()
			respID = fields[0]
			require.Equal(t, "SUCCESS", fields[1])
		}
	}
	require.Equal(t, id, reqID)
	require.Equal(t, id, respID)
}

func TestReopenOnRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncd.rec")
	r, err := New(path)
	require.NoError(t, err)

	require.NoError(t, r.Comment("before rotate"))
	require.NoError(t, os.Rename(path, path+".1"))

	r.RequestReopen()
	require.NoError(t, r.Comment("after rotate"))
	require.NoError(t, r.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "reopen should recreate the file at the same path")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "logrotate on")
	require.Contains(t, string(data), "after rotate")
}

func TestFormatValueKinds(t *testing.T) {
	require.Equal(t, "true", FormatValue(sai.BoolValue(true)))
	require.Equal(t, "1500", FormatValue(sai.U32Value(1500)))

	vid := sai.EncodeVID(sai.ObjectTypePort, 0, 7)
	require.Equal(t, vid.String(), FormatValue(sai.OIDValue(vid)))

	list := FormatValue(sai.OIDListValue([]sai.VID{vid, vid}))
	require.Equal(t, vid.String()+","+vid.String(), list)
}

func TestFormatAttrsSortedDeterministic(t *testing.T) {
	attrs := map[sai.AttrID]sai.Value{
		sai.AttrID("B_ATTR"): sai.U32Value(2),
		sai.AttrID("A_ATTR"): sai.U32Value(1),
	}
	require.Equal(t, "A_ATTR=1|B_ATTR=2", FormatAttrs(attrs))
}

func TestNullStreamDiscardsEverything(t *testing.T) {
	var s Stream = NullStream{}
	require.NoError(t, s.Create(sai.Key{}, nil))
	id, err := s.ApplyRequest()
	require.NoError(t, err)
	require.Empty(t, id)
	require.NoError(t, s.Sleep(time.Millisecond))
}
