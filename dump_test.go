package gsacache_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hupe1980/gsacache"
	"github.com/hupe1980/gsacache/codec"
	"github.com/hupe1980/gsacache/model"
	"github.com/hupe1980/gsacache/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t *testing.T, opts ...gsacache.Option) *gsacache.Cache {
	t.Helper()

	c := gsacache.New(append([]gsacache.Option{gsacache.WithSessionID("dump-session")}, opts...)...)
	r := testutil.Record{Type: beam, Index: 1, AppID: "a", Stream: "s1", Payload: "x"}
	_, err := c.Upsert(r, nil)
	require.NoError(t, err)
	c.ResolveIndex(beam, "pending")
	require.NoError(t, c.SetSpeckleObjects(r, map[string]any{"a": map[string]any{"name": "a"}}, model.LayerBoth))
	return c
}

func TestDump_RoundTrip(t *testing.T) {
	for _, comp := range []codec.Compression{codec.CompressionNone, codec.CompressionZstd, codec.CompressionLZ4} {
		for _, cd := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
			t.Run(comp.String()+"/"+cd.Name(), func(t *testing.T) {
				c := populated(t, gsacache.WithCodec(cd), gsacache.WithDumpCompression(comp))

				var buf bytes.Buffer
				require.NoError(t, c.Dump(&buf))

				header, _, ok := strings.Cut(buf.String(), "\n")
				require.True(t, ok)
				assert.Equal(t, "gsacache-dump/1 "+cd.Name()+" "+comp.String(), header)

				doc, err := gsacache.ReadDump(&buf)
				require.NoError(t, err)

				assert.Equal(t, "dump-session", doc.SessionID)
				require.Len(t, doc.Records, 1)
				rec := doc.Records[0]
				assert.Equal(t, "EL.4", rec.SchemaType)
				assert.Equal(t, 1, rec.Index)
				assert.Equal(t, "a", rec.ApplicationID)
				assert.Equal(t, "s1", rec.StreamID)
				assert.True(t, rec.Latest)
				assert.True(t, rec.Alterable)
				assert.Equal(t, map[string]any{"type": "EL.4", "index": float64(1), "application_id": "a", "stream_id": "s1", "payload": "x"}, rec.Value)

				assert.Equal(t, []gsacache.DumpReservation{{SchemaType: "EL.4", Index: 2, ApplicationID: "pending"}}, doc.Reservations)

				require.Len(t, doc.Objects, 1)
				assert.Equal(t, "both", doc.Objects[0].Layer)
				assert.Equal(t, []int{1}, doc.Objects[0].Links)
			})
		}
	}
}

func TestReadDump_BadHeader(t *testing.T) {
	_, err := gsacache.ReadDump(strings.NewReader("not-a-dump json none\n{}"))
	require.Error(t, err)

	_, err = gsacache.ReadDump(strings.NewReader("gsacache-dump/1 xml none\n{}"))
	require.ErrorContains(t, err, "unknown codec")

	_, err = gsacache.ReadDump(strings.NewReader("gsacache-dump/1 json brotli\n{}"))
	require.ErrorContains(t, err, "unknown compression")

	_, err = gsacache.ReadDump(strings.NewReader(""))
	require.Error(t, err)
}
