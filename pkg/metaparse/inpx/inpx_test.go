package inpx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildINPX(t *testing.T, inpName string, lines []string) *zip.Reader {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	f, err := w.Create(inpName)
	require.NoError(t, err)
	for _, l := range lines {
		_, err = f.Write([]byte(l + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return r
}

func field(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\x04"
		}
		out += p
	}
	return out
}

func TestParse(t *testing.T) {
	line := field("Verne,Jules", "sf:adventure", "Around the World", "Voyages", "5", "stem1", "123456", "", "", "fb2", "1873", "en")
	r := buildINPX(t, "lib.inp", []string{line})

	recs, err := Parse(r)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, []string{"Verne Jules"}, rec.Meta.Authors)
	assert.Equal(t, []string{"sf", "adventure"}, rec.Meta.Genres)
	assert.Equal(t, "Around the World", rec.Meta.Title)
	assert.Equal(t, "Voyages", rec.Meta.SeriesTitle)
	assert.Equal(t, 5, rec.Meta.SeriesIndex)
	assert.Equal(t, int64(123456), rec.Size)
	assert.Equal(t, "fb2", rec.Ext)
	assert.Equal(t, "1873", rec.Meta.Docdate)
	assert.Equal(t, "en", rec.Meta.Lang)
	assert.Equal(t, "lib.zip", rec.Folder)
}

func TestParse_SkipsDeleted(t *testing.T) {
	line := field("A", "g", "T", "", "", "stem", "1", "", "1", "fb2", "2000", "en")
	r := buildINPX(t, "lib.inp", []string{line})

	recs, err := Parse(r)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParse_SkipsShortRecords(t *testing.T) {
	r := buildINPX(t, "lib.inp", []string{field("A", "g", "T")})
	recs, err := Parse(r)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
