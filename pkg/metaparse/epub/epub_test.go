package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const opfXML = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:opf="http://www.idpf.org/2007/opf">
  <metadata>
    <title>Dune</title>
    <creator opf:role="aut">Frank Herbert</creator>
    <subject>science fiction</subject>
    <language>en</language>
    <date>1965</date>
    <description>&lt;p&gt;A desert planet.&lt;/p&gt;</description>
    <meta name="calibre:series" content="Dune Saga"/>
    <meta name="calibre:series_index" content="1"/>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
  </manifest>
</package>`

func buildEPUB(t *testing.T) *zip.Reader {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	container := `<?xml version="1.0"?><container><rootfiles><rootfile full-path="OEBPS/content.opf"/></rootfiles></container>`
	f, err := w.Create("META-INF/container.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(container))
	require.NoError(t, err)

	f, err = w.Create("OEBPS/content.opf")
	require.NoError(t, err)
	_, err = f.Write([]byte(opfXML))
	require.NoError(t, err)

	f, err = w.Create("OEBPS/images/cover.jpg")
	require.NoError(t, err)
	_, err = f.Write([]byte("fake-jpeg-bytes"))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return r
}

func TestParse(t *testing.T) {
	r := buildEPUB(t)
	meta, err := Parse(r)
	require.NoError(t, err)

	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, []string{"Frank Herbert"}, meta.Authors)
	assert.Equal(t, []string{"science fiction"}, meta.Genres)
	assert.Equal(t, "en", meta.Lang)
	assert.Equal(t, "Dune Saga", meta.SeriesTitle)
	assert.Equal(t, 1, meta.SeriesIndex)
	assert.Equal(t, "A desert planet.", meta.Annotation)
	assert.Equal(t, []byte("fake-jpeg-bytes"), meta.CoverData)
	assert.Equal(t, "image/jpeg", meta.CoverType)
}
