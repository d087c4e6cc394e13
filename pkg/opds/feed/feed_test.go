package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoZipFormat(t *testing.T) {
	assert.True(t, IsNoZipFormat("epub"))
	assert.True(t, IsNoZipFormat("mobi"))
	assert.False(t, IsNoZipFormat("fb2"))
	assert.False(t, IsNoZipFormat("pdf"))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/fb2+xml", MimeType("fb2"))
	assert.Equal(t, "application/epub+zip", MimeType("epub"))
	assert.Equal(t, "application/octet-stream", MimeType("unknown-format"))
}

func TestZipMimeType(t *testing.T) {
	assert.Equal(t, "application/fb2+zip", ZipMimeType("fb2"))
	assert.Equal(t, "application/pdf+zip", ZipMimeType("pdf"))
}

func TestCoverExt(t *testing.T) {
	assert.Equal(t, "jpg", CoverExt("image/jpeg"))
	assert.Equal(t, "png", CoverExt("image/png"))
	assert.Equal(t, "jpg", CoverExt("image/unknown"))
}

func TestFeedBuilders(t *testing.T) {
	f := &Feed{ID: "tag:root", Title: "Root"}
	f.AddLink(Link{Rel: RelSelf, Href: "/opds/", Type: MimeTypeNavigation})
	e := Entry{ID: "tag:catalogs:1:1", Title: "Books"}
	e.AddLink(Link{Rel: RelSubsection, Href: "/opds/catalogs/1/"})
	f.AddEntry(e)

	assert.Len(t, f.Links, 1)
	assert.Len(t, f.Entries, 1)
	assert.Len(t, f.Entries[0].Links, 1)
}
