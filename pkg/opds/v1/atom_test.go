package v1

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

func TestRender_NavigationFeed(t *testing.T) {
	f := &feed.Feed{
		ID:      "tag:root",
		Title:   "ROPDS",
		Kind:    feed.KindNavigation,
		Updated: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: "/opds/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelStart, Href: "/opds/", Type: feed.MimeTypeNavigation})
	f.AddEntry(feed.NavEntry("tag:catalogs", "Catalogs", "/opds/catalogs/", feed.MimeTypeNavigation))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, f))

	out := buf.String()
	assert.Contains(t, out, `xmlns="http://www.w3.org/2005/Atom"`)
	assert.Contains(t, out, `xmlns:opds="http://opds-spec.org/2010/catalog"`)
	assert.Contains(t, out, "<title>ROPDS</title>")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.Contains(t, out, "Catalogs")
	assert.Equal(t, feed.MimeTypeNavigation, ContentType(f))
}

func TestRender_AcquisitionFeedEntry(t *testing.T) {
	f := &feed.Feed{ID: "tag:books", Title: "Books", Kind: feed.KindAcquisition}
	e := feed.Entry{ID: "tag:book:1", Title: "A Book", Content: "<p>Title: A Book</p>"}
	e.AddLink(feed.Link{Rel: feed.RelAcquisition, Href: "/opds/download/1/0/", Type: "application/fb2+xml"})
	f.AddEntry(e)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, f))
	out := buf.String()
	assert.Contains(t, out, "<entry>")
	assert.Equal(t, feed.MimeTypeAcquisition, ContentType(f))
}

func TestRenderOpenSearch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderOpenSearch(&buf, feed.OpenSearchDescription{
		ShortName:   "ROPDS",
		Description: "Search ROPDS",
		URLTemplate: "/opds/search/books/b/{searchTerms}/",
	}))
	out := buf.String()
	assert.Contains(t, out, "OpenSearchDescription")
	assert.Contains(t, out, "{searchTerms}")
}
