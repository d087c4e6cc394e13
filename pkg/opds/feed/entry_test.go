package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/models"
)

func TestBookEntry_EpubHasNoZippedLink(t *testing.T) {
	book := &models.Book{
		ID:     7,
		Title:  "Test Book",
		Format: "epub",
		Size:   1024,
		Lang:   "en",
		Cover:  0,
		Authors: []*models.Author{
			{ID: 3, FullName: "Doe John"},
		},
	}

	e := BookEntry(book, "/opds", true)

	assert.Equal(t, "tag:book:7", e.ID)
	assert.Equal(t, "b:7", e.Identifier)
	require.Len(t, e.Authors, 1)
	assert.Equal(t, "Doe John", e.Authors[0].Name)

	var acqCount int
	var hasCover bool
	for _, l := range e.Links {
		if l.Rel == RelAcquisition {
			acqCount++
		}
		if l.Rel == RelImage {
			hasCover = true
		}
	}
	assert.Equal(t, 1, acqCount, "epub must not get a zipped acquisition link")
	assert.False(t, hasCover, "cover==0 must not produce an image link")
}

func TestBookEntry_Fb2GetsZippedLinkAndCover(t *testing.T) {
	book := &models.Book{
		ID:        9,
		Title:     "Zippable",
		Format:    "fb2",
		Cover:     1,
		CoverType: "image/jpeg",
	}

	e := BookEntry(book, "/opds/v2", true)

	var acqCount, imgCount, thumbCount int
	for _, l := range e.Links {
		switch l.Rel {
		case RelAcquisition:
			acqCount++
		case RelImage:
			imgCount++
		case RelThumbnail:
			thumbCount++
		}
	}
	assert.Equal(t, 2, acqCount, "fb2 must get both open and zipped acquisition links")
	assert.Equal(t, 1, imgCount)
	assert.Equal(t, 1, thumbCount)
}

func TestBookEntry_HidesCoversWhenDisabled(t *testing.T) {
	book := &models.Book{ID: 1, Title: "X", Format: "fb2", Cover: 1, CoverType: "image/jpeg"}
	e := BookEntry(book, "/opds", false)
	for _, l := range e.Links {
		assert.NotEqual(t, RelImage, l.Rel)
		assert.NotEqual(t, RelThumbnail, l.Rel)
	}
}

func TestTag(t *testing.T) {
	assert.Equal(t, "tag:root", Tag("root"))
	assert.Equal(t, "tag:catalogs:1:2", Tag("catalogs", "1", "2"))
}

func TestCountedNavEntry(t *testing.T) {
	e := CountedNavEntry("tag:authors", "Authors", "/opds/authors/", MimeTypeNavigation, 42)
	assert.Equal(t, "Authors (42)", e.Title)
}
