package feed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Tag builds one of spec.md §6's compact "ID-bearing tags"
// (tag:root, tag:catalogs:{id}:{page}, tag:authors:{lang}:{prefix}, ...)
// by joining kind with parts using ":".
func Tag(kind string, parts ...string) string {
	if len(parts) == 0 {
		return "tag:" + kind
	}
	return "tag:" + kind + ":" + strings.Join(parts, ":")
}

// BookEntry builds the acquisition Entry for one Book, carrying every
// link spec.md §4.E requires: a download link, an open-access
// acquisition link, a zipped acquisition link unless the format is
// excluded, cover/thumbnail links when a cover was extracted, one
// author link per linked author, and one category per linked genre.
// navBase is the version-specific feed root ("/opds" for Atom,
// "/opds/v2" for JSON) used for links back into the browse surface;
// cover and download links are always version-agnostic absolute paths
// per spec.md §6.
func BookEntry(book *models.Book, navBase string, showCovers bool) Entry {
	id := strconv.Itoa(book.ID)

	e := Entry{
		ID:         Tag("book", id),
		Title:      book.Title,
		Updated:    book.RegDate,
		Published:  book.RegDate,
		Language:   book.Lang,
		Identifier: "b:" + id,
		Content:    bookContent(book),
	}

	for _, a := range book.Authors {
		e.Authors = append(e.Authors, Author{
			Name: a.FullName,
			URI:  navBase + "/search/books/a/" + strconv.Itoa(a.ID) + "/",
		})
		e.AddLink(Link{
			Rel:   RelRelated,
			Href:  navBase + "/search/books/a/" + strconv.Itoa(a.ID) + "/",
			Type:  MimeTypeAcquisition,
			Title: a.FullName,
		})
	}
	for _, g := range book.Genres {
		label := g.LegacySubsection
		if label == "" {
			label = g.Code
		}
		e.Categories = append(e.Categories, Category{Term: g.Code, Label: label})
	}

	e.AddLink(Link{
		Rel:  RelAlternate,
		Href: "/opds/download/" + id + "/0/",
		Type: MimeType(book.Format),
	})
	e.AddLink(Link{
		Rel:  RelAcquisition,
		Href: "/opds/download/" + id + "/0/",
		Type: MimeType(book.Format),
	})
	if !IsNoZipFormat(book.Format) {
		e.AddLink(Link{
			Rel:  RelAcquisition,
			Href: "/opds/download/" + id + "/1/",
			Type: ZipMimeType(book.Format),
		})
	}

	if showCovers && book.Cover != 0 {
		coverType := book.CoverType
		if coverType == "" {
			coverType = "image/jpeg"
		}
		e.AddLink(Link{Rel: RelImage, Href: "/opds/cover/" + id + "/", Type: coverType})
		e.AddLink(Link{Rel: RelThumbnail, Href: "/opds/thumb/" + id + "/", Type: "image/jpeg", Width: 100, Height: 100})
	}

	return e
}

// bookContent renders the Title/Format/Size/Language/Date/annotation
// HTML block spec.md §4.E's book entries carry as <content type="html">.
func bookContent(book *models.Book) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Title: %s</p>", book.Title)
	fmt.Fprintf(&b, "<p>Format: %s</p>", strings.ToUpper(book.Format))
	fmt.Fprintf(&b, "<p>Size: %s</p>", humanize.IBytes(uint64(book.Size)))
	if book.Lang != "" {
		fmt.Fprintf(&b, "<p>Language: %s</p>", book.Lang)
	}
	if book.Docdate != "" {
		fmt.Fprintf(&b, "<p>Date: %s</p>", book.Docdate)
	}
	if book.Annotation != "" {
		fmt.Fprintf(&b, "<p>%s</p>", book.Annotation)
	}
	return b.String()
}

// NavEntry builds a navigation Entry pointing to another feed, the
// shape of the root/catalogs/authors/series/genres/recent/bookshelf
// menu items (spec.md §4.G).
func NavEntry(id, title, href, mimeType string) Entry {
	e := Entry{ID: id, Title: title}
	e.AddLink(Link{Rel: RelSubsection, Href: href, Type: mimeType})
	return e
}

// CountedNavEntry is NavEntry with the item count appended to the
// title, the form the root feed uses for its catalogs, authors, series,
// books and genres entries, e.g. "Authors (1337)".
func CountedNavEntry(id, title, href, mimeType string, count int64) Entry {
	return NavEntry(id, fmt.Sprintf("%s (%d)", title, count), href, mimeType)
}

// OpenSearchDescription is the document served at
// {navBase}/search/opensearch.xml, referenced by the root feed's
// OpenSearch search link.
type OpenSearchDescription struct {
	ShortName   string
	Description string
	URLTemplate string
}
