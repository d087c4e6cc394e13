// Package feed holds the neutral, serialiser-agnostic in-memory form
// of an OPDS catalog document. pkg/opds/v1 renders a Feed as Atom 1.0
// XML; pkg/opds/v2 renders the same Feed as OPDS 2.0 JSON. Keeping feed
// content (titles, hrefs, pagination, acquisition links) in one shape
// and splitting only at the serialiser avoids the two route trees
// drifting in semantics (spec.md §9 "OPDS 1.2 vs 2.0 as a single
// navigation model with two serialisers").
//
// The struct shapes are adapted from the teacher's own Feed/Entry/Link
// model (shishobooks-shisho/pkg/opds/feed.go), generalised from that
// project's audiobook/manga acquisition model to spec.md §4.E/§4.F's
// book entries, facets, and navigation counts.
package feed

import "time"

// Link is one Atom <link> element or OPDS 2.0 link object. Width/Height
// are non-zero only for image links that carry known dimensions.
type Link struct {
	Rel         string
	Href        string
	Type        string
	Title       string
	FacetGroup  string
	ActiveFacet bool
	Templated   bool
	Width       int
	Height      int
}

// Author is one Atom <author> or OPDS 2.0 author string; URI links to
// that author's book list when known.
type Author struct {
	Name string
	URI  string
}

// Category is one genre/subject tag.
type Category struct {
	Term  string
	Label string
}

// Entry is one feed item: either a navigation entry (a link to another
// feed) or an acquisition entry (a book, carrying download/acquisition
// links and publication metadata).
type Entry struct {
	ID         string
	Title      string
	Updated    time.Time
	Published  time.Time
	Language   string
	Publisher  string
	Identifier string
	Summary    string
	Content    string
	Authors    []Author
	Categories []Category
	Links      []Link
}

// Kind distinguishes a Feed that only links to other feeds from one
// that lists acquirable publications, the distinction spec.md §4.E's
// navigation/acquisition MIME types encode.
type Kind int

const (
	KindNavigation Kind = iota
	KindAcquisition
)

// Feed is one OPDS document: a navigation menu or a (possibly paginated)
// list of books.
type Feed struct {
	ID            string
	Title         string
	Subtitle      string
	Updated       time.Time
	Kind          Kind
	NumberOfItems int
	Links         []Link
	Entries       []Entry
}

// AddLink appends l to f's top-level links, returning f for chaining.
func (f *Feed) AddLink(l Link) *Feed {
	f.Links = append(f.Links, l)
	return f
}

// AddEntry appends e to f's entries, returning f for chaining.
func (f *Feed) AddEntry(e Entry) *Feed {
	f.Entries = append(f.Entries, e)
	return f
}

// AddLink appends l to e's links, returning e for chaining.
func (e *Entry) AddLink(l Link) *Entry {
	e.Links = append(e.Links, l)
	return e
}

// Well-known link relations, spec.md §4.E/§6's "exact OPDS 1.2 link-rel
// strings".
const (
	RelSelf          = "self"
	RelStart         = "start"
	RelUp            = "up"
	RelSubsection    = "subsection"
	RelNext          = "next"
	RelPrevious      = "prev"
	RelFirst         = "first"
	RelLast          = "last"
	RelSearch        = "search"
	RelAcquisition   = "http://opds-spec.org/acquisition/open-access"
	RelImage         = "http://opds-spec.org/image"
	RelThumbnail     = "http://opds-spec.org/image/thumbnail"
	RelRelated       = "related"
	RelAlternate     = "alternate"
	RelFacet         = "http://opds-spec.org/facet"
)

// Feed-level MIME types, spec.md §4.E.
const (
	MimeTypeNavigation  = "application/atom+xml;profile=opds-catalog;kind=navigation"
	MimeTypeAcquisition = "application/atom+xml;profile=opds-catalog"
	MimeTypeOpenSearch  = "application/opensearchdescription+xml"
	MimeTypeOPDS2       = "application/opds+json; charset=utf-8"
)

// noZipFormats holds the book formats spec.md §4.E/§4.H exclude from
// the zipped-acquisition/zipped-download link: EPUB and MOBI are
// already compressed containers, so wrapping them in another ZIP buys
// nothing.
var noZipFormats = map[string]bool{
	"epub": true,
	"mobi": true,
}

// IsNoZipFormat reports whether format should never get a zipped
// acquisition/download link (spec.md §4.E "is_nozip_format").
func IsNoZipFormat(format string) bool {
	return noZipFormats[format]
}

// mimeByFormat is spec.md §6's exact per-format MIME string table.
var mimeByFormat = map[string]string{
	"fb2":  "application/fb2+xml",
	"epub": "application/epub+zip",
	"mobi": "application/x-mobipocket-ebook",
	"pdf":  "application/pdf",
	"djvu": "image/vnd.djvu",
	"doc":  "application/msword",
	"docx": "application/msword",
	"txt":  "text/plain",
	"rtf":  "text/rtf",
}

// MimeType returns the acquisition MIME type for a book format, falling
// back to application/octet-stream for anything not in spec.md §6's
// table.
func MimeType(format string) string {
	if m, ok := mimeByFormat[format]; ok {
		return m
	}
	return "application/octet-stream"
}

// ZipMimeType returns the MIME type of format wrapped in a ZIP archive.
// FB2's zipped form is conventionally "application/fb2+zip" rather than
// "application/fb2+xml+zip" (spec.md §6 "Zipped-download MIME for FB2").
func ZipMimeType(format string) string {
	if format == "fb2" {
		return "application/fb2+zip"
	}
	return MimeType(format) + "+zip"
}

// coverExtByMime holds the same MIME-to-extension mapping the scanner's
// saveCover uses for sniffed cover images (pkg/scanner keeps its own
// copy of the table).
var coverExtByMime = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// CoverExt returns the file extension a cover of the given sniffed MIME
// type is stored under, defaulting to "jpg".
func CoverExt(mimeType string) string {
	if ext, ok := coverExtByMime[mimeType]; ok {
		return ext
	}
	return "jpg"
}
