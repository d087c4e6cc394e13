package browse

import (
	"fmt"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// addPaginationLinks appends prev/next/first/last links for a window
// at basePath (which must already end in the feed's path, e.g.
// "/opds/recent/") paginated at page of pages total, the link set
// every paginated acquisition feed in spec.md §4.G carries.
func addPaginationLinks(f *feed.Feed, navType string, basePath string, page, pages int) {
	if page > 1 {
		f.AddLink(feed.Link{Rel: feed.RelFirst, Href: fmt.Sprintf("%s1/", basePath), Type: navType})
		f.AddLink(feed.Link{Rel: feed.RelPrevious, Href: fmt.Sprintf("%s%d/", basePath, page-1), Type: navType})
	}
	if page < pages {
		f.AddLink(feed.Link{Rel: feed.RelNext, Href: fmt.Sprintf("%s%d/", basePath, page+1), Type: navType})
		f.AddLink(feed.Link{Rel: feed.RelLast, Href: fmt.Sprintf("%s%d/", basePath, pages), Type: navType})
	}
}

// searchLinks adds the pair of OpenSearch links: one "search" rel
// pointing at the description document, one pointing directly at the
// templated books search endpoint. Only the root navigation feed
// carries this pair; other feeds have no search links.
func searchLinks(f *feed.Feed, navBase string) {
	f.AddLink(feed.Link{Rel: feed.RelSearch, Href: navBase + "/search/opensearch.xml", Type: feed.MimeTypeOpenSearch})
	f.AddLink(feed.Link{Rel: feed.RelSearch, Href: navBase + "/search/books/b/{searchTerms}/", Type: feed.MimeTypeNavigation, Templated: true})
}
