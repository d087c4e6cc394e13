package browse

import (
	"context"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Facets builds the language facet link set, one facet link per
// distinct language present among Confirmed books, either accepted as
// a "?lang=" query parameter or as a "/opds/lang/{locale}/" root-path
// form (spec.md §4.E/§4.G).
func (svc *Service) Facets(ctx context.Context, navBase, activeLang string) (*feed.Feed, error) {
	langs, err := svc.books.Languages(ctx)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{ID: feed.Tag("facets", "languages"), Title: "Languages", Kind: feed.KindNavigation, NumberOfItems: len(langs)}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/facets/languages/", Type: feed.MimeTypeNavigation})
	for _, lang := range langs {
		f.AddLink(feed.Link{
			Rel:         feed.RelFacet,
			Href:        navBase + "/lang/" + lang + "/",
			Type:        feed.MimeTypeNavigation,
			Title:       lang,
			FacetGroup:  "Language",
			ActiveFacet: lang == activeLang,
		})
	}
	return f, nil
}
