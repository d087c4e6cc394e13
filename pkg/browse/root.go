package browse

import (
	"context"

	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Root builds the top-level navigation feed linking to every major
// section (spec.md §4.G root entry). navBase is "/opds" or "/opds/v2".
// The bookshelf entry is listed for every caller, authenticated or
// not, and carries no book count.
func (svc *Service) Root(ctx context.Context, navBase string) (*feed.Feed, error) {
	counts, err := svc.counters.All(ctx)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{
		ID:    feed.Tag("root"),
		Title: svc.cfg.Title,
		Kind:  feed.KindNavigation,
	}
	if svc.cfg.Subtitle != "" {
		f.Subtitle = svc.cfg.Subtitle
	}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelStart, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	searchLinks(f, navBase)

	f.AddEntry(feed.CountedNavEntry(feed.Tag("catalogs"), "Catalogs", navBase+"/catalogs/", feed.MimeTypeNavigation, counts[models.CounterAllCatalogs]))
	f.AddEntry(feed.CountedNavEntry(feed.Tag("authors"), "Authors", navBase+"/authors/", feed.MimeTypeNavigation, counts[models.CounterAllAuthors]))
	f.AddEntry(feed.CountedNavEntry(feed.Tag("series"), "Series", navBase+"/series/", feed.MimeTypeNavigation, counts[models.CounterAllSeries]))
	f.AddEntry(feed.CountedNavEntry(feed.Tag("books"), "Books", navBase+"/books/", feed.MimeTypeNavigation, counts[models.CounterAllBooks]))
	f.AddEntry(feed.CountedNavEntry(feed.Tag("genres"), "Genres", navBase+"/genres/", feed.MimeTypeNavigation, counts[models.CounterAllGenres]))
	f.AddEntry(feed.NavEntry(feed.Tag("recent"), "Recently added", navBase+"/recent/", feed.MimeTypeAcquisition))
	f.AddEntry(feed.NavEntry(feed.Tag("bookshelf"), "My bookshelf", navBase+"/bookshelf/", feed.MimeTypeAcquisition))

	return f, nil
}
