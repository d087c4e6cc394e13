package browse

import (
	"context"
	"strconv"

	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// SearchChoices builds the navigation feed offering the three search
// scopes (title/author/series) for a typed term (spec.md §4.G
// "/search/{terms}/").
func (svc *Service) SearchChoices(navBase, terms string) *feed.Feed {
	f := &feed.Feed{ID: feed.Tag("search", terms), Title: "Search: " + terms, Kind: feed.KindNavigation, NumberOfItems: 3}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/search/" + terms + "/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	f.AddEntry(feed.NavEntry(feed.Tag("search", "title"), "By title", navBase+"/search/books/b/"+terms+"/", feed.MimeTypeAcquisition))
	f.AddEntry(feed.NavEntry(feed.Tag("search", "author"), "By author", navBase+"/search/authors/b/"+terms+"/", feed.MimeTypeNavigation))
	f.AddEntry(feed.NavEntry(feed.Tag("search", "series"), "By series", navBase+"/search/series/b/"+terms+"/", feed.MimeTypeNavigation))
	return f
}

// SearchBooks dispatches one of spec.md §4.G's book search type codes
// (b=prefix, m=contains, e=exact, a=by-author-id, s=by-series-id,
// g=by-genre-id, i=direct-id) to the matching query-layer call and
// renders the paginated acquisition feed.
func (svc *Service) SearchBooks(ctx context.Context, navBase, typ, terms string, page int) (*feed.Feed, error) {
	limit, offset := svc.pageWindow(page)
	opts := books.ListOptions{Limit: limit, Offset: offset, HideDoubles: svc.cfg.HideDoubles}

	var list []*models.Book
	var total int
	var err error

	switch typ {
	case "a":
		id, convErr := strconv.Atoi(terms)
		if convErr != nil {
			return nil, errcodes.ValidationError("author id must be numeric")
		}
		list, total, err = svc.books.ByAuthor(ctx, id, opts)
	case "s":
		id, convErr := strconv.Atoi(terms)
		if convErr != nil {
			return nil, errcodes.ValidationError("series id must be numeric")
		}
		list, total, err = svc.books.BySeries(ctx, id, opts)
	case "g":
		id, convErr := strconv.Atoi(terms)
		if convErr != nil {
			return nil, errcodes.ValidationError("genre id must be numeric")
		}
		list, total, err = svc.genres.Books(ctx, id, limit, offset)
	default:
		list, total, err = svc.books.Search(ctx, typ, terms, opts)
	}
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{
		ID:            feed.Tag("search", "books", typ, terms, strconv.Itoa(page)),
		Title:         "Search results: " + terms,
		Kind:          feed.KindAcquisition,
		NumberOfItems: total,
	}
	basePath := navBase + "/search/books/" + typ + "/" + terms + "/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeAcquisition})
	addPaginationLinks(f, feed.MimeTypeAcquisition, basePath, page, totalPages(total, limit))
	for _, b := range list {
		f.AddEntry(feed.BookEntry(b, navBase, svc.cfg.ShowCovers))
	}
	return f, nil
}

// SearchAuthors dispatches an author search (b=prefix, m=contains,
// e=exact) and renders the matching authors as navigation entries
// linking to their book lists.
func (svc *Service) SearchAuthors(ctx context.Context, navBase, typ, terms string, page int) (*feed.Feed, error) {
	limit, offset := svc.pageWindow(page)
	list, total, err := svc.authors.Search(ctx, typ, terms, limit, offset)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{ID: feed.Tag("search", "authors", typ, terms, strconv.Itoa(page)), Title: "Authors: " + terms, Kind: feed.KindNavigation, NumberOfItems: total}
	basePath := navBase + "/search/authors/" + typ + "/" + terms + "/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeNavigation, basePath, page, totalPages(total, limit))
	for _, a := range list {
		id := strconv.Itoa(a.ID)
		f.AddEntry(feed.NavEntry(feed.Tag("author", id), a.FullName, navBase+"/search/books/a/"+id+"/", feed.MimeTypeAcquisition))
	}
	return f, nil
}

// SearchSeries dispatches a series search, mirroring SearchAuthors.
func (svc *Service) SearchSeries(ctx context.Context, navBase, typ, terms string, page int) (*feed.Feed, error) {
	limit, offset := svc.pageWindow(page)
	list, total, err := svc.series.Search(ctx, typ, terms, limit, offset)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{ID: feed.Tag("search", "series", typ, terms, strconv.Itoa(page)), Title: "Series: " + terms, Kind: feed.KindNavigation, NumberOfItems: total}
	basePath := navBase + "/search/series/" + typ + "/" + terms + "/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeNavigation, basePath, page, totalPages(total, limit))
	for _, s := range list {
		id := strconv.Itoa(s.ID)
		f.AddEntry(feed.NavEntry(feed.Tag("series", id), s.SerName, navBase+"/search/books/s/"+id+"/", feed.MimeTypeAcquisition))
	}
	return f, nil
}
