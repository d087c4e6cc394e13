package browse

import (
	"context"
	"strconv"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Bookshelf builds the authenticated user's paginated reading-shelf
// feed, ordered by read time descending (spec.md §4.G "/bookshelf/").
// Callers must already have enforced authentication — every bookshelf
// route requires it regardless of opds.auth_required.
func (svc *Service) Bookshelf(ctx context.Context, navBase string, userID, page int) (*feed.Feed, error) {
	limit, offset := svc.pageWindow(page)
	list, total, err := svc.bookshelf.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{
		ID:            feed.Tag("bookshelf", strconv.Itoa(page)),
		Title:         "My bookshelf",
		Kind:          feed.KindAcquisition,
		NumberOfItems: total,
	}
	basePath := navBase + "/bookshelf/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeAcquisition})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeAcquisition, basePath, page, totalPages(total, limit))
	for _, entry := range list {
		if entry.Book == nil {
			continue
		}
		f.AddEntry(feed.BookEntry(entry.Book, navBase, svc.cfg.ShowCovers))
	}
	return f, nil
}
