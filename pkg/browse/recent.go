package browse

import (
	"context"
	"strconv"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Recent builds the paginated "recently added" feed, ordered by
// registration date descending (spec.md §4.G "/recent/{page}").
func (svc *Service) Recent(ctx context.Context, navBase string, page int) (*feed.Feed, error) {
	limit, offset := svc.pageWindow(page)
	list, total, err := svc.books.Recent(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{
		ID:            feed.Tag("recent", strconv.Itoa(page)),
		Title:         "Recently added",
		Kind:          feed.KindAcquisition,
		NumberOfItems: total,
	}
	basePath := navBase + "/recent/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeAcquisition})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeAcquisition, basePath, page, totalPages(total, limit))
	for _, b := range list {
		f.AddEntry(feed.BookEntry(b, navBase, svc.cfg.ShowCovers))
	}
	return f, nil
}
