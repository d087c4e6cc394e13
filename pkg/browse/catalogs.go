package browse

import (
	"strconv"

	"context"

	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Catalogs builds the root-level catalogs listing (spec.md §4.G
// "/catalogs/").
func (svc *Service) Catalogs(ctx context.Context, navBase string) (*feed.Feed, error) {
	children, err := svc.catalogs.Children(ctx, nil)
	if err != nil {
		return nil, err
	}
	return svc.catalogChildrenFeed(navBase, feed.Tag("catalogs"), "Catalogs", navBase+"/catalogs/", children), nil
}

// Catalog builds the feed for one catalog node: a page-one-only
// navigation listing of its children when it has any, otherwise a
// paginated book list (spec.md §4.G "/catalogs/{id}/{page}").
func (svc *Service) Catalog(ctx context.Context, navBase string, id, page int) (*feed.Feed, error) {
	cat, err := svc.catalogs.Retrieve(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := svc.catalogs.Children(ctx, &id)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		href := navBase + "/catalogs/" + strconv.Itoa(id) + "/"
		return svc.catalogChildrenFeed(navBase, feed.Tag("catalogs", strconv.Itoa(id)), cat.CatName, href, children), nil
	}

	limit, offset := svc.pageWindow(page)
	list, total, err := svc.books.ByCatalog(ctx, id, books.ListOptions{Limit: limit, Offset: offset, HideDoubles: svc.cfg.HideDoubles})
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{
		ID:            feed.Tag("catalogs", strconv.Itoa(id), strconv.Itoa(page)),
		Title:         cat.CatName,
		Kind:          feed.KindAcquisition,
		NumberOfItems: total,
	}
	basePath := navBase + "/catalogs/" + strconv.Itoa(id) + "/"
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeAcquisition})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/catalogs/", Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeAcquisition, basePath, page, totalPages(total, limit))
	for _, b := range list {
		f.AddEntry(feed.BookEntry(b, navBase, svc.cfg.ShowCovers))
	}
	return f, nil
}

func (svc *Service) catalogChildrenFeed(navBase, id, title, self string, children []*models.Catalog) *feed.Feed {
	f := &feed.Feed{ID: id, Title: title, Kind: feed.KindNavigation, NumberOfItems: len(children)}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: self, Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	for _, c := range children {
		href := navBase + "/catalogs/" + strconv.Itoa(c.ID) + "/"
		f.AddEntry(feed.NavEntry(feed.Tag("catalogs", strconv.Itoa(c.ID)), c.CatName, href, feed.MimeTypeNavigation))
	}
	return f
}
