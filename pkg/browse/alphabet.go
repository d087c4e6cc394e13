package browse

import (
	"context"
	"strconv"

	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
	"github.com/dshein-alt/ropds-go/pkg/textnorm"
)

// langBuckets is 0 ("All languages", langCode filter disabled) followed
// by the coarse language-code buckets textnorm.DetectLangCode ever
// produces, in menu order (spec.md §4.G alphabet drill-down).
var langBuckets = []int{0, textnorm.LangCyrillic, textnorm.LangLatin, textnorm.LangDigit, textnorm.LangOther}

// AuthorsRoot builds the bucket-selection menu for /opds/authors/:
// one entry per language bucket, per spec.md §4.G's alphabet
// drill-down.
func (svc *Service) AuthorsRoot(navBase string) *feed.Feed {
	return alphabetRoot(navBase, "authors", "Authors")
}

// SeriesRoot builds the bucket-selection menu for /opds/series/.
func (svc *Service) SeriesRoot(navBase string) *feed.Feed {
	return alphabetRoot(navBase, "series", "Series")
}

// BooksRoot builds the bucket-selection menu for /opds/books/.
func (svc *Service) BooksRoot(navBase string) *feed.Feed {
	return alphabetRoot(navBase, "books", "Books")
}

func alphabetRoot(navBase, section, title string) *feed.Feed {
	f := &feed.Feed{ID: feed.Tag(section), Title: title, Kind: feed.KindNavigation, NumberOfItems: len(langBuckets)}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/" + section + "/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})
	for _, lang := range langBuckets {
		href := navBase + "/" + section + "/" + strconv.Itoa(lang) + "/"
		f.AddEntry(feed.NavEntry(feed.Tag(section, strconv.Itoa(lang)), langBucketName[lang], href, feed.MimeTypeNavigation))
	}
	return f
}

// AuthorsPrefix drills into the authors alphabet at prefix within
// lang: if the number of authors matching prefix is at or above
// opds.split_items, it renders one navigation entry per next-character
// bucket (NamePrefixGroups); otherwise it renders the matching authors
// directly, paginated, each linking to its book list (spec.md §4.G).
func (svc *Service) AuthorsPrefix(ctx context.Context, navBase string, lang int, prefix string, page int) (*feed.Feed, error) {
	_, total, err := svc.authors.ByPrefix(ctx, lang, prefix, 1, 0)
	if err != nil {
		return nil, err
	}

	basePath := navBase + "/authors/" + strconv.Itoa(lang) + "/" + prefix + "/"
	id := feed.Tag("authors", strconv.Itoa(lang), prefix)

	if total >= svc.cfg.SplitItems {
		groups, err := svc.authors.NamePrefixGroups(ctx, lang, prefix)
		if err != nil {
			return nil, err
		}
		f := &feed.Feed{ID: id, Title: "Authors: " + prefix, Kind: feed.KindNavigation, NumberOfItems: len(groups)}
		f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
		for _, g := range groups {
			href := navBase + "/authors/" + strconv.Itoa(lang) + "/" + g.Prefix + "/"
			f.AddEntry(feed.NavEntry(feed.Tag("authors", strconv.Itoa(lang), g.Prefix), g.Prefix, href, feed.MimeTypeNavigation))
		}
		return f, nil
	}

	limit, offset := svc.pageWindow(page)
	list, total, err := svc.authors.ByPrefix(ctx, lang, prefix, limit, offset)
	if err != nil {
		return nil, err
	}
	f := &feed.Feed{ID: id, Title: "Authors: " + prefix, Kind: feed.KindNavigation, NumberOfItems: total}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeNavigation, basePath, page, totalPages(total, limit))
	for _, a := range list {
		aid := strconv.Itoa(a.ID)
		f.AddEntry(feed.NavEntry(feed.Tag("author", aid), a.FullName, navBase+"/search/books/a/"+aid+"/", feed.MimeTypeAcquisition))
	}
	return f, nil
}

// SeriesPrefix mirrors AuthorsPrefix for the series alphabet.
func (svc *Service) SeriesPrefix(ctx context.Context, navBase string, lang int, prefix string, page int) (*feed.Feed, error) {
	_, total, err := svc.series.ByPrefix(ctx, lang, prefix, 1, 0)
	if err != nil {
		return nil, err
	}

	basePath := navBase + "/series/" + strconv.Itoa(lang) + "/" + prefix + "/"
	id := feed.Tag("series", strconv.Itoa(lang), prefix)

	if total >= svc.cfg.SplitItems {
		groups, err := svc.series.NamePrefixGroups(ctx, lang, prefix)
		if err != nil {
			return nil, err
		}
		f := &feed.Feed{ID: id, Title: "Series: " + prefix, Kind: feed.KindNavigation, NumberOfItems: len(groups)}
		f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
		for _, g := range groups {
			href := navBase + "/series/" + strconv.Itoa(lang) + "/" + g.Prefix + "/"
			f.AddEntry(feed.NavEntry(feed.Tag("series", strconv.Itoa(lang), g.Prefix), g.Prefix, href, feed.MimeTypeNavigation))
		}
		return f, nil
	}

	limit, offset := svc.pageWindow(page)
	list, total, err := svc.series.ByPrefix(ctx, lang, prefix, limit, offset)
	if err != nil {
		return nil, err
	}
	f := &feed.Feed{ID: id, Title: "Series: " + prefix, Kind: feed.KindNavigation, NumberOfItems: total}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
	addPaginationLinks(f, feed.MimeTypeNavigation, basePath, page, totalPages(total, limit))
	for _, s := range list {
		sid := strconv.Itoa(s.ID)
		f.AddEntry(feed.NavEntry(feed.Tag("series", sid), s.SerName, navBase+"/search/books/s/"+sid+"/", feed.MimeTypeAcquisition))
	}
	return f, nil
}

// BooksPrefix mirrors AuthorsPrefix for the title alphabet, rendering
// matching books directly as acquisition entries once prefix is
// specific enough (spec.md §4.G).
func (svc *Service) BooksPrefix(ctx context.Context, navBase string, lang int, prefix string, page int) (*feed.Feed, error) {
	opts := books.ListOptions{Limit: 1, HideDoubles: svc.cfg.HideDoubles}
	_, total, err := svc.books.ByPrefix(ctx, lang, prefix, opts)
	if err != nil {
		return nil, err
	}

	basePath := navBase + "/books/" + strconv.Itoa(lang) + "/" + prefix + "/"
	id := feed.Tag("books", strconv.Itoa(lang), prefix)

	if total >= svc.cfg.SplitItems {
		groups, err := svc.books.TitlePrefixGroups(ctx, lang, prefix, svc.cfg.HideDoubles)
		if err != nil {
			return nil, err
		}
		f := &feed.Feed{ID: id, Title: "Books: " + prefix, Kind: feed.KindNavigation, NumberOfItems: len(groups)}
		f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeNavigation})
		for _, g := range groups {
			href := navBase + "/books/" + strconv.Itoa(lang) + "/" + g.Prefix + "/"
			f.AddEntry(feed.NavEntry(feed.Tag("books", strconv.Itoa(lang), g.Prefix), g.Prefix, href, feed.MimeTypeNavigation))
		}
		return f, nil
	}

	limit, offset := svc.pageWindow(page)
	list, total, err := svc.books.ByPrefix(ctx, lang, prefix, books.ListOptions{Limit: limit, Offset: offset, HideDoubles: svc.cfg.HideDoubles})
	if err != nil {
		return nil, err
	}
	f := &feed.Feed{ID: id, Title: "Books: " + prefix, Kind: feed.KindAcquisition, NumberOfItems: total}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: basePath, Type: feed.MimeTypeAcquisition})
	addPaginationLinks(f, feed.MimeTypeAcquisition, basePath, page, totalPages(total, limit))
	for _, b := range list {
		f.AddEntry(feed.BookEntry(b, navBase, svc.cfg.ShowCovers))
	}
	return f, nil
}
