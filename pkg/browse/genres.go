package browse

import (
	"context"
	"strconv"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// Genres builds the translated genre-section menu (spec.md §4.G
// "/genres/").
func (svc *Service) Genres(ctx context.Context, navBase, lang string) (*feed.Feed, error) {
	sections, err := svc.genres.Sections(ctx)
	if err != nil {
		return nil, err
	}

	f := &feed.Feed{ID: feed.Tag("genres"), Title: "Genres", Kind: feed.KindNavigation, NumberOfItems: len(sections)}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/genres/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/", Type: feed.MimeTypeNavigation})

	for _, s := range sections {
		name, err := svc.genres.SectionDisplayName(ctx, s.ID, lang)
		if err != nil {
			return nil, err
		}
		href := navBase + "/genres/" + s.Code + "/"
		f.AddEntry(feed.NavEntry(feed.Tag("genres", s.Code), name, href, feed.MimeTypeNavigation))
	}
	return f, nil
}

// GenreSection builds the within-section navigation entries, one per
// genre, each linking to its /search/books/g/{id} acquisition feed
// (spec.md §4.G).
func (svc *Service) GenreSection(ctx context.Context, navBase, lang, sectionCode string) (*feed.Feed, error) {
	sections, err := svc.genres.Sections(ctx)
	if err != nil {
		return nil, err
	}

	var title string
	var genreEntries []feed.Entry
	for _, s := range sections {
		if s.Code != sectionCode {
			continue
		}
		title, err = svc.genres.SectionDisplayName(ctx, s.ID, lang)
		if err != nil {
			return nil, err
		}
		for _, g := range s.Genres {
			name, err := svc.genres.DisplayName(ctx, g.ID, lang)
			if err != nil {
				return nil, err
			}
			gid := strconv.Itoa(g.ID)
			href := navBase + "/search/books/g/" + gid + "/"
			genreEntries = append(genreEntries, feed.NavEntry(feed.Tag("genre", gid), name, href, feed.MimeTypeAcquisition))
		}
	}

	f := &feed.Feed{ID: feed.Tag("genres", sectionCode), Title: title, Kind: feed.KindNavigation, NumberOfItems: len(genreEntries)}
	f.AddLink(feed.Link{Rel: feed.RelSelf, Href: navBase + "/genres/" + sectionCode + "/", Type: feed.MimeTypeNavigation})
	f.AddLink(feed.Link{Rel: feed.RelUp, Href: navBase + "/genres/", Type: feed.MimeTypeNavigation})
	f.Entries = genreEntries
	return f, nil
}
