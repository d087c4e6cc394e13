// Package genres looks up the fixed genre/section taxonomy by its
// stable code (spec.md §4.A INPX/FB2 contract: "link genres by code,
// silently skip unknown codes") and resolves display names through
// GenreTranslation with an English fallback.
package genres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// FallbackLang is used when a GenreTranslation is missing for the
// client's requested language.
const FallbackLang = "en"

// Service is the genres query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a genres Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// ByCode looks up a Genre by its stable code. ok is false when the
// code is unknown, so callers (the scanner's genre-linking step) can
// silently skip it per spec.md §4.C.
func (svc *Service) ByCode(ctx context.Context, code string) (*models.Genre, bool, error) {
	genre := &models.Genre{}
	err := svc.db.NewSelect().Model(genre).Where("g.code = ?", code).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.WithStack(err)
	}
	return genre, true, nil
}

// Retrieve loads a Genre by id.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Genre, error) {
	genre := &models.Genre{}
	err := svc.db.NewSelect().Model(genre).Where("g.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}
	return genre, nil
}

// DisplayName resolves genre's name in lang, falling back to English
// and finally to the genre's bare code if no translation exists at all.
func (svc *Service) DisplayName(ctx context.Context, genreID int, lang string) (string, error) {
	translation := &models.GenreTranslation{}
	err := svc.db.NewSelect().Model(translation).
		Where("gt.genre_id = ? AND gt.lang IN (?, ?)", genreID, lang, FallbackLang).
		OrderExpr("CASE WHEN gt.lang = ? THEN 0 ELSE 1 END", lang).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			genre, gerr := svc.Retrieve(ctx, genreID)
			if gerr != nil {
				return "", gerr
			}
			return genre.Code, nil
		}
		return "", errors.WithStack(err)
	}
	return translation.Name, nil
}

// UpsertTranslation inserts or overwrites the display name of a genre
// in one language.
func (svc *Service) UpsertTranslation(ctx context.Context, genreID int, lang, name string) error {
	translation := &models.GenreTranslation{GenreID: genreID, Lang: lang, Name: name}
	q := svc.db.NewInsert().Model(translation)
	q = svc.dialect.UpsertOn(q, []string{"genre_id", "lang"}, []string{"name"})
	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// SectionDisplayName resolves a GenreSection's name the same way
// DisplayName does for a Genre.
func (svc *Service) SectionDisplayName(ctx context.Context, sectionID int, lang string) (string, error) {
	translation := &models.GenreSectionTranslation{}
	err := svc.db.NewSelect().Model(translation).
		Where("gst.section_id = ? AND gst.lang IN (?, ?)", sectionID, lang, FallbackLang).
		OrderExpr("CASE WHEN gst.lang = ? THEN 0 ELSE 1 END", lang).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			section := &models.GenreSection{}
			serr := svc.db.NewSelect().Model(section).Where("gs.id = ?", sectionID).Scan(ctx)
			if serr != nil {
				return "", errors.WithStack(serr)
			}
			return section.Code, nil
		}
		return "", errors.WithStack(err)
	}
	return translation.Name, nil
}

// Sections lists every GenreSection with its genres preloaded, the
// grouping the /genres/ navigation feed walks.
func (svc *Service) Sections(ctx context.Context) ([]*models.GenreSection, error) {
	var sections []*models.GenreSection
	err := svc.db.NewSelect().Model(&sections).Relation("Genres").OrderExpr("gs.code ASC").Scan(ctx)
	return sections, errors.WithStack(err)
}

// Count returns the total number of genres, backing the allgenres
// counter.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Genre)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// Books returns every book tagged with genreID, for the /genres/{id}/
// acquisition feed.
func (svc *Service) Books(ctx context.Context, genreID int, limit, offset int) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Join("INNER JOIN book_genres bg ON bg.book_id = b.id").
		Where("bg.genre_id = ? AND b.avail = ?", genreID, models.AvailConfirmed).
		OrderExpr("b.title ASC")

	count, err := q.Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	if err := q.Limit(limit).Offset(offset).Scan(ctx); err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}
