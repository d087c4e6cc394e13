// Package authors implements spec.md §4.B's author query-layer
// contract: idempotent insert-or-get, orphan cleanup after unlink, and
// the prefix-group queries the browse surface drills through, the way
// shisho's pkg/people separates these concerns from the HTTP layer.
package authors

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/textnorm"
)

// Service is the authors query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds an authors Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// Insert returns the id of the Author matching fullName, inserting a
// new row if one doesn't exist yet (spec.md §4.B "authors.insert").
// fullName must already be normalised (last-name-first) by the caller.
func (svc *Service) Insert(ctx context.Context, fullName string) (int, error) {
	searchName := textnorm.SearchKey(fullName)
	langCode := textnorm.DetectLangCode(fullName)

	author := &models.Author{
		FullName:       fullName,
		SearchFullName: searchName,
		LangCode:       langCode,
	}
	q := svc.db.NewInsert().Model(author)
	q = svc.dialect.InsertIgnore(q)
	if _, err := q.Exec(ctx); err != nil {
		return 0, errors.WithStack(err)
	}
	if author.ID != 0 {
		return author.ID, nil
	}

	existing := &models.Author{}
	err := svc.db.NewSelect().Model(existing).Where("a.full_name = ?", fullName).Scan(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return existing.ID, nil
}

// EnsureUnknown returns the id of the synthetic "Unknown" author used
// when a parser finds no author at all (spec.md §3 invariant 1).
func (svc *Service) EnsureUnknown(ctx context.Context) (int, error) {
	return svc.Insert(ctx, models.UnknownAuthorName)
}

// Retrieve loads an Author by id.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Author, error) {
	author := &models.Author{}
	err := svc.db.NewSelect().Model(author).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}
	return author, nil
}

// CleanupOrphaned deletes every Author with zero remaining book links
// (spec.md §3 invariant 4), returning the number removed. Called after
// a scan's deletion phase and after set_book_authors unlinks a book.
func (svc *Service) CleanupOrphaned(ctx context.Context) (int, error) {
	res, err := svc.db.NewDelete().
		Model((*models.Author)(nil)).
		Where("a.id NOT IN (SELECT author_id FROM book_authors)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

// Count returns the total number of authors, backing the allauthors
// counter.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Author)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// PrefixGroup is one bucket of the next-character breakdown returned
// by NamePrefixGroups.
type PrefixGroup struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// NamePrefixGroups groups authors whose search_full_name begins with
// prefix (filtered to langCode when langCode != 0) by their next
// character, returning each group's count — the primitive the
// alphabet/prefix drill-down in the browse surface calls at each step
// (spec.md §6 "/authors/").
func (svc *Service) NamePrefixGroups(ctx context.Context, langCode int, prefix string) ([]PrefixGroup, error) {
	plen := len(prefix)

	var rows []struct {
		Bucket string `bun:"bucket"`
		Count  int    `bun:"cnt"`
	}

	q := svc.db.NewSelect().
		Model((*models.Author)(nil)).
		ColumnExpr("SUBSTR(a.search_full_name, ?, 1) AS bucket", plen+1).
		ColumnExpr("COUNT(*) AS cnt").
		Where("a.search_full_name LIKE ? || '%'", prefix).
		GroupExpr("bucket").
		OrderExpr("bucket ASC")
	if langCode != 0 {
		q = q.Where("a.lang_code = ?", langCode)
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, errors.WithStack(err)
	}

	groups := make([]PrefixGroup, 0, len(rows))
	for _, r := range rows {
		if r.Bucket == "" {
			continue
		}
		groups = append(groups, PrefixGroup{Prefix: prefix + r.Bucket, Count: r.Count})
	}
	return groups, nil
}

// ByPrefix lists authors whose search_full_name starts with prefix,
// paginated.
func (svc *Service) ByPrefix(ctx context.Context, langCode int, prefix string, limit, offset int) ([]*models.Author, int, error) {
	var authors []*models.Author
	q := svc.db.NewSelect().Model(&authors).
		Where("a.search_full_name LIKE ? || '%'", prefix).
		OrderExpr("a.search_full_name ASC")
	if langCode != 0 {
		q = q.Where("a.lang_code = ?", langCode)
	}

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return authors, count, nil
}

// Search looks up authors by name. mode: "b" prefix, "m" contains,
// "e" exact.
func (svc *Service) Search(ctx context.Context, mode, term string, limit, offset int) ([]*models.Author, int, error) {
	search := textnorm.SearchKey(term)

	var authors []*models.Author
	q := svc.db.NewSelect().Model(&authors).OrderExpr("a.search_full_name ASC")

	switch mode {
	case "e":
		q = q.Where("a.search_full_name = ?", search)
	case "m":
		q = q.Where("a.search_full_name LIKE '%' || ? || '%'", search)
	default:
		q = q.Where("a.search_full_name LIKE ? || '%'", search)
	}

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return authors, count, nil
}
