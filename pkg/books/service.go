// Package books implements spec.md §4.B's Book query layer: the
// scanner's add-or-confirm path, sweep/deletion bookkeeping, the
// set_book_authors/set_book_series transactional link rewrites, the
// duplicate-detection helpers built on (search_title, author_key), and
// the prefix-group queries the browse surface's /books/ drill-down
// calls — all grounded on shisho's pkg/books transaction and
// bulk-insert style, adapted to a Book that carries its own file
// metadata rather than a separate Files table.
package books

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Service is the books query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a books Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// RetrieveByPath finds a Book by its catalog and within-catalog
// filename, the lookup the scanner's plain-file and ZIP-entry
// processing steps use to decide add vs confirm (spec.md §4.C).
func (svc *Service) RetrieveByPath(ctx context.Context, catalogID int, filename string) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.NewSelect().Model(book).
		Where("b.catalog_id = ? AND b.filename = ?", catalogID, filename).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// Retrieve loads a Book by id, with its authors/genres/series
// preloaded for feed entry rendering.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.NewSelect().Model(book).
		Relation("Authors").
		Relation("Genres").
		Relation("Series").
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// Insert creates a new Confirmed book row (spec.md §4.C "plain file"
// discovery step) and returns it with its id populated.
func (svc *Service) Insert(ctx context.Context, book *models.Book) error {
	_, err := svc.db.NewInsert().Model(book).Returning("*").Exec(ctx)
	return errors.WithStack(err)
}

// SetCover records that bookID's cover was saved to disk, the
// scanner's last step before linking authors/genres/series.
func (svc *Service) SetCover(ctx context.Context, bookID int, coverType string) error {
	_, err := svc.db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("cover = ?", 1).
		Set("cover_type = ?", coverType).
		Where("id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// Confirm sets an already-existing book back to Confirmed, the
// re-observed branch of the scanner's add-or-confirm semantics.
func (svc *Service) Confirm(ctx context.Context, bookID int) error {
	_, err := svc.db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("avail = ?", models.AvailConfirmed).
		Where("id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// MarkAllUnverified flips every row still Confirmed to Unverified —
// the sweep marker run at the start of every scan (spec.md §4.C step
// 1). Rows already Deleted are left alone.
func (svc *Service) MarkAllUnverified(ctx context.Context) error {
	_, err := svc.db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("avail = ?", models.AvailUnverified).
		Where("avail = ?", models.AvailConfirmed).
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteUnverified removes every Book still at Unverified (and any
// still at Deleted), the scanner's deletion phase (spec.md §4.C step
// 4). Returns the number of rows removed.
func (svc *Service) DeleteUnverified(ctx context.Context) (int, error) {
	res, err := svc.db.NewDelete().
		Model((*models.Book)(nil)).
		Where("avail IN (?, ?)", models.AvailUnverified, models.AvailDeleted).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

// Count returns the total number of Confirmed books, backing the
// allbooks counter.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("avail = ?", models.AvailConfirmed).
		Count(ctx)
	return count, errors.WithStack(err)
}

// SetAuthors rewrites book's linked authors and recomputes author_key
// from the sorted remaining ids, all within one transaction (spec.md
// §4.B "Set book authors and update author_key").
func (svc *Service) SetAuthors(ctx context.Context, bookID int, authorIDs []int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.BookAuthor)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		if len(authorIDs) > 0 {
			links := make([]*models.BookAuthor, len(authorIDs))
			for i, authorID := range authorIDs {
				links[i] = &models.BookAuthor{BookID: bookID, AuthorID: authorID}
			}
			if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}

		key := authorKey(authorIDs)
		_, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("author_key = ?", key).
			Where("id = ?", bookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// SetGenres rewrites book's linked genres.
func (svc *Service) SetGenres(ctx context.Context, bookID int, genreIDs []int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if len(genreIDs) == 0 {
			return nil
		}
		links := make([]*models.BookGenre, len(genreIDs))
		for i, genreID := range genreIDs {
			links[i] = &models.BookGenre{BookID: bookID, GenreID: genreID}
		}
		_, err := tx.NewInsert().Model(&links).Exec(ctx)
		return errors.WithStack(err)
	})
}

// SeriesLink is one (series id, position) pair for SetSeries.
type SeriesLink struct {
	SeriesID int
	SerNo    int
}

// SetSeries rewrites book's linked series, replacing any existing
// links (spec.md §4.B "Set book series").
func (svc *Service) SetSeries(ctx context.Context, bookID int, links []SeriesLink) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.BookSeries)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if len(links) == 0 {
			return nil
		}
		rows := make([]*models.BookSeries, len(links))
		for i, l := range links {
			rows[i] = &models.BookSeries{BookID: bookID, SeriesID: l.SeriesID, SerNo: l.SerNo}
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return errors.WithStack(err)
	})
}

// authorKey joins sorted author ids the way author_key must be
// computed (spec.md §3 invariant 3): ascending, no separator.
func authorKey(ids []int) string {
	sorted := append([]int(nil), ids...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = itoa(id)
	}
	return strings.Join(parts, "")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// CountDoubles returns the number of rows sharing book's
// (search_title, author_key), including book itself (spec.md §4.B
// "books.count_doubles").
func (svc *Service) CountDoubles(ctx context.Context, bookID int) (int, error) {
	book, err := svc.Retrieve(ctx, bookID)
	if err != nil {
		return 0, err
	}
	count, err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("search_title = ? AND author_key = ? AND avail = ?", book.SearchTitle, book.AuthorKey, models.AvailConfirmed).
		Count(ctx)
	return count, errors.WithStack(err)
}

// DuplicateGroup is one (search_title, author_key) bucket with more
// than one Confirmed book in it.
type DuplicateGroup struct {
	SearchTitle string `bun:"search_title"`
	AuthorKey   string `bun:"author_key"`
	Count       int    `bun:"cnt"`
	SampleID    int    `bun:"sample_id"`
}

// DuplicateGroups returns the (search_title, author_key) groups with
// more than one Confirmed book, paginated, each carrying a
// representative book id (spec.md §4.B "books.get_duplicate_groups").
func (svc *Service) DuplicateGroups(ctx context.Context, limit, offset int) ([]DuplicateGroup, int, error) {
	sub := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("search_title").
		ColumnExpr("author_key").
		ColumnExpr("COUNT(*) AS cnt").
		ColumnExpr("MIN(id) AS sample_id").
		Where("avail = ?", models.AvailConfirmed).
		GroupExpr("search_title, author_key").
		Having("COUNT(*) > 1")

	var total int
	err := svc.db.NewSelect().ColumnExpr("COUNT(*) AS total").TableExpr("(?) AS grp", sub).Scan(ctx, &total)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	var groups []DuplicateGroup
	err = sub.OrderExpr("cnt DESC").Limit(limit).Offset(offset).Scan(ctx, &groups)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return groups, total, nil
}

// PrefixGroup is one bucket of the next-character breakdown returned
// by TitlePrefixGroups.
type PrefixGroup struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// TitlePrefixGroups groups books whose search_title begins with prefix
// by their next character, the primitive the /books/ alphabet
// drill-down calls at each step.
func (svc *Service) TitlePrefixGroups(ctx context.Context, langCode int, prefix string, hideDoubles bool) ([]PrefixGroup, error) {
	plen := len(prefix)

	q := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("SUBSTR(b.search_title, ?, 1) AS bucket", plen+1).
		Where("b.search_title LIKE ? || '%' AND b.avail = ?", prefix, models.AvailConfirmed)
	if langCode != 0 {
		q = q.Where("b.lang_code = ?", langCode)
	}
	if hideDoubles {
		q = q.ColumnExpr("COUNT(DISTINCT (b.search_title, b.author_key)) AS cnt")
	} else {
		q = q.ColumnExpr("COUNT(*) AS cnt")
	}
	q = q.GroupExpr("bucket").OrderExpr("bucket ASC")

	var rows []struct {
		Bucket string `bun:"bucket"`
		Count  int    `bun:"cnt"`
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

// ListOptions configures ByPrefix/BySeries/ByGenre/ByAuthor/Search.
type ListOptions struct {
	Limit       int
	Offset      int
	HideDoubles bool
}

// ByPrefix lists Confirmed books whose search_title starts with
// prefix, paginated and optionally de-duplicated by (search_title,
// author_key) (spec.md §4.B "books.hide_doubles").
func (svc *Service) ByPrefix(ctx context.Context, langCode int, prefix string, opts ListOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Where("b.search_title LIKE ? || '%' AND b.avail = ?", prefix, models.AvailConfirmed).
		OrderExpr("b.search_title ASC")
	if langCode != 0 {
		q = q.Where("b.lang_code = ?", langCode)
	}
	if opts.HideDoubles {
		q = q.GroupExpr("b.search_title, b.author_key")
	}

	count, err := q.Limit(opts.Limit).Offset(opts.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}

// BySeries lists Confirmed books linked to seriesID, ordered by their
// position in the series.
func (svc *Service) BySeries(ctx context.Context, seriesID int, opts ListOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Join("INNER JOIN book_series bs ON bs.book_id = b.id").
		Where("bs.series_id = ? AND b.avail = ?", seriesID, models.AvailConfirmed).
		OrderExpr("bs.ser_no ASC, b.title ASC")

	count, err := q.Limit(opts.Limit).Offset(opts.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}

// ByAuthor lists Confirmed books linked to authorID.
func (svc *Service) ByAuthor(ctx context.Context, authorID int, opts ListOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Join("INNER JOIN book_authors ba ON ba.book_id = b.id").
		Where("ba.author_id = ? AND b.avail = ?", authorID, models.AvailConfirmed).
		OrderExpr("b.search_title ASC")

	count, err := q.Limit(opts.Limit).Offset(opts.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}

// ByCatalog lists Confirmed books filed directly under catalogID, the
// query backing /catalogs/{id}/{page}'s non-root paginated book list
// (spec.md §4.G).
func (svc *Service) ByCatalog(ctx context.Context, catalogID int, opts ListOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Where("b.catalog_id = ? AND b.avail = ?", catalogID, models.AvailConfirmed).
		OrderExpr("b.search_title ASC")
	if opts.HideDoubles {
		q = q.GroupExpr("b.search_title, b.author_key")
	}

	count, err := q.Limit(opts.Limit).Offset(opts.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}

// Search looks up Confirmed books by title. mode: "b" prefix, "m"
// contains, "e" exact, "i" direct id lookup.
func (svc *Service) Search(ctx context.Context, mode, term string, opts ListOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Where("b.avail = ?", models.AvailConfirmed).
		OrderExpr("b.search_title ASC")

	switch mode {
	case "e":
		q = q.Where("b.search_title = ?", strings.ToUpper(term))
	case "m":
		q = q.Where("b.search_title LIKE '%' || ? || '%'", strings.ToUpper(term))
	case "i":
		id, err := strconv.Atoi(term)
		if err != nil {
			return nil, 0, errcodes.ValidationError("id must be numeric")
		}
		q = q.Where("b.id = ?", id)
	default:
		q = q.Where("b.search_title LIKE ? || '%'", strings.ToUpper(term))
	}

	count, err := q.Limit(opts.Limit).Offset(opts.Offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}

// Languages returns the distinct, non-empty language codes present
// among Confirmed books, ordered alphabetically — the source set for
// the /opds/facets/languages/ facet list (spec.md §4.G).
func (svc *Service) Languages(ctx context.Context) ([]string, error) {
	var langs []string
	err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("DISTINCT b.lang").
		Where("b.avail = ? AND b.lang != ''", models.AvailConfirmed).
		OrderExpr("b.lang ASC").
		Scan(ctx, &langs)
	return langs, errors.WithStack(err)
}

// Recent lists the most recently registered Confirmed books.
func (svc *Service) Recent(ctx context.Context, limit, offset int) ([]*models.Book, int, error) {
	var books []*models.Book
	q := svc.db.NewSelect().Model(&books).
		Where("b.avail = ?", models.AvailConfirmed).
		OrderExpr("b.reg_date DESC")

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return books, count, nil
}
