// Package series mirrors pkg/authors for Series rows: idempotent
// insert-or-get, orphan cleanup, and the prefix-group queries the
// browse surface's /series/ drill-down calls.
package series

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

// Service is the series query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a series Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// Insert returns the id of the Series matching name, inserting a new
// row if one doesn't exist yet.
func (svc *Service) Insert(ctx context.Context, name string) (int, error) {
	search := textnorm.SearchKey(name)
	langCode := textnorm.DetectLangCode(name)

	ser := &models.Series{
		SerName:   name,
		SearchSer: search,
		LangCode:  langCode,
	}
	q := svc.db.NewInsert().Model(ser)
	q = svc.dialect.InsertIgnore(q)
	if _, err := q.Exec(ctx); err != nil {
		return 0, errors.WithStack(err)
	}
	if ser.ID != 0 {
		return ser.ID, nil
	}

	existing := &models.Series{}
	err := svc.db.NewSelect().Model(existing).Where("s.ser_name = ?", name).Scan(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return existing.ID, nil
}

// Retrieve loads a Series by id.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Series, error) {
	ser := &models.Series{}
	err := svc.db.NewSelect().Model(ser).Where("s.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}
	return ser, nil
}

// CleanupOrphaned deletes every Series with zero remaining book links,
// returning the number removed.
func (svc *Service) CleanupOrphaned(ctx context.Context) (int, error) {
	res, err := svc.db.NewDelete().
		Model((*models.Series)(nil)).
		Where("s.id NOT IN (SELECT series_id FROM book_series)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

// Count returns the total number of series, backing the allseries
// counter.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Series)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// PrefixGroup is one bucket of the next-character breakdown returned
// by NamePrefixGroups.
type PrefixGroup struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// NamePrefixGroups groups series whose search_ser begins with prefix
// by their next character.
func (svc *Service) NamePrefixGroups(ctx context.Context, langCode int, prefix string) ([]PrefixGroup, error) {
	plen := len(prefix)

	var rows []struct {
		Bucket string `bun:"bucket"`
		Count  int    `bun:"cnt"`
	}

	q := svc.db.NewSelect().
		Model((*models.Series)(nil)).
		ColumnExpr("SUBSTR(s.search_ser, ?, 1) AS bucket", plen+1).
		ColumnExpr("COUNT(*) AS cnt").
		Where("s.search_ser LIKE ? || '%'", prefix).
		GroupExpr("bucket").
		OrderExpr("bucket ASC")
	if langCode != 0 {
		q = q.Where("s.lang_code = ?", langCode)
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

// ByPrefix lists series whose search_ser starts with prefix, paginated.
func (svc *Service) ByPrefix(ctx context.Context, langCode int, prefix string, limit, offset int) ([]*models.Series, int, error) {
	var list []*models.Series
	q := svc.db.NewSelect().Model(&list).
		Where("s.search_ser LIKE ? || '%'", prefix).
		OrderExpr("s.search_ser ASC")
	if langCode != 0 {
		q = q.Where("s.lang_code = ?", langCode)
	}

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return list, count, nil
}

// Search looks up series by name. mode: "b" prefix, "m" contains,
// "e" exact.
func (svc *Service) Search(ctx context.Context, mode, term string, limit, offset int) ([]*models.Series, int, error) {
	search := textnorm.SearchKey(term)

	var list []*models.Series
	q := svc.db.NewSelect().Model(&list).OrderExpr("s.search_ser ASC")

	switch mode {
	case "e":
		q = q.Where("s.search_ser = ?", search)
	case "m":
		q = q.Where("s.search_ser LIKE '%' || ? || '%'", search)
	default:
		q = q.Where("s.search_ser LIKE ? || '%'", search)
	}

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return list, count, nil
}
