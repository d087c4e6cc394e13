// Package counters recomputes and persists the five aggregate counts
// the root navigation feed shows without a live COUNT(*) scan per
// request (spec.md §3 "Counter caches an aggregate count", §4.C step 5
// "Recompute and persist all five counters"), upserting through
// pkg/dbdialect the way pkg/authors and pkg/genres already do for
// their own conflict handling.
package counters

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Source supplies the current aggregate count for one counter. Each of
// pkg/books, pkg/catalogs, pkg/authors, pkg/genres, pkg/series already
// implements this via their own Count method.
type Source interface {
	Count(ctx context.Context) (int, error)
}

// Service recomputes and reads the persisted Counter rows.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a counters Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// RecomputeAll recomputes and persists all five well-known counters
// from the authoritative tables, the final step of every scan.
func (svc *Service) RecomputeAll(ctx context.Context, books, catalogs, authors, genres, series Source) error {
	sources := map[string]Source{
		models.CounterAllBooks:    books,
		models.CounterAllCatalogs: catalogs,
		models.CounterAllAuthors:  authors,
		models.CounterAllGenres:   genres,
		models.CounterAllSeries:   series,
	}
	for name, src := range sources {
		count, err := src.Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := svc.set(ctx, name, int64(count)); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) set(ctx context.Context, name string, value int64) error {
	row := &models.Counter{Name: name, Value: value, UpdatedAt: time.Now()}
	q := svc.db.NewInsert().Model(row)
	q = svc.dialect.UpsertOn(q, []string{"name"}, []string{"value", "updated_at"})
	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// Get returns the persisted value of counter name, or 0 if it has
// never been computed.
func (svc *Service) Get(ctx context.Context, name string) (int64, error) {
	row := &models.Counter{}
	err := svc.db.NewSelect().Model(row).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}
	return row.Value, nil
}

// All returns every persisted counter, keyed by name.
func (svc *Service) All(ctx context.Context) (map[string]int64, error) {
	var rows []*models.Counter
	if err := svc.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}
