// Package readingpositions stores each reader's per-book bookmark and
// prunes old entries to a configurable cap (spec.md §4.B "Save reading
// position": upsert, then prune any entries beyond the
// read_history_max most recent for that user), mirroring pkg/bookshelf's
// upsert idiom.
package readingpositions

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Service is the reading-position query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a readingpositions Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// Save upserts userID's position on bookID, then prunes userID's oldest
// entries beyond historyMax, keeping the most recently updated ones.
func (svc *Service) Save(ctx context.Context, userID, bookID int, position string, progress float64, historyMax int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := &models.ReadingPosition{
			UserID:    userID,
			BookID:    bookID,
			Position:  position,
			Progress:  progress,
			UpdatedAt: time.Now(),
		}
		q := tx.NewInsert().Model(row)
		q = svc.dialect.UpsertOn(q, []string{"user_id", "book_id"}, []string{"position", "progress", "updated_at"})
		if _, err := q.Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		if historyMax <= 0 {
			return nil
		}

		var keepIDs []int
		err := tx.NewSelect().
			Model((*models.ReadingPosition)(nil)).
			Column("book_id").
			Where("user_id = ?", userID).
			OrderExpr("updated_at DESC").
			Limit(historyMax).
			Scan(ctx, &keepIDs)
		if err != nil {
			return errors.WithStack(err)
		}
		if len(keepIDs) == 0 {
			return nil
		}

		_, err = tx.NewDelete().
			Model((*models.ReadingPosition)(nil)).
			Where("user_id = ? AND book_id NOT IN (?)", userID, bun.In(keepIDs)).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// Retrieve loads userID's position on bookID, if any.
func (svc *Service) Retrieve(ctx context.Context, userID, bookID int) (*models.ReadingPosition, bool, error) {
	row := &models.ReadingPosition{}
	err := svc.db.NewSelect().Model(row).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.WithStack(err)
	}
	return row, true, nil
}

// Delete removes userID's position on bookID.
func (svc *Service) Delete(ctx context.Context, userID, bookID int) error {
	_, err := svc.db.NewDelete().
		Model((*models.ReadingPosition)(nil)).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Exec(ctx)
	return errors.WithStack(err)
}
