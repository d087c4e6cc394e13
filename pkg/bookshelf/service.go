// Package bookshelf manages a user's personal "read" marker on a book,
// the simple per-user/per-book link table backing the `/bookshelf/`
// feed (spec.md §4.B, §6). Grounded on the insert-or-update idiom
// pkg/authors uses for its own conflict handling, simplified here since
// a re-mark only needs to refresh read_time.
package bookshelf

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Service is the bookshelf query layer.
type Service struct {
	db      *bun.DB
	dialect dbdialect.Dialect
}

// NewService builds a bookshelf Service.
func NewService(db *bun.DB, dialect dbdialect.Dialect) *Service {
	return &Service{db: db, dialect: dialect}
}

// Mark adds bookID to userID's bookshelf, or refreshes its read_time if
// it's already there.
func (svc *Service) Mark(ctx context.Context, userID, bookID int, readTime time.Time) error {
	entry := &models.Bookshelf{UserID: userID, BookID: bookID, ReadTime: readTime}
	q := svc.db.NewInsert().Model(entry)
	q = svc.dialect.UpsertOn(q, []string{"user_id", "book_id"}, []string{"read_time"})
	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// Unmark removes bookID from userID's bookshelf.
func (svc *Service) Unmark(ctx context.Context, userID, bookID int) error {
	_, err := svc.db.NewDelete().
		Model((*models.Bookshelf)(nil)).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// List returns userID's bookshelf entries, most recently marked first,
// with each Book preloaded for feed entry rendering.
func (svc *Service) List(ctx context.Context, userID int, limit, offset int) ([]*models.Bookshelf, int, error) {
	var entries []*models.Bookshelf
	q := svc.db.NewSelect().Model(&entries).
		Relation("Book").
		Where("bs.user_id = ?", userID).
		OrderExpr("bs.read_time DESC")

	count, err := q.Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return entries, count, nil
}

// Count returns the number of books on userID's bookshelf.
func (svc *Service) Count(ctx context.Context, userID int) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Bookshelf)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	return count, errors.WithStack(err)
}
