package bookshelf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

func newTestFixtures(t *testing.T) (*Service, int, int) {
	t.Helper()
	cfg := config.NewForTest(t.TempDir())
	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	user := &models.User{Username: "reader", PasswordHash: "x", CreatedAt: time.Now()}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	cat := &models.Catalog{Path: "/", CatName: "/", CatType: models.CatTypeNormal}
	_, err = db.NewInsert().Model(cat).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{
		CatalogID: cat.ID, Filename: "b.fb2", Path: "b.fb2", Format: "fb2",
		Title: "B", SearchTitle: "B", Avail: models.AvailConfirmed, CatType: models.CatTypeNormal,
	}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	return NewService(db, dialect), user.ID, book.ID
}

func TestMark_IsIdempotentAndRefreshesReadTime(t *testing.T) {
	svc, userID, bookID := newTestFixtures(t)
	ctx := context.Background()

	require.NoError(t, svc.Mark(ctx, userID, bookID, time.Unix(1000, 0)))
	require.NoError(t, svc.Mark(ctx, userID, bookID, time.Unix(2000, 0)))

	count, err := svc.Count(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entries, total, err := svc.List(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2000), entries[0].ReadTime.Unix())
}

func TestUnmark(t *testing.T) {
	svc, userID, bookID := newTestFixtures(t)
	ctx := context.Background()

	require.NoError(t, svc.Mark(ctx, userID, bookID, time.Now()))
	require.NoError(t, svc.Unmark(ctx, userID, bookID))

	count, err := svc.Count(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
