package readingpositions

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

func newTestFixtures(t *testing.T, numBooks int) (*Service, int, []int) {
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

	bookIDs := make([]int, numBooks)
	for i := 0; i < numBooks; i++ {
		book := &models.Book{
			CatalogID: cat.ID, Filename: "b" + string(rune('a'+i)) + ".fb2", Path: "b" + string(rune('a'+i)) + ".fb2",
			Format: "fb2", Title: "B", SearchTitle: "B", Avail: models.AvailConfirmed, CatType: models.CatTypeNormal,
		}
		_, err = db.NewInsert().Model(book).Exec(ctx)
		require.NoError(t, err)
		bookIDs[i] = book.ID
	}

	return NewService(db, dialect), user.ID, bookIDs
}

func TestSave_UpsertsAndReadsBack(t *testing.T) {
	svc, userID, bookIDs := newTestFixtures(t, 1)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, userID, bookIDs[0], "loc-1", 0.1, 0))
	require.NoError(t, svc.Save(ctx, userID, bookIDs[0], "loc-2", 0.5, 0))

	pos, ok, err := svc.Retrieve(ctx, userID, bookIDs[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "loc-2", pos.Position)
	assert.Equal(t, 0.5, pos.Progress)
}

func TestSave_PrunesBeyondHistoryMax(t *testing.T) {
	svc, userID, bookIDs := newTestFixtures(t, 3)
	ctx := context.Background()

	for _, id := range bookIDs {
		require.NoError(t, svc.Save(ctx, userID, id, "loc", 0, 2))
		time.Sleep(time.Millisecond)
	}

	var remaining []int
	for _, id := range bookIDs {
		_, ok, err := svc.Retrieve(ctx, userID, id)
		require.NoError(t, err)
		if ok {
			remaining = append(remaining, id)
		}
	}
	assert.Len(t, remaining, 2)

	_, ok, err := svc.Retrieve(ctx, userID, bookIDs[0])
	require.NoError(t, err)
	assert.False(t, ok)
}
