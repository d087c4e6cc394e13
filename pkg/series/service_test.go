package series

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewForTest(t.TempDir())
	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	return NewService(db, dialect)
}

func TestInsert_ReturnsSameIDOnConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id1, err := svc.Insert(ctx, "Test Series")
	require.NoError(t, err)

	id2, err := svc.Insert(ctx, "Test Series")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestCleanupOrphaned(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Insert(ctx, "Orphan Series")
	require.NoError(t, err)
	require.NotZero(t, id)

	n, err := svc.CleanupOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Retrieve(ctx, id)
	assert.Error(t, err)
}

func TestNamePrefixGroups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, "Alpha Saga")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "Azure Tales")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "Bravo Chronicles")
	require.NoError(t, err)

	groups, err := svc.NamePrefixGroups(ctx, 0, "")
	require.NoError(t, err)

	found := make(map[string]int)
	for _, g := range groups {
		found[g.Prefix] = g.Count
	}
	assert.Equal(t, 2, found["A"])
	assert.Equal(t, 1, found["B"])
}
