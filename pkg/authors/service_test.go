package authors

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

	id1, err := svc.Insert(ctx, "Doe John")
	require.NoError(t, err)

	id2, err := svc.Insert(ctx, "Doe John")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
}

func TestEnsureUnknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.EnsureUnknown(ctx)
	require.NoError(t, err)

	author, err := svc.Retrieve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", author.FullName)
}

func TestNamePrefixGroups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, "Doe John")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "Doe Jane")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "Roe Jane")
	require.NoError(t, err)

	groups, err := svc.NamePrefixGroups(ctx, 0, "")
	require.NoError(t, err)

	var found map[string]int
	found = make(map[string]int)
	for _, g := range groups {
		found[g.Prefix] = g.Count
	}
	assert.Equal(t, 2, found["D"])
	assert.Equal(t, 1, found["R"])
}

func TestCleanupOrphaned(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Insert(ctx, "Orphan Author")
	require.NoError(t, err)
	require.NotZero(t, id)

	n, err := svc.CleanupOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Retrieve(ctx, id)
	assert.Error(t, err)
}

func TestSearch_Modes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, "Doe John")
	require.NoError(t, err)

	results, count, err := svc.Search(ctx, "b", "doe", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, results, 1)
	assert.Equal(t, "Doe John", results[0].FullName)

	_, count, err = svc.Search(ctx, "e", "DOE JOHN", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, count, err = svc.Search(ctx, "m", "OE JO", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
