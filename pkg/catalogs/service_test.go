package catalogs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewForTest(t.TempDir())
	db, _, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	return NewService(db)
}

func TestEnsure_CreatesMissingAncestors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cat, err := svc.Ensure(ctx, "fiction/scifi", models.CatTypeNormal)
	require.NoError(t, err)
	require.Equal(t, "fiction/scifi", cat.Path)
	require.NotNil(t, cat.ParentID)

	parent, err := svc.Retrieve(ctx, *cat.ParentID)
	require.NoError(t, err)
	require.Equal(t, "fiction", parent.Path)
	require.Nil(t, parent.ParentID)
}

func TestEnsure_IsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Ensure(ctx, "comics", models.CatTypeNormal)
	require.NoError(t, err)

	second, err := svc.Ensure(ctx, "comics", models.CatTypeNormal)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
}

func TestEnsure_RejectsTraversal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ensure(ctx, "../escape", models.CatTypeNormal)
	require.Error(t, err)
}
