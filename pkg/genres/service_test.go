package genres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
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

	section := &models.GenreSection{Code: "sf"}
	_, err = db.NewInsert().Model(section).Exec(ctx)
	require.NoError(t, err)

	genre := &models.Genre{Code: "sf_history", SectionID: section.ID}
	_, err = db.NewInsert().Model(genre).Exec(ctx)
	require.NoError(t, err)

	return NewService(db, dialect)
}

func TestByCode_Unknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, ok, err := svc.ByCode(ctx, "not_a_real_code")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestByCode_Found(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	genre, ok, err := svc.ByCode(ctx, "sf_history")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sf_history", genre.Code)
}

func TestDisplayName_FallsBackToEnglishThenCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	genre, _, err := svc.ByCode(ctx, "sf_history")
	require.NoError(t, err)

	name, err := svc.DisplayName(ctx, genre.ID, "ru")
	require.NoError(t, err)
	assert.Equal(t, "sf_history", name)

	require.NoError(t, svc.UpsertTranslation(ctx, genre.ID, "en", "History of science fiction"))

	name, err = svc.DisplayName(ctx, genre.ID, "ru")
	require.NoError(t, err)
	assert.Equal(t, "History of science fiction", name)

	require.NoError(t, svc.UpsertTranslation(ctx, genre.ID, "ru", "История фантастики"))

	name, err = svc.DisplayName(ctx, genre.ID, "ru")
	require.NoError(t, err)
	assert.Equal(t, "История фантастики", name)
}
