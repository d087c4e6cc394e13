package counters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/series"
)

func TestRecomputeAll(t *testing.T) {
	cfg := config.NewForTest(t.TempDir())
	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	catalogsSvc := catalogs.NewService(db)
	authorsSvc := authors.NewService(db, dialect)
	seriesSvc := series.NewService(db, dialect)
	genresSvc := genres.NewService(db, dialect)

	_, err = catalogsSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)
	_, err = authorsSvc.Insert(ctx, "Doe John")
	require.NoError(t, err)
	_, err = seriesSvc.Insert(ctx, "Chronicles")
	require.NoError(t, err)

	svc := NewService(db, dialect)

	booksSrc := countSource{n: 3}
	require.NoError(t, svc.RecomputeAll(ctx, booksSrc, catalogsSvc, authorsSvc, genresSvc, seriesSvc))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all[models.CounterAllBooks])
	assert.Equal(t, int64(1), all[models.CounterAllAuthors])
	assert.Equal(t, int64(1), all[models.CounterAllSeries])
	assert.Equal(t, int64(2), all[models.CounterAllCatalogs]) // root "/" + "books"
	assert.Equal(t, int64(0), all[models.CounterAllGenres])
}

type countSource struct{ n int }

func (c countSource) Count(ctx context.Context) (int, error) { return c.n, nil }
