package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/counters"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/series"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
<description>
<title-info>
<genre>sf</genre>
<author><first-name>John</first-name><last-name>Doe</last-name></author>
<book-title>Test Book</book-title>
<lang>en</lang>
<sequence name="Chronicles" number="1"/>
</title-info>
</description>
<body><section><p>Hello</p></section></body>
</FictionBook>`

func newTestFixtures(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewForTest(root)
	cfg.Library.BookExtensions = "fb2, epub, mobi, zip"
	cfg.Library.ScanZip = true

	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	booksSvc := books.NewService(db, dialect)
	catalogsSvc := catalogs.NewService(db)
	authorsSvc := authors.NewService(db, dialect)
	seriesSvc := series.NewService(db, dialect)
	genresSvc := genres.NewService(db, dialect)
	countersSvc := counters.NewService(db, dialect)

	svc := NewService(cfg, logger.New(), booksSvc, catalogsSvc, authorsSvc, seriesSvc, genresSvc, countersSvc)
	return svc, root
}

func TestRun_AddsPlainFB2Book(t *testing.T) {
	svc, root := newTestFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.fb2"), []byte(sampleFB2), 0o644))

	ctx := context.Background()
	stats, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BooksAdded)
	assert.Equal(t, 0, stats.Errors)
}

func TestRun_IsIdempotentOnRescan(t *testing.T) {
	svc, root := newTestFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.fb2"), []byte(sampleFB2), 0o644))

	ctx := context.Background()
	_, err := svc.Run(ctx)
	require.NoError(t, err)

	stats, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.BooksAdded)
	assert.Equal(t, 0, stats.BooksDeleted)
}

func TestRun_DeletesRemovedFile(t *testing.T) {
	svc, root := newTestFixtures(t)
	path := filepath.Join(root, "book.fb2")
	require.NoError(t, os.WriteFile(path, []byte(sampleFB2), 0o644))

	ctx := context.Background()
	_, err := svc.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	stats, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BooksDeleted)
}

func TestRun_UnsupportedFormatSkipped(t *testing.T) {
	svc, root := newTestFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))

	ctx := context.Background()
	stats, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.BooksAdded)
}
