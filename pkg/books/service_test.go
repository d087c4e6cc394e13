package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

func newTestFixtures(t *testing.T) (*Service, *catalogs.Service, *authors.Service) {
	t.Helper()
	cfg := config.NewForTest(t.TempDir())
	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	return NewService(db, dialect), catalogs.NewService(db), authors.NewService(db, dialect)
}

func insertBook(t *testing.T, svc *Service, catID int, title, authorKey string) *models.Book {
	t.Helper()
	book := &models.Book{
		CatalogID:   catID,
		Filename:    title + ".fb2",
		Path:        title + ".fb2",
		Format:      "fb2",
		Title:       title,
		SearchTitle: title,
		AuthorKey:   authorKey,
		LangCode:    2,
		Avail:       models.AvailConfirmed,
		CatType:     models.CatTypeNormal,
	}
	require.NoError(t, svc.Insert(context.Background(), book))
	return book
}

func TestSetAuthors_RecomputesAuthorKey(t *testing.T) {
	booksSvc, catSvc, authorsSvc := newTestFixtures(t)
	ctx := context.Background()

	cat, err := catSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)

	book := insertBook(t, booksSvc, cat.ID, "TEST BOOK", "")

	id1, err := authorsSvc.Insert(ctx, "Doe John")
	require.NoError(t, err)
	id2, err := authorsSvc.Insert(ctx, "Roe Jane")
	require.NoError(t, err)

	require.NoError(t, booksSvc.SetAuthors(ctx, book.ID, []int{id2, id1}))

	updated, err := booksSvc.Retrieve(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Authors, 2)
	assert.Equal(t, authorKey([]int{id1, id2}), updated.AuthorKey)
}

func TestMarkAllUnverifiedThenDeleteUnverified(t *testing.T) {
	booksSvc, catSvc, _ := newTestFixtures(t)
	ctx := context.Background()

	cat, err := catSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)

	book := insertBook(t, booksSvc, cat.ID, "SWEPT BOOK", "")

	require.NoError(t, booksSvc.MarkAllUnverified(ctx))

	reloaded, err := booksSvc.Retrieve(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailUnverified, reloaded.Avail)

	n, err := booksSvc.DeleteUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = booksSvc.Retrieve(ctx, book.ID)
	assert.Error(t, err)
}

func TestCountDoubles(t *testing.T) {
	booksSvc, catSvc, _ := newTestFixtures(t)
	ctx := context.Background()

	cat, err := catSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)

	b1 := insertBook(t, booksSvc, cat.ID, "DUPLICATE", "42")
	insertBookWithFilename(t, booksSvc, cat.ID, "DUPLICATE", "42", "dup2.fb2")
	insertBookWithFilename(t, booksSvc, cat.ID, "DUPLICATE", "42", "dup3.fb2")
	insertBookWithFilename(t, booksSvc, cat.ID, "DUPLICATE", "43", "dup4.fb2")

	count, err := booksSvc.CountDoubles(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	groups, total, err := booksSvc.DuplicateGroups(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count)
}

func insertBookWithFilename(t *testing.T, svc *Service, catID int, title, authorKey, filename string) *models.Book {
	t.Helper()
	book := &models.Book{
		CatalogID:   catID,
		Filename:    filename,
		Path:        filename,
		Format:      "fb2",
		Title:       title,
		SearchTitle: title,
		AuthorKey:   authorKey,
		LangCode:    2,
		Avail:       models.AvailConfirmed,
		CatType:     models.CatTypeNormal,
	}
	require.NoError(t, svc.Insert(context.Background(), book))
	return book
}

func TestByCatalog(t *testing.T) {
	booksSvc, catSvc, _ := newTestFixtures(t)
	ctx := context.Background()

	catA, err := catSvc.Ensure(ctx, "books/a", models.CatTypeNormal)
	require.NoError(t, err)
	catB, err := catSvc.Ensure(ctx, "books/b", models.CatTypeNormal)
	require.NoError(t, err)

	insertBook(t, booksSvc, catA.ID, "IN A", "")
	insertBookWithFilename(t, booksSvc, catA.ID, "ALSO IN A", "", "also.fb2")
	insertBookWithFilename(t, booksSvc, catB.ID, "IN B", "", "inb.fb2")

	books, total, err := booksSvc.ByCatalog(ctx, catA.ID, ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, books, 2)
	for _, b := range books {
		assert.Equal(t, catA.ID, b.CatalogID)
	}
}

func TestLanguages(t *testing.T) {
	booksSvc, catSvc, _ := newTestFixtures(t)
	ctx := context.Background()

	cat, err := catSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)

	b1 := insertBook(t, booksSvc, cat.ID, "RU BOOK", "")
	b1.Lang = "ru"
	require.NoError(t, booksSvc.Confirm(ctx, b1.ID))
	_, err = booksSvc.db.NewUpdate().Model((*models.Book)(nil)).Set("lang = ?", "ru").Where("id = ?", b1.ID).Exec(ctx)
	require.NoError(t, err)

	b2 := insertBookWithFilename(t, booksSvc, cat.ID, "EN BOOK", "", "en.fb2")
	_, err = booksSvc.db.NewUpdate().Model((*models.Book)(nil)).Set("lang = ?", "en").Where("id = ?", b2.ID).Exec(ctx)
	require.NoError(t, err)

	langs, err := booksSvc.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "ru"}, langs)
}

func TestTitlePrefixGroups(t *testing.T) {
	booksSvc, catSvc, _ := newTestFixtures(t)
	ctx := context.Background()

	cat, err := catSvc.Ensure(ctx, "books", models.CatTypeNormal)
	require.NoError(t, err)

	insertBook(t, booksSvc, cat.ID, "ALPHA", "")
	insertBookWithFilename(t, booksSvc, cat.ID, "AZURE", "", "azure.fb2")
	insertBookWithFilename(t, booksSvc, cat.ID, "BRAVO", "", "bravo.fb2")

	groups, err := booksSvc.TitlePrefixGroups(ctx, 0, "", false)
	require.NoError(t, err)

	found := make(map[string]int)
	for _, g := range groups {
		found[g.Prefix] = g.Count
	}
	assert.Equal(t, 2, found["A"])
	assert.Equal(t, 1, found["B"])
}
