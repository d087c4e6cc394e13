package covers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/rendertools"
)

func sampleJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func fb2WithCover(t *testing.T, title string, coverJPEG []byte) string {
	t.Helper()
	encoded := base64.StdEncoding.EncodeToString(coverJPEG)
	return `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
<description><title-info>
<genre>sf</genre>
<author><first-name>Jane</first-name><last-name>Roe</last-name></author>
<book-title>` + title + `</book-title>
<lang>en</lang>
<coverpage><image l:href="#cover.jpg"/></coverpage>
</title-info></description>
<binary id="cover.jpg" content-type="image/jpeg">` + encoded + `</binary>
</FictionBook>`
}

type fixtures struct {
	svc   *Service
	books *books.Service
	root  string
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewForTest(root)
	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	booksSvc := books.NewService(db, dialect)
	renderSvc := &rendertools.Service{}
	svc := NewService(cfg, booksSvc, renderSvc)
	return &fixtures{svc: svc, books: booksSvc, root: root}
}

func (fx *fixtures) insertNormalFB2(t *testing.T, filename, title string, coverJPEG []byte) *models.Book {
	t.Helper()
	content := fb2WithCover(t, title, coverJPEG)
	require.NoError(t, os.WriteFile(filepath.Join(fx.root, filename), []byte(content), 0o644))

	book := &models.Book{
		CatalogID:   1,
		Filename:    filename,
		Path:        "",
		Format:      "fb2",
		Title:       title,
		SearchTitle: title,
		LangCode:    2,
		Avail:       models.AvailConfirmed,
		CatType:     models.CatTypeNormal,
		Cover:       1,
		CoverType:   "image/jpeg",
	}
	require.NoError(t, fx.books.Insert(context.Background(), book))
	return book
}

func (fx *fixtures) insertZipEntryFB2(t *testing.T, archiveName, entryName, title string, coverJPEG []byte) *models.Book {
	t.Helper()
	content := fb2WithCover(t, title, coverJPEG)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entryName)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(fx.root, archiveName), buf.Bytes(), 0o644))

	book := &models.Book{
		CatalogID:   1,
		Filename:    entryName,
		Path:        archiveName,
		Format:      "fb2",
		Title:       title,
		SearchTitle: title,
		LangCode:    2,
		Avail:       models.AvailConfirmed,
		CatType:     models.CatTypeZip,
		Cover:       1,
		CoverType:   "image/jpeg",
	}
	require.NoError(t, fx.books.Insert(context.Background(), book))
	return book
}

func TestCover_NormalFile(t *testing.T) {
	fx := newFixtures(t)
	cover := sampleJPEG(t, 40, 30)
	book := fx.insertNormalFB2(t, "book.fb2", "Normal Book", cover)

	asset, err := fx.svc.Cover(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", asset.ContentType)
	assert.NotEmpty(t, asset.ETag)
	assert.NotEmpty(t, asset.Data)
}

func TestCover_ZipEntry(t *testing.T) {
	fx := newFixtures(t)
	cover := sampleJPEG(t, 40, 30)
	book := fx.insertZipEntryFB2(t, "archive.zip", "entry.fb2", "Zipped Book", cover)

	asset, err := fx.svc.Cover(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", asset.ContentType)
	assert.NotEmpty(t, asset.Data)
}

func TestCover_NoCoverIsNotFound(t *testing.T) {
	fx := newFixtures(t)
	book := &models.Book{
		CatalogID: 1, Filename: "nocov.fb2", Path: "", Format: "fb2",
		Title: "No Cover", SearchTitle: "No Cover", LangCode: 2,
		Avail: models.AvailConfirmed, CatType: models.CatTypeNormal, Cover: 0,
	}
	require.NoError(t, fx.books.Insert(context.Background(), book))
	require.NoError(t, os.WriteFile(filepath.Join(fx.root, "nocov.fb2"), []byte("<x/>"), 0o644))

	_, err := fx.svc.Cover(context.Background(), book.ID)
	require.Error(t, err)
}

func TestThumb_ResizesToFitBox(t *testing.T) {
	fx := newFixtures(t)
	cover := sampleJPEG(t, 800, 400)
	book := fx.insertNormalFB2(t, "big.fb2", "Big Cover", cover)

	asset, err := fx.svc.Thumb(context.Background(), book.ID)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(asset.Data))
	require.NoError(t, err)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), ThumbSize)
	assert.LessOrEqual(t, decoded.Bounds().Dy(), ThumbSize)
}

func TestDownload_OriginalFormat(t *testing.T) {
	fx := newFixtures(t)
	cover := sampleJPEG(t, 10, 10)
	book := fx.insertNormalFB2(t, "dl.fb2", "Downloadable", cover)

	asset, err := fx.svc.Download(context.Background(), book.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Downloadable.fb2", filenameWithoutDisposition(t, asset.Filename))
	assert.Contains(t, string(asset.Data), "Downloadable")
}

func TestDownload_ZippedWrapsNonNoZipFormat(t *testing.T) {
	fx := newFixtures(t)
	cover := sampleJPEG(t, 10, 10)
	book := fx.insertNormalFB2(t, "zipme.fb2", "Zip Me", cover)

	asset, err := fx.svc.Download(context.Background(), book.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "application/fb2+zip", asset.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(asset.Data), int64(len(asset.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "zipme.fb2", zr.File[0].Name)
}

func TestDownload_ZippedDegradesForNoZipFormat(t *testing.T) {
	fx := newFixtures(t)
	book := &models.Book{
		CatalogID: 1, Filename: "book.epub", Path: "", Format: "epub",
		Title: "Epub Book", SearchTitle: "Epub Book", LangCode: 2,
		Avail: models.AvailConfirmed, CatType: models.CatTypeNormal, Cover: 0,
	}
	require.NoError(t, fx.books.Insert(context.Background(), book))
	require.NoError(t, os.WriteFile(filepath.Join(fx.root, "book.epub"), []byte("PK\x03\x04fake"), 0o644))

	asset, err := fx.svc.Download(context.Background(), book.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04fake", string(asset.Data))
}

func filenameWithoutDisposition(t *testing.T, filename string) string {
	t.Helper()
	return filename
}

func TestNewService_LoggerUnused(t *testing.T) {
	_ = logger.New()
}
