// Package scanner walks a library root and reconciles what it finds on
// disk against the database: new books are inserted, previously seen
// books are reconfirmed, and anything no longer present is deleted.
// The overall shape — sweep marker, discovery, per-entry processing,
// deletion, recount — follows shisho's pkg/worker scan jobs, adapted
// from its DB-backed job queue to a single in-process run guarded by
// an atomic flag (spec.md's run_scan has no durable job record).
package scanner

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/counters"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/metaparse"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/epub"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/fb2"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/inpx"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/mobi"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/series"
	"github.com/dshein-alt/ropds-go/pkg/textnorm"
)

// ScanStats tallies what one run_scan pass did, returned to the
// scheduler (or an admin-triggered request) for logging/reporting.
type ScanStats struct {
	BooksAdded      int
	BooksSkipped    int
	BooksDeleted    int
	ArchivesScanned int
	ArchivesSkipped int
	Errors          int
}

// Service owns the single-flight guard and the query-layer services a
// scan reconciles against.
type Service struct {
	cfg *config.Config
	log logger.Logger

	books    *books.Service
	catalogs *catalogs.Service
	authors  *authors.Service
	series   *series.Service
	genres   *genres.Service
	counters *counters.Service

	running atomic.Bool
}

// NewService builds a scan Service.
func NewService(
	cfg *config.Config,
	log logger.Logger,
	booksSvc *books.Service,
	catalogsSvc *catalogs.Service,
	authorsSvc *authors.Service,
	seriesSvc *series.Service,
	genresSvc *genres.Service,
	countersSvc *counters.Service,
) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		books:    booksSvc,
		catalogs: catalogsSvc,
		authors:  authorsSvc,
		series:   seriesSvc,
		genres:   genresSvc,
		counters: countersSvc,
	}
}

// Run performs one full scan: sweep, discover, process, delete,
// recount. Only one Run may be in flight at a time; a concurrent call
// returns errcodes.AlreadyRunning immediately.
func (svc *Service) Run(ctx context.Context) (*ScanStats, error) {
	if !svc.running.CompareAndSwap(false, true) {
		return nil, errcodes.AlreadyRunning()
	}
	defer svc.running.Store(false)

	start := time.Now()
	log := svc.log.Root(logger.Data{"component": "scanner"})
	log.Info("scan started", logger.Data{"root": svc.cfg.Library.RootPath})

	stats := &ScanStats{}

	if err := svc.books.MarkAllUnverified(ctx); err != nil {
		return nil, errors.Wrap(err, "scanner: sweep marker")
	}

	inpxFiles, plainFiles, err := svc.discover(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "scanner: discovery")
	}

	inpxDirs := make(map[string]bool, len(inpxFiles))
	if svc.cfg.Library.InpxEnable {
		for _, f := range inpxFiles {
			inpxDirs[filepath.Dir(f)] = true
		}
		for _, f := range inpxFiles {
			if err := svc.processInpx(ctx, log, f, stats); err != nil {
				log.Err(err).Error("inpx processing failed")
				stats.Errors++
			}
		}
	}

	exts := extSet(svc.cfg.Library.Extensions())

	for _, path := range plainFiles {
		if inpxDirs[filepath.Dir(path)] {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if ext == "" || !exts[ext] {
			continue
		}
		if ext == "zip" {
			if !svc.cfg.Library.ScanZip {
				continue
			}
			svc.processZip(ctx, log, path, exts, stats)
			continue
		}
		if err := svc.processPlainFile(ctx, log, path, ext, stats); err != nil {
			log.Err(err).Error("plain file processing failed", logger.Data{"path": path})
			stats.Errors++
		}
	}

	deleted, err := svc.books.DeleteUnverified(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "scanner: delete unverified")
	}
	stats.BooksDeleted = deleted

	if _, err := svc.authors.CleanupOrphaned(ctx); err != nil {
		return nil, errors.Wrap(err, "scanner: author cleanup")
	}
	if _, err := svc.series.CleanupOrphaned(ctx); err != nil {
		return nil, errors.Wrap(err, "scanner: series cleanup")
	}

	if err := svc.counters.RecomputeAll(ctx, svc.books, svc.catalogs, svc.authors, svc.genres, svc.series); err != nil {
		return nil, errors.Wrap(err, "scanner: recompute counters")
	}

	log.Info("scan finished", logger.Data{
		"duration_ms":      time.Since(start).Milliseconds(),
		"books_added":      stats.BooksAdded,
		"books_skipped":    stats.BooksSkipped,
		"books_deleted":    stats.BooksDeleted,
		"archives_scanned": stats.ArchivesScanned,
		"archives_skipped": stats.ArchivesSkipped,
		"errors":           stats.Errors,
	})
	return stats, nil
}

// discover walks the library root once and partitions every regular
// file (including symlinks to files; symlinked directories are not
// descended into) into INPX index files and everything
// else (plain book candidates and ZIP archives alike; extension
// filtering happens in the caller once inpx_enable is known).
func (svc *Service) discover(ctx context.Context) (inpxFiles, plainFiles []string, err error) {
	root := svc.cfg.Library.RootPath
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			// Unreadable entry (permissions, broken symlink): skip it
			// rather than aborting the whole walk.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil || info.IsDir() {
				return nil
			}
		}
		if strings.EqualFold(filepath.Ext(path), ".inpx") {
			inpxFiles = append(inpxFiles, path)
			return nil
		}
		plainFiles = append(plainFiles, path)
		return nil
	})
	if walkErr != nil {
		return nil, nil, errors.WithStack(walkErr)
	}
	return inpxFiles, plainFiles, nil
}

func extSet(exts []string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		out[e] = true
	}
	return out
}

// processPlainFile implements spec.md §4.C step 3's plain-file branch:
// reconfirm an already-known book, or parse and insert a new one.
func (svc *Service) processPlainFile(ctx context.Context, log logger.Logger, absPath, ext string, stats *ScanStats) error {
	rel, err := filepath.Rel(svc.cfg.Library.RootPath, absPath)
	if err != nil {
		return errors.WithStack(err)
	}
	rel = filepath.ToSlash(rel)
	dir := path2Dir(rel)
	filename := filepath.Base(rel)

	cat, err := svc.catalogs.Ensure(ctx, dir, models.CatTypeNormal)
	if err != nil {
		return err
	}

	if existing, err := svc.books.RetrieveByPath(ctx, cat.ID, filename); err == nil {
		stats.BooksSkipped++
		return svc.books.Confirm(ctx, existing.ID)
	} else if !isNotFound(err) {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return errors.WithStack(err)
	}

	meta, err := parseMeta(ext, filename, fileSource{path: absPath})
	if err != nil {
		log.Debug("metadata parse failed", logger.Data{"path": absPath, "error": err.Error()})
		stats.Errors++
		meta = &metaparse.BookMeta{Title: titleFromFilename(filename)}
	}

	book := &models.Book{
		CatalogID: cat.ID,
		Filename:  filename,
		Path:      dir,
		Format:    ext,
		CatType:   models.CatTypeNormal,
		Size:      info.Size(),
		RegDate:   time.Now(),
	}
	if err := svc.insertBook(ctx, book, meta); err != nil {
		return err
	}
	stats.BooksAdded++
	return nil
}

// processZip implements the ZIP-archive branch: every supported entry
// inside is added or confirmed independently; a per-entry failure is
// counted but never aborts the rest of the archive.
func (svc *Service) processZip(ctx context.Context, log logger.Logger, absPath string, exts map[string]bool, stats *ScanStats) {
	zr, err := zip.OpenReader(absPath)
	if err != nil {
		log.Err(err).Error("failed to open zip archive", logger.Data{"path": absPath})
		stats.ArchivesSkipped++
		stats.Errors++
		return
	}
	defer zr.Close()

	rel, err := filepath.Rel(svc.cfg.Library.RootPath, absPath)
	if err != nil {
		log.Err(err).Error("zip path outside library root", logger.Data{"path": absPath})
		stats.ArchivesSkipped++
		stats.Errors++
		return
	}
	rel = filepath.ToSlash(rel)

	cat, err := svc.catalogs.Ensure(ctx, path2Dir(rel), models.CatTypeZip)
	if err != nil {
		log.Err(err).Error("failed to ensure archive catalog", logger.Data{"path": absPath})
		stats.ArchivesSkipped++
		stats.Errors++
		return
	}

	stats.ArchivesScanned++
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := decodeZipName(f.Name, svc.cfg.Library.ZipCodepage, f.NonUTF8)
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if ext == "" || !exts[ext] || ext == "zip" {
			// Nested ZIPs are explicitly excluded from archive scanning.
			continue
		}

		if err := svc.processZipEntry(ctx, cat, rel, name, ext, f, stats); err != nil {
			log.Debug("zip entry processing failed", logger.Data{"archive": absPath, "entry": name, "error": err.Error()})
			stats.Errors++
		}
	}
}

func (svc *Service) processZipEntry(ctx context.Context, cat *models.Catalog, archiveRelPath, entryName, ext string, f *zip.File, stats *ScanStats) error {
	if existing, err := svc.books.RetrieveByPath(ctx, cat.ID, entryName); err == nil {
		stats.BooksSkipped++
		return svc.books.Confirm(ctx, existing.ID)
	} else if !isNotFound(err) {
		return err
	}

	meta, err := parseMeta(ext, entryName, zipEntrySource{f: f})
	if err != nil {
		stats.Errors++
		meta = &metaparse.BookMeta{Title: titleFromFilename(entryName)}
	}

	book := &models.Book{
		CatalogID: cat.ID,
		Filename:  entryName,
		Path:      archiveRelPath,
		Format:    ext,
		CatType:   models.CatTypeZip,
		Size:      int64(f.UncompressedSize64),
		RegDate:   time.Now(),
	}
	if err := svc.insertBook(ctx, book, meta); err != nil {
		return err
	}
	stats.BooksAdded++
	return nil
}

// processInpx implements the INPX branch: open the index as a ZIP,
// parse every *.inp entry, and add-or-confirm each record without
// touching the book's own bytes.
func (svc *Service) processInpx(ctx context.Context, log logger.Logger, absPath string, stats *ScanStats) error {
	zr, err := zip.OpenReader(absPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer zr.Close()

	records, err := inpx.Parse(&zr.Reader)
	if err != nil {
		return err
	}

	inpxDir := filepath.Dir(absPath)
	for _, rec := range records {
		relDir, err := filepath.Rel(svc.cfg.Library.RootPath, inpxDir)
		if err != nil {
			stats.Errors++
			continue
		}
		bookPath := filepath.ToSlash(filepath.Join(relDir, rec.Folder))
		filename := rec.Stem + "." + rec.Ext

		cat, err := svc.catalogs.Ensure(ctx, filepath.ToSlash(filepath.Dir(bookPath)), models.CatTypeInpx)
		if err != nil {
			stats.Errors++
			continue
		}

		if existing, err := svc.books.RetrieveByPath(ctx, cat.ID, filename); err == nil {
			stats.BooksSkipped++
			if confirmErr := svc.books.Confirm(ctx, existing.ID); confirmErr != nil {
				stats.Errors++
			}
			continue
		} else if !isNotFound(err) {
			stats.Errors++
			continue
		}

		meta := rec.Meta
		book := &models.Book{
			CatalogID: cat.ID,
			Filename:  filename,
			Path:      bookPath,
			Format:    rec.Ext,
			CatType:   models.CatTypeInpx,
			Size:      rec.Size,
			RegDate:   time.Now(),
		}
		if err := svc.insertBook(ctx, book, &meta); err != nil {
			log.Debug("inpx record insert failed", logger.Data{"path": absPath, "stem": rec.Stem, "error": err.Error()})
			stats.Errors++
			continue
		}
		stats.BooksAdded++
	}
	return nil
}

// insertBook fills in the normalised fields of book from meta, inserts
// it, writes its cover (if any), and links authors/genres/series.
func (svc *Service) insertBook(ctx context.Context, book *models.Book, meta *metaparse.BookMeta) error {
	title := textnorm.StripMeta(meta.Title)
	if title == "" {
		title = titleFromFilename(book.Filename)
	}
	book.Title = title
	book.SearchTitle = textnorm.SearchKey(title)
	book.LangCode = textnorm.DetectLangCode(title)
	book.Annotation = meta.Annotation
	book.Docdate = meta.Docdate
	book.Lang = meta.Lang
	book.Avail = models.AvailConfirmed

	if err := svc.books.Insert(ctx, book); err != nil {
		return err
	}

	if len(meta.CoverData) > 0 {
		if err := svc.saveCover(book.ID, meta.CoverData, meta.CoverType); err != nil {
			return err
		}
		if err := svc.books.SetCover(ctx, book.ID, meta.CoverType); err != nil {
			return err
		}
		book.Cover = 1
		book.CoverType = meta.CoverType
	}

	authorIDs := make([]int, 0, len(meta.Authors))
	for _, name := range meta.Authors {
		normalized := textnorm.NormalizeAuthorName(name)
		if normalized == "" {
			continue
		}
		id, err := svc.authors.Insert(ctx, normalized)
		if err != nil {
			return err
		}
		authorIDs = append(authorIDs, id)
	}
	if len(authorIDs) == 0 {
		id, err := svc.authors.EnsureUnknown(ctx)
		if err != nil {
			return err
		}
		authorIDs = append(authorIDs, id)
	}
	if err := svc.books.SetAuthors(ctx, book.ID, authorIDs); err != nil {
		return err
	}

	var genreIDs []int
	for _, code := range meta.Genres {
		genre, ok, err := svc.genres.ByCode(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		genreIDs = append(genreIDs, genre.ID)
	}
	if err := svc.books.SetGenres(ctx, book.ID, genreIDs); err != nil {
		return err
	}

	if meta.SeriesTitle != "" {
		seriesID, err := svc.series.Insert(ctx, textnorm.StripMeta(meta.SeriesTitle))
		if err != nil {
			return err
		}
		if err := svc.books.SetSeries(ctx, book.ID, []books.SeriesLink{{SeriesID: seriesID, SerNo: meta.SeriesIndex}}); err != nil {
			return err
		}
	}

	return nil
}

// coverExtByMime maps the sniffed MIME types fb2/epub/mobi cover
// extraction can produce to the file extension covers are saved under.
var coverExtByMime = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// saveCover writes data to {library.covers_path}/{book_id}.{ext},
// spec.md §4.C step 3's "save the cover to covers/{book_id}.{ext}".
func (svc *Service) saveCover(bookID int, data []byte, mimeType string) error {
	ext, ok := coverExtByMime[mimeType]
	if !ok {
		ext = "jpg"
	}
	dir := svc.cfg.Library.CoversPath
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(svc.cfg.Library.RootPath, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	name := filepath.Join(dir, itoaCover(bookID)+"."+ext)
	return errors.WithStack(os.WriteFile(name, data, 0o644))
}

func itoaCover(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func isNotFound(err error) bool {
	var ce *errcodes.Error
	return errors.As(err, &ce) && ce.HTTPCode == 404
}

func path2Dir(relSlashPath string) string {
	dir := filepath.ToSlash(filepath.Dir(relSlashPath))
	if dir == "." {
		return ""
	}
	return dir
}

func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// source abstracts "a book's bytes", which may need to be read once
// (mobi, the default fallback) or twice (fb2's two-pass metadata/cover
// read) or loaded whole (epub, which needs a seekable *zip.Reader).
type source interface {
	Open() (io.ReadCloser, error)
}

type fileSource struct{ path string }

func (s fileSource) Open() (io.ReadCloser, error) { return os.Open(s.path) }

type zipEntrySource struct{ f *zip.File }

func (s zipEntrySource) Open() (io.ReadCloser, error) { return s.f.Open() }

// parseMeta dispatches to the format-specific parser. Formats with no
// metadata parser (pdf, djvu, doc, docx, txt, rtf, ...) fall back to a
// filename-derived title with no further metadata.
func parseMeta(format, name string, src source) (*metaparse.BookMeta, error) {
	switch format {
	case "fb2":
		r1, err := src.Open()
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		defer r1.Close()
		r2, err := src.Open()
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		defer r2.Close()
		meta, err := fb2.Parse(r1, r2)
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		return meta, nil

	case "epub":
		r, err := src.Open()
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		meta, err := epub.Parse(zr)
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		return meta, nil

	case "mobi":
		r, err := src.Open()
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		defer r.Close()
		meta, err := mobi.Parse(r)
		if err != nil {
			return nil, errcodes.ParserError(name, err)
		}
		return meta, nil

	default:
		return &metaparse.BookMeta{Title: titleFromFilename(name)}, nil
	}
}
