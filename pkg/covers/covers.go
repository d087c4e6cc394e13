// Package covers implements spec.md §4.H: on-demand cover/thumbnail
// extraction and download serving. Covers are decoded from the book's
// own bytes rather than a cache directory — "a late binding" per
// spec.md's design notes — except for PDF/DJVU, which have no
// in-stream cover and fall back to pkg/rendertools. Grounded on
// shishobooks-shisho/pkg/books/handlers.go's fileCover/uploadFileCover
// (Cache-Control header shape, c.Blob body) for the Echo handler idiom,
// and on other_examples' ListenUpApp cover handler
// (handleGetCover: hash-derived ETag, If-None-Match short-circuit,
// Content-Length/Last-Modified headers) for the conditional-request
// plumbing the teacher itself doesn't implement.
package covers

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/epub"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/fb2"
	"github.com/dshein-alt/ropds-go/pkg/metaparse/mobi"
	"github.com/dshein-alt/ropds-go/pkg/models"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
	"github.com/dshein-alt/ropds-go/pkg/rendertools"
)

// ThumbSize is the fit-box edge, in pixels, for /opds/thumb/ images
// (spec.md §4.H step 4).
const ThumbSize = 100

// Service reads book bytes off the library filesystem and ZIP catalogs
// to serve covers, thumbnails, and downloads.
type Service struct {
	cfg    *config.Config
	books  *books.Service
	render *rendertools.Service
}

// NewService builds a covers Service.
func NewService(cfg *config.Config, booksSvc *books.Service, renderSvc *rendertools.Service) *Service {
	return &Service{cfg: cfg, books: booksSvc, render: renderSvc}
}

// Asset is a served byte payload plus the headers spec.md §4.H
// requires: Content-Type, an ETag derived from the bytes, and a
// Content-Disposition filename for downloads.
type Asset struct {
	Data        []byte
	ContentType string
	ETag        string
	Filename    string
}

// newAsset wraps data with its SHA-256 ETag.
func newAsset(data []byte, contentType string) Asset {
	sum := sha256.Sum256(data)
	return Asset{Data: data, ContentType: contentType, ETag: `"` + hex.EncodeToString(sum[:]) + `"`}
}

// Cover loads book bookID and returns its full-size cover bytes
// (spec.md §4.H steps 1-3).
func (svc *Service) Cover(ctx context.Context, bookID int) (Asset, error) {
	book, err := svc.books.Retrieve(ctx, bookID)
	if err != nil {
		return Asset{}, err
	}
	if book.Cover == 0 {
		return Asset{}, errcodes.NotFound("Cover")
	}

	data, contentType, err := svc.decodeCover(ctx, book)
	if err != nil {
		return Asset{}, err
	}
	return newAsset(data, contentType), nil
}

// Thumb loads book bookID's cover and resizes it to fit ThumbSize x
// ThumbSize with Lanczos3, re-encoded as JPEG (spec.md §4.H step 4).
func (svc *Service) Thumb(ctx context.Context, bookID int) (Asset, error) {
	book, err := svc.books.Retrieve(ctx, bookID)
	if err != nil {
		return Asset{}, err
	}
	if book.Cover == 0 {
		return Asset{}, errcodes.NotFound("Cover")
	}

	data, _, err := svc.decodeCover(ctx, book)
	if err != nil {
		return Asset{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Asset{}, errcodes.IoError("cover image could not be decoded: " + err.Error())
	}

	out, err := lanczosThumbJPEG(img, ThumbSize, ThumbSize)
	if err != nil {
		return Asset{}, err
	}
	return newAsset(out, "image/jpeg"), nil
}

// Download loads book bookID's source bytes, optionally wrapping them
// in a deflate ZIP, per spec.md §4.H's download contract.
func (svc *Service) Download(ctx context.Context, bookID int, zipFlag bool) (Asset, error) {
	book, err := svc.books.Retrieve(ctx, bookID)
	if err != nil {
		return Asset{}, err
	}

	data, err := svc.sourceBytes(book)
	if err != nil {
		return Asset{}, err
	}

	filename := book.Filename
	contentType := feed.MimeType(book.Format)
	if zipFlag && !feed.IsNoZipFormat(book.Format) {
		data, err = zipWrap(filename, data)
		if err != nil {
			return Asset{}, err
		}
		filename = sanitizeFilename(book.Title) + ".zip"
		contentType = feed.ZipMimeType(book.Format)
	} else {
		filename = sanitizeFilename(book.Title) + "." + book.Format
	}

	asset := newAsset(data, contentType)
	asset.Filename = filename
	return asset, nil
}

// decodeCover reads book's source bytes and extracts (or renders) its
// cover image, returning (bytes, mimeType).
func (svc *Service) decodeCover(ctx context.Context, book *models.Book) ([]byte, string, error) {
	data, err := svc.sourceBytes(book)
	if err != nil {
		return nil, "", err
	}

	switch book.Format {
	case "fb2":
		meta, err := fb2.Parse(bytes.NewReader(data), bytes.NewReader(data))
		if err != nil || len(meta.CoverData) == 0 {
			return nil, "", errcodes.IoError("no cover embedded in fb2 file")
		}
		return meta.CoverData, meta.CoverType, nil
	case "epub":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, "", errcodes.IoError("epub could not be read as zip: " + err.Error())
		}
		meta, err := epub.Parse(zr)
		if err != nil || len(meta.CoverData) == 0 {
			return nil, "", errcodes.IoError("no cover embedded in epub file")
		}
		return meta.CoverData, meta.CoverType, nil
	case "mobi":
		meta, err := mobi.Parse(bytes.NewReader(data))
		if err != nil || len(meta.CoverData) == 0 {
			return nil, "", errcodes.IoError("no cover embedded in mobi file")
		}
		return meta.CoverData, meta.CoverType, nil
	case "pdf":
		out, err := svc.render.RenderPDFCover(ctx, data)
		if err != nil {
			return nil, "", err
		}
		return out, "image/jpeg", nil
	case "djvu":
		out, err := svc.render.RenderDJVUCover(ctx, data)
		if err != nil {
			return nil, "", err
		}
		return out, "image/jpeg", nil
	default:
		if book.CoverType != "" {
			return nil, "", errcodes.IoError("cover re-derivation is not supported for format " + book.Format)
		}
		return nil, "", errcodes.NotFound("Cover")
	}
}

// sourceBytes reads the raw bytes of a book's file, per spec.md §4.H
// step 2: plain files for Normal catalogs, a ZIP entry named
// book.Filename for Zip/Inpx/Inp catalogs.
func (svc *Service) sourceBytes(book *models.Book) ([]byte, error) {
	switch book.CatType {
	case models.CatTypeNormal:
		abs := filepath.Join(svc.cfg.Library.RootPath, book.Path, book.Filename)
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, errcodes.IoError("book file not found: " + err.Error())
		}
		return data, nil
	case models.CatTypeZip, models.CatTypeInpx, models.CatTypeInp:
		archivePath := filepath.Join(svc.cfg.Library.RootPath, book.Path)
		zr, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, errcodes.IoError("archive not found: " + err.Error())
		}
		defer zr.Close()

		for _, f := range zr.File {
			if f.Name == book.Filename {
				rc, err := f.Open()
				if err != nil {
					return nil, errcodes.IoError("archive entry unreadable: " + err.Error())
				}
				defer rc.Close()
				data, err := io.ReadAll(rc)
				if err != nil {
					return nil, errcodes.IoError("archive entry unreadable: " + err.Error())
				}
				return data, nil
			}
		}
		return nil, errcodes.NotFound("Book file")
	default:
		return nil, errcodes.IoError("unknown catalog type " + book.CatType)
	}
}

// zipWrap wraps data as the single deflate-compressed entry name in a
// new in-memory ZIP archive (spec.md §4.H download contract).
func zipWrap(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// sanitizeFilename strips characters that would break a
// Content-Disposition header or a filesystem path from a book title.
func sanitizeFilename(title string) string {
	r := strings.NewReplacer(`/`, "_", `\`, "_", `"`, "'", "\x00", "")
	return r.Replace(title)
}

// lanczosThumbJPEG resizes img to fit within w x h using a Lanczos3
// kernel (x/image/draw ships Catmull-Rom/bilinear/nearest-neighbor
// kernels but not Lanczos3, so spec.md §4.H step 4's resize algorithm
// is implemented as a custom draw.Kernel) and encodes the result as
// JPEG.
func lanczosThumbJPEG(img image.Image, w, h int) ([]byte, error) {
	sb := img.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s < scale {
		scale = s
	}
	dw, dh := int(float64(sw)*scale), int(float64(sh)*scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	lanczos3.Scale(dst, dst.Bounds(), img, sb, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: rendertools.JPEGQuality}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}
