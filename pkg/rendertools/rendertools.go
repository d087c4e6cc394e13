// Package rendertools renders a cover image for formats the metadata
// parsers cannot extract one from directly — PDF and DJVU — by
// shelling out to pdftoppm/ddjvu, spec.md §4.I. There is no teacher
// package that invokes an external converter; the temp-dir-plus-
// guaranteed-cleanup shape follows the os/exec idiom
// shishobooks-shisho/pkg/plugins/hostapi_ffmpeg.go uses to run ffmpeg
// as a subprocess (context timeout, captured stdout/stderr, swappable
// binary path for tests).
package rendertools

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/image/draw"

	"github.com/dshein-alt/ropds-go/pkg/errcodes"
)

// MaxDimension is the longest edge, in pixels, a rendered PDF/DJVU
// cover is scaled to (spec.md §4.I).
const MaxDimension = 600

// JPEGQuality is the re-encode quality for rendered covers.
const JPEGQuality = 85

const renderTimeout = 30 * time.Second

// pdftoppmBinary and ddjvuBinary are the external tool names/paths.
// Overridable in tests to substitute a mock command.
var (
	pdftoppmBinary = "pdftoppm"
	ddjvuBinary    = "ddjvu"
)

// Service invokes pdftoppm/ddjvu to rasterize the first page of a PDF
// or DJVU file into a JPEG cover. Availability of each tool is probed
// once at construction; a missing tool disables its capability rather
// than failing every request.
type Service struct {
	log logger.Logger

	pdftoppmAvailable bool
	ddjvuAvailable    bool
}

// NewService probes for pdftoppm and ddjvu on PATH, logging a warning
// for whichever is absent (spec.md §4.I: "absence of the tool is
// detected at startup and disables the capability with a warning").
func NewService(log logger.Logger) *Service {
	svc := &Service{log: log}
	if _, err := exec.LookPath(pdftoppmBinary); err == nil {
		svc.pdftoppmAvailable = true
	} else {
		log.Warn("pdftoppm not found on PATH, PDF cover rendering disabled", logger.Data{"error": err.Error()})
	}
	if _, err := exec.LookPath(ddjvuBinary); err == nil {
		svc.ddjvuAvailable = true
	} else {
		log.Warn("ddjvu not found on PATH, DJVU cover rendering disabled", logger.Data{"error": err.Error()})
	}
	return svc
}

// PDFAvailable reports whether pdftoppm was found at startup.
func (svc *Service) PDFAvailable() bool { return svc.pdftoppmAvailable }

// DJVUAvailable reports whether ddjvu was found at startup.
func (svc *Service) DJVUAvailable() bool { return svc.ddjvuAvailable }

// RenderPDFCover rasterizes the first page of a PDF byte stream into a
// JPEG no wider or taller than MaxDimension.
func (svc *Service) RenderPDFCover(ctx context.Context, data []byte) ([]byte, error) {
	if !svc.pdftoppmAvailable {
		return nil, errcodes.IoError("PDF cover rendering is unavailable: pdftoppm is not installed")
	}

	dir, err := mkTempDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "src.pdf")
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		return nil, errors.WithStack(err)
	}
	outPrefix := filepath.Join(dir, "out")

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pdftoppmBinary,
		"-jpeg", "-singlefile", "-scale-to", strconv.Itoa(MaxDimension),
		"-jpegopt", "quality="+strconv.Itoa(JPEGQuality),
		srcPath, outPrefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "pdftoppm failed: %s", stderr.String())
	}

	out, err := os.ReadFile(outPrefix + ".jpg")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// RenderDJVUCover rasterizes the first page of a DJVU byte stream into
// a JPEG no wider or taller than MaxDimension. ddjvu has no JPEG output
// mode in most distributions, so the page is rendered as a PPM and
// re-encoded through image/jpeg after an x/image/draw resize.
func (svc *Service) RenderDJVUCover(ctx context.Context, data []byte) ([]byte, error) {
	if !svc.ddjvuAvailable {
		return nil, errcodes.IoError("DJVU cover rendering is unavailable: ddjvu is not installed")
	}

	dir, err := mkTempDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "src.djvu")
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		return nil, errors.WithStack(err)
	}
	outPath := filepath.Join(dir, "out.ppm")

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ddjvuBinary, "-page=1", "-format=ppm", srcPath, outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "ddjvu failed: %s", stderr.String())
	}

	ppmData, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	img, err := decodePPM(ppmData)
	if err != nil {
		return nil, err
	}

	return resizeToFitJPEG(img, MaxDimension, MaxDimension, JPEGQuality)
}

func mkTempDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "ropds-render-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	return dir, nil
}

// resizeToFitJPEG scales img down to fit within maxW x maxH (preserving
// aspect ratio, never upscaling) and encodes it as JPEG at quality.
func resizeToFitJPEG(img image.Image, maxW, maxH, quality int) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxW || h > maxH {
		scale := float64(maxW) / float64(w)
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// decodePPM decodes a binary (P6) PPM image, the format ddjvu's
// -format=ppm option produces. image/jpeg et al. don't cover PPM, so
// this reads the minimal header every ddjvu-produced file uses:
// "P6\n<width> <height>\n<maxval>\n" followed by raw RGB bytes.
func decodePPM(data []byte) (image.Image, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	magic, err := readPPMToken(r)
	if err != nil {
		return nil, err
	}
	if magic != "P6" {
		return nil, errors.Errorf("rendertools: unsupported PPM magic %q", magic)
	}

	width, err := readPPMInt(r)
	if err != nil {
		return nil, err
	}
	height, err := readPPMInt(r)
	if err != nil {
		return nil, err
	}
	maxVal, err := readPPMInt(r)
	if err != nil {
		return nil, err
	}
	if maxVal != 255 {
		return nil, errors.Errorf("rendertools: unsupported PPM maxval %d", maxVal)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := make([]byte, width*3)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, errors.WithStack(err)
		}
		for x := 0; x < width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = row[x*3]
			img.Pix[i+1] = row[x*3+1]
			img.Pix[i+2] = row[x*3+2]
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}

func readPPMToken(r *bufio.Reader) (string, error) {
	var tok bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", errors.WithStack(err)
		}
		if b == ' ' || b == '\n' || b == '\t' || b == '\r' {
			if tok.Len() == 0 {
				continue
			}
			return tok.String(), nil
		}
		tok.WriteByte(b)
	}
}

func readPPMInt(r *bufio.Reader) (int, error) {
	tok, err := readPPMToken(r)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}
