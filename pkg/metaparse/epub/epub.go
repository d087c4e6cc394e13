// Package epub extracts BookMeta from an EPUB (ZIP + OPF manifest),
// the way shishobooks' pkg/epub does, adapted to the ROPDS OPF
// metadata contract: dc:creator role=aut preferred, dc:subject as
// genres, calibre:series(_index) meta, and a three-strategy cover
// lookup.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/dshein-alt/ropds-go/pkg/metaparse"
)

type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

type pkg struct {
	Metadata struct {
		Title   []string `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
			Role string `xml:"role,attr"`
		} `xml:"creator"`
		Subject     []string `xml:"subject"`
		Lang        string   `xml:"language"`
		Date        string   `xml:"date"`
		Description string   `xml:"description"`
		Meta    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// Parse reads the EPUB archive r, locates the OPF file via
// META-INF/container.xml (or the sole *.opf entry), and extracts
// BookMeta plus a cover image if one can be resolved.
func Parse(r *zip.Reader) (*metaparse.BookMeta, error) {
	opfName, err := locateOPF(r)
	if err != nil {
		return nil, err
	}

	opfFile := findEntry(r, opfName)
	if opfFile == nil {
		return nil, errors.Errorf("epub: opf entry %q not found", opfName)
	}
	rc, err := opfFile.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var p pkg
	if err := xml.Unmarshal(b, &p); err != nil {
		return nil, errors.Wrap(err, "epub: parsing opf")
	}

	baseDir := path.Dir(opfName)
	if baseDir == "." {
		baseDir = ""
	}

	meta := &metaparse.BookMeta{
		Lang:       p.Metadata.Lang,
		Docdate:    p.Metadata.Date,
		Annotation: stripHTML(p.Metadata.Description),
	}
	if len(p.Metadata.Title) > 0 {
		meta.Title = p.Metadata.Title[0]
	}

	hasRole := false
	for _, c := range p.Metadata.Creator {
		if strings.EqualFold(c.Role, "aut") {
			hasRole = true
		}
	}
	for _, c := range p.Metadata.Creator {
		if !hasRole || strings.EqualFold(c.Role, "aut") {
			name := strings.TrimSpace(c.Text)
			if name != "" {
				meta.Authors = append(meta.Authors, name)
			}
		}
	}

	for _, s := range p.Metadata.Subject {
		s = strings.TrimSpace(s)
		if s != "" {
			meta.Genres = append(meta.Genres, strings.ToLower(s))
		}
	}

	metaContent := map[string]string{}
	for _, m := range p.Metadata.Meta {
		metaContent[m.Name] = m.Content
	}
	meta.SeriesTitle = metaContent["calibre:series"]
	if idx, err := strconv.ParseFloat(metaContent["calibre:series_index"], 64); err == nil {
		meta.SeriesIndex = int(idx)
	}

	coverHref, coverType := resolveCover(p, metaContent, baseDir)
	if coverHref != "" {
		if f := findEntry(r, coverHref); f != nil {
			rc, err := f.Open()
			if err == nil {
				defer rc.Close()
				if data, err := io.ReadAll(rc); err == nil {
					meta.CoverData = data
					meta.CoverType = coverType
				}
			}
		}
	}

	if meta.Title == "" {
		return meta, errors.New("epub: no title in opf")
	}
	return meta, nil
}

// resolveCover tries, in order: a manifest item with properties
// containing "cover-image"; meta[name=cover]@content resolved to a
// manifest id; a manifest item whose id equals "cover" (ci).
func resolveCover(p pkg, metaContent map[string]string, baseDir string) (href, mimeType string) {
	for _, item := range p.Manifest.Item {
		if strings.Contains(item.Properties, "cover-image") {
			return joinHref(baseDir, item.Href), item.MediaType
		}
	}
	if coverID := metaContent["cover"]; coverID != "" {
		for _, item := range p.Manifest.Item {
			if item.ID == coverID {
				return joinHref(baseDir, item.Href), item.MediaType
			}
		}
	}
	for _, item := range p.Manifest.Item {
		if strings.EqualFold(item.ID, "cover") {
			return joinHref(baseDir, item.Href), item.MediaType
		}
	}
	return "", ""
}

func joinHref(baseDir, href string) string {
	if baseDir == "" {
		return href
	}
	return baseDir + "/" + href
}

func locateOPF(r *zip.Reader) (string, error) {
	if f := findEntry(r, "META-INF/container.xml"); f != nil {
		rc, err := f.Open()
		if err == nil {
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err == nil {
				var c container
				if xml.Unmarshal(b, &c) == nil && len(c.Rootfiles.Rootfile) > 0 {
					return c.Rootfiles.Rootfile[0].FullPath, nil
				}
			}
		}
	}
	for _, f := range r.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", errors.New("epub: no opf file found")
}

func findEntry(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// stripHTML reduces an annotation/description field that may contain
// inline markup down to plain text, the way the OPF description field
// is sometimes populated by EPUB producers.
func stripHTML(s string) string {
	tok := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(tok.Text())
		}
	}
	return strings.TrimSpace(sb.String())
}
