// Package fb2 parses FictionBook 2 metadata by streaming the XML
// tree rather than loading a DOM, tracking a path stack of local
// element names (namespaces stripped, lowercased) the way the
// original ROPDS scanner does.
package fb2

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/dshein-alt/ropds-go/pkg/metaparse"
)

// charsetReader resolves the charset XML declares (e.g. "windows-1251",
// "koi8-r") to a decoding io.Reader, since encoding/xml only understands
// UTF-8/UTF-16/US-ASCII on its own. Most FB2 files found in the wild
// declare such legacy Cyrillic encodings.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "fb2: unknown charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Parse reads an FB2 stream and extracts title, authors, genres,
// annotation, language, series, and publication date. Cover
// extraction is a second pass over r2, since the cover's binary id is
// only known after the first pass has read description/title-info.
func Parse(r io.Reader, r2 io.Reader) (*metaparse.BookMeta, error) {
	meta, coverID, err := parseMetadata(r)
	if err != nil {
		return nil, err
	}
	if coverID != "" && r2 != nil {
		data, mimeType := findBinary(r2, coverID)
		meta.CoverData = data
		meta.CoverType = mimeType
	}
	return meta, nil
}

type author struct {
	first, last string
}

func parseMetadata(r io.Reader) (*metaparse.BookMeta, string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	meta := &metaparse.BookMeta{}
	var path []string
	var cur author
	var coverID string
	var annotationLines []string
	var textBuf strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", errors.Wrap(err, "fb2: xml decode")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			path = append(path, name)
			joined := strings.Join(path, "/")
			textBuf.Reset()

			if name == "image" && joined == "description/title-info/coverpage/image" {
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "href") {
						coverID = strings.TrimPrefix(a.Value, "#")
					}
				}
			}
			if name == "author" && joined == "description/title-info/author" {
				cur = author{}
			}

		case xml.CharData:
			textBuf.Write(t)

		case xml.EndElement:
			if len(path) == 0 {
				break
			}
			name := path[len(path)-1]
			joined := strings.Join(path, "/")
			text := strings.TrimSpace(textBuf.String())
			textBuf.Reset()

			switch joined {
			case "description/title-info/book-title":
				meta.Title = text
			case "description/title-info/author/first-name":
				cur.first = text
			case "description/title-info/author/last-name":
				cur.last = text
			case "description/title-info/genre":
				if text != "" {
					meta.Genres = append(meta.Genres, strings.ToLower(text))
				}
			case "description/title-info/lang":
				meta.Lang = text
			case "description/title-info/sequence":
				// handled via attributes below
			case "description/title-info/annotation":
				if text != "" {
					annotationLines = append(annotationLines, text)
				}
			}

			if name == "author" && joined == "description/title-info/author" {
				parts := []string{cur.first, cur.last}
				full := strings.TrimSpace(strings.Join(nonEmpty(parts), " "))
				if full != "" {
					meta.Authors = append(meta.Authors, full)
				}
				cur = author{}
			}

			path = path[:len(path)-1]
		}

		// Sequence and date attributes are only available on the
		// StartElement token, so handle them there too.
		if se, ok := tok.(xml.StartElement); ok {
			joined := strings.Join(path, "/")
			switch joined {
			case "description/title-info/sequence":
				for _, a := range se.Attr {
					switch strings.ToLower(a.Name.Local) {
					case "name":
						meta.SeriesTitle = a.Value
					case "number":
						meta.SeriesIndex = atoiSafe(a.Value)
					}
				}
			case "description/document-info/date":
				for _, a := range se.Attr {
					if strings.EqualFold(a.Name.Local, "value") && a.Value != "" {
						meta.Docdate = a.Value
					}
				}
			}
		}
	}

	meta.Annotation = strings.Join(annotationLines, "\n")
	if meta.Title == "" {
		return meta, coverID, errors.New("fb2: no title found")
	}
	return meta, coverID, nil
}

// findBinary scans the document a second time for a
// description/../binary element whose id attribute matches id,
// decodes its base64 content, and sniffs the MIME type.
func findBinary(r io.Reader, id string) ([]byte, string) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var inTarget bool
	var b64 strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ""
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "binary") {
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "id") && a.Value == id {
						inTarget = true
					}
				}
			}
		case xml.CharData:
			if inTarget {
				b64.Write(t)
			}
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, "binary") && inTarget {
				data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64.String()))
				if err != nil {
					return nil, ""
				}
				mt := mimetype.Detect(data)
				return data, mt.String()
			}
		}
	}
	return nil, ""
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiSafe(s string) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
