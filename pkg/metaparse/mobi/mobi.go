// Package mobi reads the PDB/MOBI header and EXTH metadata records of
// a .mobi file, the reader-side counterpart to htol-fb2c's mobi
// package (which only writes MOBI containers).
package mobi

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/dshein-alt/ropds-go/pkg/metaparse"
)

const (
	palmDBHeaderSize  = 78
	recordInfoEntrySz = 8

	exthAuthor        = 100
	exthPublisher     = 101
	exthDescription   = 103
	exthSubject       = 105
	exthPublishedDate = 106
	exthLanguage      = 524
	exthCoverOffset   = 201
)

// mobiLangCode maps the handful of MOBI language enum values ROPDS
// cares about to ISO 639-1 codes; anything else passes through as-is.
var mobiLangCode = map[uint32]string{
	9:  "en",
	25: "ru",
	15: "it",
	6:  "de",
	1:  "fr",
	14: "es",
}

type recordInfo struct {
	offset uint32
}

// Parse reads the whole MOBI file into memory (they are typically
// small) and extracts BookMeta.
func Parse(r io.Reader) (*metaparse.BookMeta, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(data) < palmDBHeaderSize+2 {
		return nil, errors.New("mobi: file too small")
	}

	numRecords := binary.BigEndian.Uint16(data[76:78])
	records := make([]recordInfo, numRecords)
	for i := 0; i < int(numRecords); i++ {
		off := palmDBHeaderSize + i*recordInfoEntrySz
		if off+4 > len(data) {
			return nil, errors.New("mobi: truncated record index")
		}
		records[i] = recordInfo{offset: binary.BigEndian.Uint32(data[off : off+4])}
	}
	if len(records) == 0 {
		return nil, errors.New("mobi: no records")
	}

	rec0End := len(data)
	if len(records) > 1 {
		rec0End = int(records[1].offset)
	}
	rec0 := data[records[0].offset:rec0End]

	hdr := parseMobiHeader(rec0)
	exthRecords, firstImageIndex := hdr.strs, hdr.firstImageIndex

	meta := &metaparse.BookMeta{}
	if title := exthRecords[503]; title != "" {
		meta.Title = title
	}
	if authorStr := exthRecords[exthAuthor]; authorStr != "" {
		for _, a := range strings.FieldsFunc(authorStr, func(r rune) bool { return r == '&' || r == ';' }) {
			a = strings.TrimSpace(a)
			if a != "" {
				meta.Authors = append(meta.Authors, a)
			}
		}
	}
	if desc := exthRecords[exthDescription]; desc != "" {
		meta.Annotation = stripHTML(desc)
	}
	if sub := exthRecords[exthSubject]; sub != "" {
		meta.Genres = append(meta.Genres, strings.ToLower(sub))
	}
	meta.Docdate = exthRecords[exthPublishedDate]
	if lang, ok := mobiLangCode[langCodeFromHeader(rec0)]; ok {
		meta.Lang = lang
	}

	coverIdx := -1
	if n, ok := hdr.ints[exthCoverOffset]; ok {
		coverIdx = firstImageIndex + n
	}
	if coverIdx < 0 {
		coverIdx = firstImageIndex
	}
	if coverIdx >= 0 && coverIdx < len(records) {
		end := len(data)
		if coverIdx+1 < len(records) {
			end = int(records[coverIdx+1].offset)
		}
		imgData := data[records[coverIdx].offset:end]
		if len(imgData) > 0 {
			meta.CoverData = imgData
			meta.CoverType = mimetype.Detect(imgData).String()
		}
	}

	if meta.Title == "" {
		return meta, errors.New("mobi: no title in EXTH header")
	}
	return meta, nil
}

// mobiHeader holds the parsed EXTH string/int records plus the
// first-image-index field used to locate the fallback cover record.
type mobiHeader struct {
	strs            map[uint32]string
	ints            map[uint32]int
	firstImageIndex int
}

func langCodeFromHeader(rec0 []byte) uint32 {
	// MOBI header language is a 32-bit field at a fixed offset within
	// the MOBI header (offset 16 within the MOBI sub-header, which
	// itself starts right after the 16-byte PalmDOC header).
	const mobiHeaderStart = 16
	const langOffset = mobiHeaderStart + 28
	if len(rec0) < langOffset+4 {
		return 0
	}
	return binary.BigEndian.Uint32(rec0[langOffset : langOffset+4])
}

// stripHTML reduces an HTML description to its plain text.
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

// parseMobiHeader walks the EXTH header (if present) and returns its
// string/int records plus the first-image-index field used to locate
// the fallback cover record.
func parseMobiHeader(rec0 []byte) mobiHeader {
	hdr := mobiHeader{strs: map[uint32]string{}, ints: map[uint32]int{}, firstImageIndex: -1}

	const mobiHeaderStart = 16
	if len(rec0) < mobiHeaderStart+8 {
		return hdr
	}

	headerLen := int(binary.BigEndian.Uint32(rec0[mobiHeaderStart+4 : mobiHeaderStart+8]))
	exthFlagsOff := mobiHeaderStart + 128
	firstImageOff := mobiHeaderStart + 108

	if len(rec0) >= firstImageOff+4 {
		hdr.firstImageIndex = int(binary.BigEndian.Uint32(rec0[firstImageOff : firstImageOff+4]))
	}

	if len(rec0) < exthFlagsOff+4 {
		return hdr
	}
	flags := binary.BigEndian.Uint32(rec0[exthFlagsOff : exthFlagsOff+4])
	if flags&0x40 == 0 {
		return hdr
	}

	exthStart := mobiHeaderStart + headerLen
	if exthStart+12 > len(rec0) || !bytes.Equal(rec0[exthStart:exthStart+4], []byte("EXTH")) {
		return hdr
	}
	count := int(binary.BigEndian.Uint32(rec0[exthStart+8 : exthStart+12]))

	pos := exthStart + 12
	for i := 0; i < count && pos+8 <= len(rec0); i++ {
		recType := binary.BigEndian.Uint32(rec0[pos : pos+4])
		recLen := int(binary.BigEndian.Uint32(rec0[pos+4 : pos+8]))
		if recLen < 8 || pos+recLen > len(rec0) {
			break
		}
		payload := rec0[pos+8 : pos+recLen]
		if recLen-8 == 4 {
			hdr.ints[recType] = int(binary.BigEndian.Uint32(payload))
		}
		hdr.strs[recType] = string(payload)
		pos += recLen
	}
	return hdr
}
