// Package inpx parses INPX library index archives: a ZIP of one or
// more .inp files, each a plain-text table with fields separated by
// byte 0x04 — one record per book, no per-book file access needed.
package inpx

import (
	"archive/zip"
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dshein-alt/ropds-go/pkg/metaparse"
)

const fieldSep = '\x04'

// Record is one parsed .inp line, with Folder defaulted to
// "{inp_stem}.zip" the way ROPDS locates the archive holding the
// book's actual bytes.
type Record struct {
	Meta   metaparse.BookMeta
	Stem   string
	Size   int64
	Ext    string
	Folder string
}

// Parse parses every *.inp entry of the INPX archive r.
// Records with fewer than 12 fields, or with a non-empty, non-"0"
// deletion flag, are dropped.
func Parse(r *zip.Reader) ([]Record, error) {
	var out []Record
	for _, f := range r.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".inp") {
			continue
		}
		stem := strings.TrimSuffix(f.Name, filenameExt(f.Name))

		rc, err := f.Open()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		recs, err := parseInp(rc, stem)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func filenameExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx:]
}

func parseInp(r io.Reader, stem string) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Record
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, string(fieldSep))
		if len(fields) < 12 {
			continue
		}
		if del := fields[8]; del != "" && del != "0" {
			continue
		}

		rec := Record{Stem: stem, Folder: stem + ".zip"}
		rec.Meta.Authors = splitColon(fields[0], normalizeAuthorField)
		rec.Meta.Genres = splitColon(fields[1], strings.ToLower)
		rec.Meta.Title = fields[2]

		if series := splitColon(fields[3], nil); len(series) > 0 {
			rec.Meta.SeriesTitle = series[0]
		}
		if fields[4] != "" {
			if n, err := strconv.Atoi(fields[4]); err == nil {
				rec.Meta.SeriesIndex = n
			}
		}
		if fields[6] != "" {
			if n, err := strconv.ParseInt(fields[6], 10, 64); err == nil {
				rec.Size = n
			}
		}
		rec.Ext = fields[9]
		rec.Meta.Docdate = fields[10]
		rec.Meta.Lang = fields[11]

		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// splitColon splits a colon-separated field into its parts, applying
// xform (if non-nil) to each, and drops empty parts.
func splitColon(s string, xform func(string) string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if xform != nil {
			p = xform(p)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeAuthorField converts commas within one author entry to
// spaces and collapses whitespace, matching the INPX author encoding.
func normalizeAuthorField(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}
