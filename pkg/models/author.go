package models

import "github.com/uptrace/bun"

// Author is stored in its normalised, last-name-first form in both
// FullName and SearchFullName (spec.md §9 "Author normalisation") — the
// original typed-in order is not preserved.
type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID             int    `bun:",pk,autoincrement" json:"id"`
	FullName       string `bun:",unique,notnull" json:"full_name"`
	SearchFullName string `bun:",notnull" json:"-"`
	LangCode       int    `bun:",notnull" json:"lang_code"`

	Books []*Book `bun:"m2m:book_authors,join:Author=Book" json:"-"`
}

// UnknownAuthorName is the synthetic author used when a parser cannot
// find any author at all (spec.md §3 invariant 1).
const UnknownAuthorName = "Unknown"
