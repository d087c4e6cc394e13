package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book availability states, per spec.md §3 lifecycle. A scan flips every
// row to Unverified before walking the tree, back to Confirmed as each
// book is re-observed, and deletes whatever is still Unverified (or
// already Deleted) once the walk finishes.
const (
	AvailDeleted    = 0
	AvailUnverified = 1
	AvailConfirmed  = 2
)

// Book is a single indexed e-book, either a plain file, a ZIP entry, or
// an INPX record. Filename/Path/CatType together identify where its
// bytes live; SearchTitle/AuthorKey together drive duplicate detection
// (spec.md §3 invariant 3).
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:",pk,autoincrement" json:"id"`
	CatalogID   int       `bun:",notnull" json:"catalog_id"`
	Catalog     *Catalog  `bun:"rel:belongs-to,join:catalog_id=id" json:"-"`
	Filename    string    `bun:",notnull" json:"filename"`
	Path        string    `bun:",notnull" json:"path"`
	Format      string    `bun:",notnull" json:"format"`
	Title       string    `bun:",notnull" json:"title"`
	SearchTitle string    `bun:",notnull" json:"-"`
	AuthorKey   string    `bun:",notnull" json:"-"`
	Annotation  string    `json:"annotation"`
	Docdate     string    `json:"docdate"`
	Lang        string    `json:"lang"`
	LangCode    int       `bun:",notnull" json:"lang_code"`
	Size        int64     `bun:",nullzero" json:"size"`
	Avail       int       `bun:",notnull" json:"avail"`
	CatType     string    `bun:",notnull" json:"cat_type"`
	Cover       int       `bun:",notnull" json:"cover"`
	CoverType   string    `json:"cover_type"`
	RegDate     time.Time `json:"reg_date"`

	Authors []*Author `bun:"m2m:book_authors,join:Book=Author" json:"authors,omitempty"`
	Genres  []*Genre  `bun:"m2m:book_genres,join:Book=Genre" json:"genres,omitempty"`
	Series  []*Series `bun:"m2m:book_series,join:Book=Series" json:"series,omitempty"`
}

// BookAuthor is the book<->author link table. Book.author_key is
// recomputed from this table's contents any time it changes.
type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID   int     `bun:",pk" json:"book_id"`
	AuthorID int     `bun:",pk" json:"author_id"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id" json:"-"`
}

// BookGenre is the book<->genre link table.
type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres,alias:bg"`

	BookID  int    `bun:",pk" json:"book_id"`
	GenreID int    `bun:",pk" json:"genre_id"`
	Book    *Book  `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"-"`
}
