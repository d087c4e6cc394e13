package models

import "github.com/uptrace/bun"

// Series is a book series, unique by SerName. SearchSer is the
// uppercased form used by prefix-group and search queries.
type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID        int    `bun:",pk,autoincrement" json:"id"`
	SerName   string `bun:",unique,notnull" json:"ser_name"`
	SearchSer string `bun:",notnull" json:"-"`
	LangCode  int    `bun:",notnull" json:"lang_code"`

	Books []*Book `bun:"m2m:book_series,join:Series=Book" json:"-"`
}

// BookSeries links a Book to a Series with the book's position in it.
type BookSeries struct {
	bun.BaseModel `bun:"table:book_series,alias:bs"`

	BookID   int     `bun:",pk" json:"book_id"`
	SeriesID int     `bun:",pk" json:"series_id"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	Series   *Series `bun:"rel:belongs-to,join:series_id=id" json:"-"`
	SerNo    int     `bun:",nullzero" json:"ser_no"`
}
