package models

import "github.com/uptrace/bun"

// GenreSection is the legacy top-level grouping ("science fiction",
// "nonfiction", ...) a Genre belongs to. Sections are translated the
// same way as genres, via GenreSectionTranslation.
type GenreSection struct {
	bun.BaseModel `bun:"table:genre_sections,alias:gs"`

	ID   int    `bun:",pk,autoincrement" json:"id"`
	Code string `bun:",unique,notnull" json:"code"`

	Genres []*Genre `bun:"rel:has-many,join:id=section_id" json:"-"`
}

// Genre is identified by its stable Code (the value parsers and INPX
// records emit); SectionID and the legacy labels exist for backward
// compatibility with older clients. Display names live in
// GenreTranslation, keyed by language, with English as the fallback.
type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:g"`

	ID               int           `bun:",pk,autoincrement" json:"id"`
	Code             string        `bun:",unique,notnull" json:"code"`
	SectionID        int           `bun:",notnull" json:"section_id"`
	Section          *GenreSection `bun:"rel:belongs-to,join:section_id=id" json:"-"`
	LegacySection    string        `json:"legacy_section"`
	LegacySubsection string        `json:"legacy_subsection"`

	Books []*Book `bun:"m2m:book_genres,join:Genre=Book" json:"-"`
}

// GenreTranslation is the display name of a Genre in one language.
// English ("en") is the fallback when a client's language is missing.
type GenreTranslation struct {
	bun.BaseModel `bun:"table:genre_translations,alias:gt"`

	GenreID int    `bun:",pk" json:"genre_id"`
	Lang    string `bun:",pk" json:"lang"`
	Name    string `bun:",notnull" json:"name"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"-"`
}

// GenreSectionTranslation is the display name of a GenreSection in one
// language.
type GenreSectionTranslation struct {
	bun.BaseModel `bun:"table:genre_section_translations,alias:gst"`

	SectionID int           `bun:",pk" json:"section_id"`
	Lang      string        `bun:",pk" json:"lang"`
	Name      string        `bun:",notnull" json:"name"`
	Section   *GenreSection `bun:"rel:belongs-to,join:section_id=id" json:"-"`
}
