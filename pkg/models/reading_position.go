package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingPosition is a per-user, per-book reader bookmark. Position is
// an opaque locator string understood only by the in-browser reader
// (out of scope here); Progress is a normalised [0,1] fraction kept so
// the browse surface can show completion without decoding it.
type ReadingPosition struct {
	bun.BaseModel `bun:"table:reading_positions,alias:rp"`

	UserID    int       `bun:",pk" json:"user_id"`
	BookID    int       `bun:",pk" json:"book_id"`
	User      *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Book      *Book     `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	Position  string    `bun:",notnull" json:"position"`
	Progress  float64   `bun:",notnull" json:"progress"`
	UpdatedAt time.Time `bun:",notnull" json:"updated_at"`
}
