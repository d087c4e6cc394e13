package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Bookshelf is a user's personal "read" marker on a book.
type Bookshelf struct {
	bun.BaseModel `bun:"table:bookshelf,alias:bs"`

	UserID   int       `bun:",pk" json:"user_id"`
	BookID   int       `bun:",pk" json:"book_id"`
	User     *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Book     *Book     `bun:"rel:belongs-to,join:book_id=id" json:"-"`
	ReadTime time.Time `bun:",notnull" json:"read_time"`
}
