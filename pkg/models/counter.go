package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Well-known Counter names, recomputed from the authoritative tables
// at the end of every scan.
const (
	CounterAllBooks    = "allbooks"
	CounterAllCatalogs = "allcatalogs"
	CounterAllAuthors  = "allauthors"
	CounterAllGenres   = "allgenres"
	CounterAllSeries   = "allseries"
)

// Counter caches an aggregate count so feed handlers don't need a
// COUNT(*) scan on every request.
type Counter struct {
	bun.BaseModel `bun:"table:counters,alias:c"`

	Name      string    `bun:",pk" json:"name"`
	Value     int64     `bun:",notnull" json:"value"`
	UpdatedAt time.Time `bun:",notnull" json:"updated_at"`
}
