// Package browse builds the neutral feed.Feed documents behind every
// route in spec.md §4.G's table: the root menu, the catalogs tree, the
// authors/series/books alphabet drill-down, genre sections, the recent
// and bookshelf lists, and the full search family. pkg/opds/v1 and
// pkg/opds/v2 serialize whatever Feed these methods return; this
// package never imports either serializer, keeping the
// one-model/two-renderers split spec.md §9 calls for. Grounded on the
// teacher's handler-per-route Echo wiring
// (shishobooks-shisho/pkg/opds/handlers.go and routes.go), generalized
// from that package's audiobook catalog tree to spec.md §4.G's
// alphabet/genre/search navigation.
package browse

import (
	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/bookshelf"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/counters"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/series"
)

// Service builds feed.Feed documents by composing the query-layer
// services. It holds no HTTP state; pkg/server wires it into routes.
type Service struct {
	cfg config.OPDSConfig

	books     *books.Service
	catalogs  *catalogs.Service
	authors   *authors.Service
	series    *series.Service
	genres    *genres.Service
	counters  *counters.Service
	bookshelf *bookshelf.Service
}

// NewService builds a browse Service.
func NewService(
	cfg config.OPDSConfig,
	booksSvc *books.Service,
	catalogsSvc *catalogs.Service,
	authorsSvc *authors.Service,
	seriesSvc *series.Service,
	genresSvc *genres.Service,
	countersSvc *counters.Service,
	bookshelfSvc *bookshelf.Service,
) *Service {
	return &Service{
		cfg:       cfg,
		books:     booksSvc,
		catalogs:  catalogsSvc,
		authors:   authorsSvc,
		series:    seriesSvc,
		genres:    genresSvc,
		counters:  countersSvc,
		bookshelf: bookshelfSvc,
	}
}

// langBucketName maps spec.md §3's coarse language-code buckets to the
// labels the authors/series/books alphabet menu shows before any
// prefix has been typed. 0 means "all languages", the filter-disabled
// bucket.
var langBucketName = map[int]string{
	0: "All",
	1: "Cyrillic",
	2: "Latin",
	3: "Digits",
	9: "Other",
}

// pageWindow turns a 1-based page number and the configured page size
// into (limit, offset), clamping page below 1 up to 1.
func (svc *Service) pageWindow(page int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	limit = svc.cfg.MaxItems
	if limit <= 0 {
		limit = 30
	}
	offset = (page - 1) * limit
	return limit, offset
}

// totalPages returns the number of pages of size limit needed to cover
// total items.
func totalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return pages
}
