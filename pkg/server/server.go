// Package server wires the query-layer services into an Echo instance
// exposing spec.md §4.G-H's OPDS surface, following the teacher's
// New()-builds-an-*http.Server shape (shishobooks-shisho/pkg/server/server.go)
// stripped of its RBAC/multi-resource REST API — ROPDS has one optional
// admin account gating the whole catalog, not per-resource permissions.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	golog "github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/bookshelf"
	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/browse"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/counters"
	"github.com/dshein-alt/ropds-go/pkg/covers"
	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/rendertools"
	"github.com/dshein-alt/ropds-go/pkg/series"
)

// New assembles every query-layer service and the browse/covers
// handlers that front them into a ready-to-serve *http.Server.
func New(cfg *config.Config, db *bun.DB, dialect dbdialect.Dialect, log golog.Logger) (*http.Server, error) {
	e := echo.New()

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	booksSvc := books.NewService(db, dialect)
	catalogsSvc := catalogs.NewService(db)
	authorsSvc := authors.NewService(db, dialect)
	seriesSvc := series.NewService(db, dialect)
	genresSvc := genres.NewService(db, dialect)
	countersSvc := counters.NewService(db, dialect)
	bookshelfSvc := bookshelf.NewService(db, dialect)
	renderSvc := rendertools.NewService(log)

	authSvc := auth.NewService(db, cfg.Server.SessionSecret)
	authMiddleware := auth.NewMiddleware(authSvc)

	browseSvc := browse.NewService(cfg.OPDS, booksSvc, catalogsSvc, authorsSvc, seriesSvc, genresSvc, countersSvc, bookshelfSvc)
	coversSvc := covers.NewService(cfg, booksSvc, renderSvc)

	// browse.RegisterRoutes mounts both the OPDS 1.2 Atom family under
	// /opds and the OPDS 2.0 JSON family under /opds/v2; covers.RegisterRoutes
	// mounts the shared cover/thumb/download routes both families link to.
	browse.RegisterRoutes(e, browseSvc, authMiddleware, cfg.OPDS)
	covers.RegisterRoutes(e, coversSvc, authMiddleware, cfg.OPDS)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
