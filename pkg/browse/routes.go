package browse

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
	v1 "github.com/dshein-alt/ropds-go/pkg/opds/v1"
	v2 "github.com/dshein-alt/ropds-go/pkg/opds/v2"
)

// renderFunc writes a rendered Feed to the response in either Atom or
// OPDS 2.0 JSON form.
type renderFunc func(c echo.Context, f *feed.Feed) error

func renderAtom(c echo.Context, f *feed.Feed) error {
	c.Response().Header().Set(echo.HeaderContentType, v1.ContentType(f))
	c.Response().WriteHeader(http.StatusOK)
	return v1.Render(c.Response(), f)
}

func renderJSON(c echo.Context, f *feed.Feed) error {
	out, err := v2.Marshal(f)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, v2.ContentType, out)
}

// RegisterRoutes mounts both OPDS families: 1.2 Atom under /opds and
// 2.0 JSON under /opds/v2, each behind HTTP Basic Auth when
// cfg.AuthRequired (spec.md §4.G). /bookshelf/ always requires
// authentication regardless of that setting.
func RegisterRoutes(e *echo.Echo, svc *Service, authMW *auth.Middleware, cfg config.OPDSConfig) {
	v1Group := e.Group("/opds")
	if cfg.AuthRequired {
		v1Group.Use(authMW.BasicAuth)
	}
	registerFamily(v1Group, svc, authMW, cfg, "/opds", renderAtom)

	v2Group := e.Group("/opds/v2")
	if cfg.AuthRequired {
		v2Group.Use(authMW.BasicAuth)
	}
	registerFamily(v2Group, svc, authMW, cfg, "/opds/v2", renderJSON)
}

func registerFamily(g *echo.Group, svc *Service, authMW *auth.Middleware, cfg config.OPDSConfig, navBase string, render renderFunc) {
	g.GET("/", func(c echo.Context) error {
		f, err := svc.Root(c.Request().Context(), navBase)
		if err != nil {
			return err
		}
		return render(c, f)
	})

	g.GET("/catalogs/", func(c echo.Context) error {
		f, err := svc.Catalogs(c.Request().Context(), navBase)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/catalogs/:id/", func(c echo.Context) error {
		id, err := parseIntParam(c, "id")
		if err != nil {
			return err
		}
		f, err := svc.Catalog(c.Request().Context(), navBase, id, 1)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/catalogs/:id/:page/", func(c echo.Context) error {
		id, err := parseIntParam(c, "id")
		if err != nil {
			return err
		}
		page := parsePage(c)
		f, err := svc.Catalog(c.Request().Context(), navBase, id, page)
		if err != nil {
			return err
		}
		return render(c, f)
	})

	registerAlphabet(g, navBase, "authors", svc.AuthorsRoot, svc.AuthorsPrefix, render)
	registerAlphabet(g, navBase, "series", svc.SeriesRoot, svc.SeriesPrefix, render)
	registerAlphabet(g, navBase, "books", svc.BooksRoot, svc.BooksPrefix, render)

	g.GET("/genres/", func(c echo.Context) error {
		f, err := svc.Genres(c.Request().Context(), navBase, webLang(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/genres/:section/", func(c echo.Context) error {
		f, err := svc.GenreSection(c.Request().Context(), navBase, webLang(c), c.Param("section"))
		if err != nil {
			return err
		}
		return render(c, f)
	})

	g.GET("/recent/", func(c echo.Context) error {
		f, err := svc.Recent(c.Request().Context(), navBase, 1)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/recent/:page/", func(c echo.Context) error {
		f, err := svc.Recent(c.Request().Context(), navBase, parsePage(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})

	bookshelf := func(c echo.Context) error {
		user := auth.UserFromContext(c)
		if user == nil {
			return errcodes.Unauthorized("bookshelf requires authentication")
		}
		f, err := svc.Bookshelf(c.Request().Context(), navBase, user.ID, parsePage(c))
		if err != nil {
			return err
		}
		return render(c, f)
	}
	if cfg.AuthRequired {
		g.GET("/bookshelf/", bookshelf)
		g.GET("/bookshelf/:page/", bookshelf)
	} else {
		g.GET("/bookshelf/", authMW.BasicAuth(bookshelf))
		g.GET("/bookshelf/:page/", authMW.BasicAuth(bookshelf))
	}

	g.GET("/search/:terms/", func(c echo.Context) error {
		return render(c, svc.SearchChoices(navBase, c.Param("terms")))
	})
	g.GET("/search/books/:type/:terms/", func(c echo.Context) error {
		f, err := svc.SearchBooks(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), 1)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/search/books/:type/:terms/:page/", func(c echo.Context) error {
		f, err := svc.SearchBooks(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), parsePage(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/search/authors/:type/:terms/", func(c echo.Context) error {
		f, err := svc.SearchAuthors(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), 1)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/search/authors/:type/:terms/:page/", func(c echo.Context) error {
		f, err := svc.SearchAuthors(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), parsePage(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/search/series/:type/:terms/", func(c echo.Context) error {
		f, err := svc.SearchSeries(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), 1)
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/search/series/:type/:terms/:page/", func(c echo.Context) error {
		f, err := svc.SearchSeries(c.Request().Context(), navBase, c.Param("type"), c.Param("terms"), parsePage(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})

	g.GET("/search/opensearch.xml", func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, feed.MimeTypeOpenSearch)
		c.Response().WriteHeader(http.StatusOK)
		return v1.RenderOpenSearch(c.Response(), feed.OpenSearchDescription{
			ShortName:   "ROPDS",
			Description: "Search " + "ROPDS",
			URLTemplate: navBase + "/search/books/b/{searchTerms}/",
		})
	})

	g.GET("/facets/languages/", func(c echo.Context) error {
		f, err := svc.Facets(c.Request().Context(), navBase, c.QueryParam("lang"))
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/lang/:locale/", func(c echo.Context) error {
		f, err := svc.Root(c.Request().Context(), navBase)
		if err != nil {
			return err
		}
		return render(c, f)
	})
}

// alphabetPrefixFunc is the shape shared by Service.AuthorsPrefix,
// SeriesPrefix, and BooksPrefix.
type alphabetPrefixFunc func(ctx context.Context, navBase string, lang int, prefix string, page int) (*feed.Feed, error)

func registerAlphabet(
	g *echo.Group,
	navBase, section string,
	root func(navBase string) *feed.Feed,
	prefixFn alphabetPrefixFunc,
	render renderFunc,
) {
	g.GET("/"+section+"/", func(c echo.Context) error {
		return render(c, root(navBase))
	})
	g.GET("/"+section+"/:lang/", func(c echo.Context) error {
		lang, err := parseIntParam(c, "lang")
		if err != nil {
			return err
		}
		f, err := prefixFn(c.Request().Context(), navBase, lang, "", parsePageQuery(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})
	g.GET("/"+section+"/:lang/:prefix/", func(c echo.Context) error {
		lang, err := parseIntParam(c, "lang")
		if err != nil {
			return err
		}
		f, err := prefixFn(c.Request().Context(), navBase, lang, c.Param("prefix"), parsePageQuery(c))
		if err != nil {
			return err
		}
		return render(c, f)
	})
}

func parseIntParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, errcodes.ValidationError(name + " must be numeric")
	}
	return v, nil
}

func parsePage(c echo.Context) int {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parsePageQuery(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// webLang resolves the display language for genre translations from
// the "lang" query parameter, defaulting to English.
func webLang(c echo.Context) string {
	if l := c.QueryParam("lang"); l != "" {
		return l
	}
	return "en"
}
