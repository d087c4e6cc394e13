package covers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
)

// RegisterRoutes mounts the version-agnostic cover/thumb/download
// routes every OPDS entry links to by absolute path (spec.md §4.E
// entry construction, §4.H). Gated behind HTTP Basic Auth whenever the
// catalog itself is, matching pkg/browse.RegisterRoutes.
func RegisterRoutes(e *echo.Echo, svc *Service, authMW *auth.Middleware, cfg config.OPDSConfig) {
	g := e.Group("/opds")
	if cfg.AuthRequired {
		g.Use(authMW.BasicAuth)
	}

	g.GET("/cover/:id/", func(c echo.Context) error {
		id, err := parseBookID(c)
		if err != nil {
			return err
		}
		asset, err := svc.Cover(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return serveAsset(c, asset, false)
	})

	g.GET("/thumb/:id/", func(c echo.Context) error {
		id, err := parseBookID(c)
		if err != nil {
			return err
		}
		asset, err := svc.Thumb(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return serveAsset(c, asset, false)
	})

	g.GET("/download/:id/:zip_flag/", func(c echo.Context) error {
		id, err := parseBookID(c)
		if err != nil {
			return err
		}
		zipFlag := c.Param("zip_flag") == "1"
		asset, err := svc.Download(c.Request().Context(), id, zipFlag)
		if err != nil {
			return err
		}
		return serveAsset(c, asset, true)
	})
}

func parseBookID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.ValidationError("book id must be numeric")
	}
	return id, nil
}

// serveAsset writes asset with the Cache-Control/ETag/Content-Type
// headers spec.md §4.H requires, honoring If-None-Match, and setting
// Content-Disposition for downloads.
func serveAsset(c echo.Context, asset Asset, download bool) error {
	header := c.Response().Header()
	header.Set(echo.HeaderContentType, asset.ContentType)
	header.Set("Cache-Control", "public, max-age=3600")
	header.Set("ETag", asset.ETag)
	if download {
		header.Set("Content-Disposition", `attachment; filename="`+asset.Filename+`"`)
	}

	if match := c.Request().Header.Get("If-None-Match"); match == asset.ETag || match == "*" {
		return c.NoContent(http.StatusNotModified)
	}

	return c.Blob(http.StatusOK, asset.ContentType, asset.Data)
}
