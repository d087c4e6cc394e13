package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
)

func TestNew_ServesHealthAndChallengesOPDS(t *testing.T) {
	root := t.TempDir()
	cfg := config.NewForTest(root)
	cfg.OPDS.AuthRequired = true

	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	srv, err := New(cfg, db, dialect, logger.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/opds/", nil)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_OpenCatalogWhenAuthNotRequired(t *testing.T) {
	root := t.TempDir()
	cfg := config.NewForTest(root)
	cfg.OPDS.AuthRequired = false
	cfg.OPDS.Title = "Test Library"

	db, dialect, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	srv, err := New(cfg, db, dialect, logger.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/opds/", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
