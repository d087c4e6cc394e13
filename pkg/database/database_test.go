package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/config"
)

func TestNew_SQLiteMemory(t *testing.T) {
	cfg := config.NewForTest(t.TempDir())
	db, dialect, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite", string(dialect.Kind()))

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestNew_UnrecognizedScheme(t *testing.T) {
	cfg := config.NewForTest(t.TempDir())
	cfg.Database.URL = "oracle://nope"
	_, _, err := New(cfg)
	require.Error(t, err)
}

func TestCheckFTS5Support(t *testing.T) {
	cfg := config.NewForTest(t.TempDir())
	db, _, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	// modernc.org/sqlite is built with FTS5 enabled.
	assert.NoError(t, CheckFTS5Support(db))
}
