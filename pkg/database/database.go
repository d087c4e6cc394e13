// Package database constructs a *bun.DB for whichever backend
// config.DatabaseConfig.URL selects, following the shishobooks
// connect-retry/WAL/busy-timeout pattern for SQLite and handing off to
// database/sql's native pooling for PostgreSQL and MySQL.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/dbdialect"
)

type key int

const ctxKey key = 0

// WithLogging marks ctx so queries run through it are logged at debug
// level via logQueryHook.
func WithLogging(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey, true)
}

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	enabled, ok := ctx.Value(ctxKey).(bool)
	if !ok || !enabled {
		return
	}

	qh.log.Debug(event.Query)
}

const (
	defaultConnectRetryCount = 5
	defaultConnectRetryDelay = 200 * time.Millisecond
	defaultBusyTimeout       = 5 * time.Second
	defaultMaxRetries        = 5
)

// New opens the database configured by cfg.Database.URL and returns
// both the ready-to-use *bun.DB and the dbdialect.Dialect the query
// layer uses to paper over the three backends' SQL differences.
func New(cfg *config.Config) (*bun.DB, dbdialect.Dialect, error) {
	kind, dsn, err := dbdialect.Detect(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	var db *bun.DB
	switch kind {
	case dbdialect.KindSQLite:
		db, err = newSQLite(dsn)
	case dbdialect.KindPostgres:
		db, err = newPostgres(dsn)
	case dbdialect.KindMySQL:
		db, err = newMySQL(dsn)
	default:
		err = errors.Errorf("unsupported database kind: %s", kind)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.Server.LogLevel == "debug" {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	for i := 0; i < defaultConnectRetryCount; i++ {
		_, err = db.Exec("SELECT 1")
		if err == nil {
			break
		}
		time.Sleep(defaultConnectRetryDelay)
	}
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	dialect, err := dbdialect.New(kind)
	if err != nil {
		return nil, nil, err
	}
	return db, dialect, nil
}

// newSQLite opens dsn (a filesystem path or ":memory:") through
// sqliteshim, wrapping the connector with retry logic for
// SQLITE_BUSY and enabling WAL mode + busy_timeout for concurrent
// access from the scanner and request handlers at once.
func newSQLite(dsn string) (*bun.DB, error) {
	drv := sqliteshim.Driver()
	drvCtx, ok := drv.(interface {
		OpenConnector(name string) (driver.Connector, error)
	})
	if !ok {
		return nil, errors.New("sqlite driver does not support OpenConnector")
	}
	connector, err := drvCtx.OpenConnector(dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	retryConnector := newRetryConnector(connector, defaultMaxRetries)
	sqldb := sql.OpenDB(retryConnector)
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=?", defaultBusyTimeout.Milliseconds()); err != nil {
		return nil, errors.Wrap(err, "failed to set busy_timeout")
	}
	return db, nil
}

func newPostgres(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func newMySQL(dsn string) (*bun.DB, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mysql dsn")
	}
	cfg.ParseTime = true
	sqldb, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return bun.NewDB(sqldb, mysqldialect.New()), nil
}

// CheckFTS5Support verifies FTS5 is available in the SQLite build in
// use; search endpoints degrade to a plain LIKE query when it is not.
func CheckFTS5Support(db *bun.DB) error {
	_, err := db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_check USING fts5(test)")
	if err != nil {
		return errors.New("FTS5 is not enabled on this SQLite build; search will fall back to LIKE queries")
	}
	_, _ = db.Exec("DROP TABLE IF EXISTS _fts5_check")
	return nil
}
