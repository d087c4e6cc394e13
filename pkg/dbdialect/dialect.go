// Package dbdialect isolates the handful of places where SQLite,
// PostgreSQL, and MySQL disagree on syntax: ignore-on-conflict
// inserts, upserts, sorted string aggregation (for Book.author_key),
// and case-insensitive ordering. The query layer (pkg/books,
// pkg/authors, ...) calls through a Dialect rather than branching on
// the backend itself.
package dbdialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Kind identifies one of the three supported SQL backends.
type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
)

// Dialect provides the SQL fragments and query-builder hooks that
// differ between backends. All three implementations are stateless.
type Dialect interface {
	Kind() Kind

	// InsertIgnore marks q so a unique-constraint violation is
	// silently ignored rather than returned as an error.
	InsertIgnore(q *bun.InsertQuery) *bun.InsertQuery

	// UpsertOn marks q so that a conflict on conflictCols overwrites
	// updateCols with the values from the attempted insert.
	UpsertOn(q *bun.InsertQuery, conflictCols []string, updateCols []string) *bun.InsertQuery

	// SortedIDJoin returns a SQL expression that aggregates column
	// over the rows matched by the query this expression is embedded
	// in, ordered ascending, joined with no separator — the form used
	// to build Book.author_key from a book's linked author ids.
	SortedIDJoin(column string) string

	// NoCaseCollation returns the COLLATE clause fragment (including
	// the leading space) to append to an ORDER BY/WHERE expression for
	// case-insensitive text comparison, or "" when the dialect needs
	// no explicit collation (e.g. Postgres prefers ILIKE / lower()).
	NoCaseCollation() string
}

// Detect parses a URL of the form "sqlite:///path/to.db",
// "postgres://...", or "mysql://..." into the matching Kind and the
// driver-specific DSN the matching sql driver expects.
func Detect(url string) (Kind, string, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return KindSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return KindPostgres, url, nil
	case strings.HasPrefix(url, "mysql://"):
		return KindMySQL, strings.TrimPrefix(url, "mysql://"), nil
	default:
		return "", "", errors.Errorf("unrecognized database url scheme: %q", url)
	}
}

// New returns the Dialect implementation for kind.
func New(kind Kind) (Dialect, error) {
	switch kind {
	case KindSQLite:
		return sqliteDialect{}, nil
	case KindPostgres:
		return postgresDialect{}, nil
	case KindMySQL:
		return mysqlDialect{}, nil
	default:
		return nil, errors.Errorf("unsupported dialect kind: %q", kind)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Kind() Kind { return KindSQLite }

func (sqliteDialect) InsertIgnore(q *bun.InsertQuery) *bun.InsertQuery {
	return q.On("CONFLICT DO NOTHING")
}

func (sqliteDialect) UpsertOn(q *bun.InsertQuery, conflictCols, updateCols []string) *bun.InsertQuery {
	return applyExcludedUpsert(q, conflictCols, updateCols)
}

func (sqliteDialect) SortedIDJoin(column string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s, '')", column)
}

func (sqliteDialect) NoCaseCollation() string { return " COLLATE NOCASE" }

type postgresDialect struct{}

func (postgresDialect) Kind() Kind { return KindPostgres }

func (postgresDialect) InsertIgnore(q *bun.InsertQuery) *bun.InsertQuery {
	return q.On("CONFLICT DO NOTHING")
}

func (postgresDialect) UpsertOn(q *bun.InsertQuery, conflictCols, updateCols []string) *bun.InsertQuery {
	return applyExcludedUpsert(q, conflictCols, updateCols)
}

func (postgresDialect) SortedIDJoin(column string) string {
	return fmt.Sprintf("string_agg(%s::text, '' ORDER BY %s)", column, column)
}

func (postgresDialect) NoCaseCollation() string { return "" }

type mysqlDialect struct{}

func (mysqlDialect) Kind() Kind { return KindMySQL }

func (mysqlDialect) InsertIgnore(q *bun.InsertQuery) *bun.InsertQuery {
	return q.Ignore()
}

func (mysqlDialect) UpsertOn(q *bun.InsertQuery, _ []string, updateCols []string) *bun.InsertQuery {
	sets := make([]string, len(updateCols))
	for i, col := range updateCols {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return q.On("DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
}

func (mysqlDialect) SortedIDJoin(column string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s ORDER BY %s SEPARATOR '')", column, column)
}

func (mysqlDialect) NoCaseCollation() string { return " COLLATE utf8mb4_general_ci" }

// applyExcludedUpsert builds the SQLite/Postgres
// "ON CONFLICT(...) DO UPDATE SET x = excluded.x" clause shared by
// both dialects.
func applyExcludedUpsert(q *bun.InsertQuery, conflictCols, updateCols []string) *bun.InsertQuery {
	sets := make([]string, len(updateCols))
	for i, col := range updateCols {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	clause := fmt.Sprintf("CONFLICT(%s) DO UPDATE SET %s", strings.Join(conflictCols, ", "), strings.Join(sets, ", "))
	return q.On(clause)
}

// ctxDialectKey carries the active Dialect through a request-scoped
// context so query-layer helpers don't need it threaded as a
// parameter everywhere.
type ctxDialectKey struct{}

func WithContext(ctx context.Context, d Dialect) context.Context {
	return context.WithValue(ctx, ctxDialectKey{}, d)
}

func FromContext(ctx context.Context) (Dialect, bool) {
	d, ok := ctx.Value(ctxDialectKey{}).(Dialect)
	return d, ok
}
