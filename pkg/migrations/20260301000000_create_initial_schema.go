package migrations

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// pkAutoincrement returns the dialect-specific "serial primary key"
// column definition, since SQLite/Postgres/MySQL spell it three
// different ways.
func pkAutoincrement(db *bun.DB) string {
	switch db.Dialect().Name().String() {
	case "pg":
		return "BIGSERIAL PRIMARY KEY"
	case "mysql":
		return "BIGINT PRIMARY KEY AUTO_INCREMENT"
	default: // sqlite
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func timestampType(db *bun.DB) string {
	if db.Dialect().Name().String() == "mysql" {
		return "DATETIME"
	}
	return "TIMESTAMPTZ"
}

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		pk := pkAutoincrement(db)
		ts := timestampType(db)

		stmts := []string{
			fmt.Sprintf(`CREATE TABLE catalogs (
				id %s,
				parent_id INTEGER REFERENCES catalogs (id),
				path TEXT NOT NULL,
				cat_name TEXT NOT NULL,
				cat_type TEXT NOT NULL,
				cat_size BIGINT NOT NULL DEFAULT 0,
				cat_mtime %s
			)`, pk, ts),
			`CREATE UNIQUE INDEX ux_catalogs_path ON catalogs (path)`,
			`CREATE INDEX ix_catalogs_parent_id ON catalogs (parent_id)`,

			fmt.Sprintf(`CREATE TABLE authors (
				id %s,
				full_name TEXT NOT NULL,
				search_full_name TEXT NOT NULL,
				lang_code INTEGER NOT NULL
			)`, pk),
			`CREATE UNIQUE INDEX ux_authors_full_name ON authors (full_name)`,
			`CREATE INDEX ix_authors_search_full_name ON authors (search_full_name)`,

			fmt.Sprintf(`CREATE TABLE series (
				id %s,
				ser_name TEXT NOT NULL,
				search_ser TEXT NOT NULL,
				lang_code INTEGER NOT NULL
			)`, pk),
			`CREATE UNIQUE INDEX ux_series_ser_name ON series (ser_name)`,
			`CREATE INDEX ix_series_search_ser ON series (search_ser)`,

			fmt.Sprintf(`CREATE TABLE genre_sections (
				id %s,
				code TEXT NOT NULL
			)`, pk),
			`CREATE UNIQUE INDEX ux_genre_sections_code ON genre_sections (code)`,

			fmt.Sprintf(`CREATE TABLE genres (
				id %s,
				code TEXT NOT NULL,
				section_id INTEGER NOT NULL REFERENCES genre_sections (id),
				legacy_section TEXT NOT NULL DEFAULT '',
				legacy_subsection TEXT NOT NULL DEFAULT ''
			)`, pk),
			`CREATE UNIQUE INDEX ux_genres_code ON genres (code)`,

			`CREATE TABLE genre_section_translations (
				section_id INTEGER NOT NULL REFERENCES genre_sections (id),
				lang TEXT NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (section_id, lang)
			)`,

			`CREATE TABLE genre_translations (
				genre_id INTEGER NOT NULL REFERENCES genres (id),
				lang TEXT NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (genre_id, lang)
			)`,

			fmt.Sprintf(`CREATE TABLE books (
				id %s,
				catalog_id INTEGER NOT NULL REFERENCES catalogs (id),
				filename TEXT NOT NULL,
				path TEXT NOT NULL,
				format TEXT NOT NULL,
				title TEXT NOT NULL,
				search_title TEXT NOT NULL,
				author_key TEXT NOT NULL DEFAULT '',
				annotation TEXT NOT NULL DEFAULT '',
				docdate TEXT NOT NULL DEFAULT '',
				lang TEXT NOT NULL DEFAULT '',
				lang_code INTEGER NOT NULL,
				size BIGINT NOT NULL DEFAULT 0,
				avail INTEGER NOT NULL,
				cat_type TEXT NOT NULL,
				cover INTEGER NOT NULL DEFAULT 0,
				cover_type TEXT NOT NULL DEFAULT '',
				reg_date %s
			)`, pk, ts),
			`CREATE INDEX ix_books_catalog_id ON books (catalog_id)`,
			`CREATE INDEX ix_books_search_title ON books (search_title)`,
			`CREATE INDEX ix_books_author_key ON books (author_key)`,
			`CREATE INDEX ix_books_avail ON books (avail)`,

			`CREATE TABLE book_authors (
				book_id INTEGER NOT NULL REFERENCES books (id),
				author_id INTEGER NOT NULL REFERENCES authors (id),
				PRIMARY KEY (book_id, author_id)
			)`,
			`CREATE INDEX ix_book_authors_author_id ON book_authors (author_id)`,

			`CREATE TABLE book_genres (
				book_id INTEGER NOT NULL REFERENCES books (id),
				genre_id INTEGER NOT NULL REFERENCES genres (id),
				PRIMARY KEY (book_id, genre_id)
			)`,
			`CREATE INDEX ix_book_genres_genre_id ON book_genres (genre_id)`,

			`CREATE TABLE book_series (
				book_id INTEGER NOT NULL REFERENCES books (id),
				series_id INTEGER NOT NULL REFERENCES series (id),
				ser_no INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (book_id, series_id)
			)`,
			`CREATE INDEX ix_book_series_series_id ON book_series (series_id)`,

			fmt.Sprintf(`CREATE TABLE users (
				id %s,
				username TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
				created_at %s NOT NULL,
				last_login %s,
				password_change_required BOOLEAN NOT NULL DEFAULT FALSE,
				display_name TEXT NOT NULL DEFAULT '',
				allow_upload BOOLEAN NOT NULL DEFAULT FALSE
			)`, pk, ts, ts),
			`CREATE UNIQUE INDEX ux_users_username ON users (username)`,

			`CREATE TABLE bookshelf (
				user_id INTEGER NOT NULL REFERENCES users (id),
				book_id INTEGER NOT NULL REFERENCES books (id),
				read_time ` + ts + ` NOT NULL,
				PRIMARY KEY (user_id, book_id)
			)`,

			`CREATE TABLE reading_positions (
				user_id INTEGER NOT NULL REFERENCES users (id),
				book_id INTEGER NOT NULL REFERENCES books (id),
				position TEXT NOT NULL DEFAULT '',
				progress DOUBLE PRECISION NOT NULL DEFAULT 0,
				updated_at ` + ts + ` NOT NULL,
				PRIMARY KEY (user_id, book_id)
			)`,

			`CREATE TABLE counters (
				name TEXT PRIMARY KEY,
				value BIGINT NOT NULL DEFAULT 0,
				updated_at ` + ts + ` NOT NULL
			)`,
		}

		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "executing: %s", stmt)
			}
		}
		return nil
	}

	down := func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"counters", "reading_positions", "bookshelf", "users",
			"book_series", "book_genres", "book_authors", "books",
			"genre_translations", "genre_section_translations", "genres",
			"genre_sections", "series", "authors", "catalogs",
		}
		for _, t := range tables {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
