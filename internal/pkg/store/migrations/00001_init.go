// Package migrations holds the goose-managed schema history for the
// pytagfs store, following the same layout uber-kraken uses under
// localdb/migrations and lib/persistedretry/tagreplication/migrations:
// one file per migration, registered via an init()-time AddMigration
// call so importing the package for its side effect is enough to wire
// it into goose.Up.
package migrations

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(up00001, down00001)
}

// up00001 creates the four logical tables: files (identity -> content
// + metadata), names (unique name -> identity),
// file_tags (the many-to-many file/tag membership the Tag Index is
// derived from) and empty_tags (markers left by mkdir before any file
// carries the tag).
func up00001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE files (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			content   BLOB    NOT NULL DEFAULT (x''),
			digest    TEXT    NOT NULL DEFAULT '',
			is_symlink INTEGER NOT NULL DEFAULT 0,
			mode      INTEGER NOT NULL,
			uid       INTEGER NOT NULL,
			gid       INTEGER NOT NULL,
			atime     INTEGER NOT NULL,
			mtime     INTEGER NOT NULL,
			ctime     INTEGER NOT NULL
		);`,
		`CREATE TABLE names (
			name    TEXT PRIMARY KEY,
			file_id INTEGER NOT NULL UNIQUE REFERENCES files(id)
		);`,
		`CREATE TABLE file_tags (
			file_id INTEGER NOT NULL REFERENCES files(id),
			tag     TEXT    NOT NULL,
			PRIMARY KEY (file_id, tag)
		);`,
		`CREATE INDEX file_tags_tag_idx ON file_tags(tag);`,
		`CREATE TABLE empty_tags (
			tag TEXT PRIMARY KEY
		);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func down00001(tx *sql.Tx) error {
	stmts := []string{
		`DROP TABLE empty_tags;`,
		`DROP TABLE file_tags;`,
		`DROP TABLE names;`,
		`DROP TABLE files;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
