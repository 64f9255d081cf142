// Package store is the persistent backing for pytagfs: a "files" table
// (identity -> content + metadata), a "names" table (unique name ->
// identity), a "file_tags" join table, and an "empty_tags" marker set.
// It uses sqlx for query/scan ergonomics and goose for versioned
// migrations, following the pattern in uber-kraken's
// localdb/database.go.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sql driver

	"github.com/david-morris/pytagfs/internal/pkg/model"
	_ "github.com/david-morris/pytagfs/internal/pkg/store/migrations" // registers goose migrations
	"github.com/pressly/goose"
)

// Store owns the sqlite connection. All reads here run outside an
// explicit transaction (sqlite gives read-committed visibility against
// the single writer); all mutations go through a Tx obtained from
// Begin, so a failed sequence of writes never partially lands.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if absent) the sqlite database at path and
// brings its schema up to date.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sqlx.Open("sqlite3", path+sep+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	// sqlite has concurrency issues when more than one connection
	// touches a table concurrently; the engine's RWMutex already
	// serializes our own access, so pin this to a single connection.
	db.SetMaxOpenConns(1)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Tx wraps a single sqlite transaction; every Mutation Planner
// operation runs its writes through exactly one Tx so a failure aborts
// the whole operation and leaves the store untouched.
type Tx struct {
	tx *sqlx.Tx
}

// Begin opens a new transaction.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction. Safe to call after a failed commit;
// sql.ErrTxDone is swallowed.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

type fileRow struct {
	Id        model.FileId `db:"id"`
	Name      string       `db:"name"`
	Content   []byte       `db:"content"`
	Digest    string       `db:"digest"`
	IsSymlink bool         `db:"is_symlink"`
	Mode      uint32       `db:"mode"`
	Uid       uint32       `db:"uid"`
	Gid       uint32       `db:"gid"`
	Atime     int64        `db:"atime"`
	Mtime     int64        `db:"mtime"`
	Ctime     int64        `db:"ctime"`
}

func (r fileRow) toFile(tags []string) model.File {
	return model.File{
		Id:        r.Id,
		Name:      r.Name,
		Tags:      tags,
		Content:   r.Content,
		Digest:    r.Digest,
		IsSymlink: r.IsSymlink,
		Mode:      r.Mode,
		Uid:       r.Uid,
		Gid:       r.Gid,
		Atime:     time.Unix(0, r.Atime),
		Mtime:     time.Unix(0, r.Mtime),
		Ctime:     time.Unix(0, r.Ctime),
	}
}

const fileSelect = `SELECT f.id, n.name, f.content, f.digest, f.is_symlink, f.mode, f.uid, f.gid, f.atime, f.mtime, f.ctime
	FROM files f JOIN names n ON n.file_id = f.id`

func (s *Store) tagsByFile() (map[model.FileId][]string, error) {
	rows, err := s.db.Queryx(`SELECT file_id, tag FROM file_tags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[model.FileId][]string)
	for rows.Next() {
		var fid model.FileId
		var tag string
		if err := rows.Scan(&fid, &tag); err != nil {
			return nil, err
		}
		result[fid] = append(result[fid], tag)
	}
	return result, rows.Err()
}

// AllFiles returns every file known to the store, tags populated. It is
// the read the Tag Index uses to rebuild itself at mount.
func (s *Store) AllFiles() ([]model.File, error) {
	var rows []fileRow
	if err := s.db.Select(&rows, fileSelect); err != nil {
		return nil, err
	}
	tagsByFile, err := s.tagsByFile()
	if err != nil {
		return nil, err
	}
	files := make([]model.File, len(rows))
	for i, r := range rows {
		files[i] = r.toFile(tagsByFile[r.Id])
	}
	return files, nil
}

// AllEmptyTags returns every tag created by mkdir that no file yet
// carries.
func (s *Store) AllEmptyTags() ([]string, error) {
	var tags []string
	err := s.db.Select(&tags, `SELECT tag FROM empty_tags ORDER BY tag`)
	return tags, err
}

// FileByName looks a file up by its unique name. Returns
// model.UnknownFile if absent.
func (s *Store) FileByName(name string) (model.File, error) {
	var row fileRow
	err := s.db.Get(&row, fileSelect+` WHERE n.name = ?`, name)
	if err == sql.ErrNoRows {
		return model.UnknownFile, nil
	}
	if err != nil {
		return model.UnknownFile, err
	}
	var tags []string
	if err := s.db.Select(&tags, `SELECT tag FROM file_tags WHERE file_id = ?`, row.Id); err != nil {
		return model.UnknownFile, err
	}
	return row.toFile(tags), nil
}

// FileByID looks a file up by identity. Returns model.UnknownFile if
// absent.
func (s *Store) FileByID(id model.FileId) (model.File, error) {
	var row fileRow
	err := s.db.Get(&row, fileSelect+` WHERE f.id = ?`, id)
	if err == sql.ErrNoRows {
		return model.UnknownFile, nil
	}
	if err != nil {
		return model.UnknownFile, err
	}
	var tags []string
	if err := s.db.Select(&tags, `SELECT tag FROM file_tags WHERE file_id = ?`, id); err != nil {
		return model.UnknownFile, err
	}
	return row.toFile(tags), nil
}

// CreateFile inserts a new file row, its name and its initial tag set
// inside the transaction, returning the freshly assigned FileId.
func (t *Tx) CreateFile(name string, tags []string, mode, uid, gid uint32, now time.Time, isSymlink bool, content []byte, digest string) (model.FileId, error) {
	res, err := t.tx.Exec(
		`INSERT INTO files (content, digest, is_symlink, mode, uid, gid, atime, mtime, ctime) VALUES (?,?,?,?,?,?,?,?,?)`,
		content, digest, isSymlink, mode, uid, gid, now.UnixNano(), now.UnixNano(), now.UnixNano())
	if err != nil {
		return model.UnknownFileId, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.UnknownFileId, err
	}
	fid := model.FileId(id)
	if _, err := t.tx.Exec(`INSERT INTO names (name, file_id) VALUES (?,?)`, name, fid); err != nil {
		return model.UnknownFileId, err
	}
	for _, tag := range tags {
		if _, err := t.tx.Exec(`INSERT INTO file_tags (file_id, tag) VALUES (?,?)`, fid, tag); err != nil {
			return model.UnknownFileId, err
		}
	}
	return fid, nil
}

// DeleteFile removes a file entirely: its tags, its name, and the file
// row itself.
func (t *Tx) DeleteFile(id model.FileId) error {
	if _, err := t.tx.Exec(`DELETE FROM file_tags WHERE file_id = ?`, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(`DELETE FROM names WHERE file_id = ?`, id); err != nil {
		return err
	}
	_, err := t.tx.Exec(`DELETE FROM files WHERE id = ?`, id)
	return err
}

// RenameFile changes the unique name attached to a file identity.
func (t *Tx) RenameFile(id model.FileId, newName string) error {
	_, err := t.tx.Exec(`UPDATE names SET name = ? WHERE file_id = ?`, newName, id)
	return err
}

// ReplaceTags clears id's current tag set and installs tags in its
// place (the "replace tags" rename case).
func (t *Tx) ReplaceTags(id model.FileId, tags []string) error {
	if _, err := t.tx.Exec(`DELETE FROM file_tags WHERE file_id = ?`, id); err != nil {
		return err
	}
	return t.AddTags(id, tags)
}

// AddTags merges tags into id's existing tag set (the "additive retag"
// case; ReplaceTags also uses it to install the new set).
func (t *Tx) AddTags(id model.FileId, tags []string) error {
	for _, tag := range tags {
		if _, err := t.tx.Exec(`INSERT OR IGNORE INTO file_tags (file_id, tag) VALUES (?,?)`, id, tag); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTag drops a single tag from a file (unlink inside a tag path).
func (t *Tx) RemoveTag(id model.FileId, tag string) error {
	_, err := t.tx.Exec(`DELETE FROM file_tags WHERE file_id = ? AND tag = ?`, id, tag)
	return err
}

// RenameTagEverywhere rewrites every file's tag set (and any empty-tag
// marker), replacing oldTag with newTag, atomically.
func (t *Tx) RenameTagEverywhere(oldTag, newTag string) error {
	if _, err := t.tx.Exec(`UPDATE file_tags SET tag = ? WHERE tag = ?`, newTag, oldTag); err != nil {
		return err
	}
	_, err := t.tx.Exec(`UPDATE empty_tags SET tag = ? WHERE tag = ?`, newTag, oldTag)
	return err
}

// SetContent overwrites a file's bytes/digest and bumps mtime.
func (t *Tx) SetContent(id model.FileId, content []byte, digest string, mtime time.Time) error {
	_, err := t.tx.Exec(`UPDATE files SET content = ?, digest = ?, mtime = ? WHERE id = ?`, content, digest, mtime.UnixNano(), id)
	return err
}

// SetMode updates a file's permission bits.
func (t *Tx) SetMode(id model.FileId, mode uint32, ctime time.Time) error {
	_, err := t.tx.Exec(`UPDATE files SET mode = ?, ctime = ? WHERE id = ?`, mode, ctime.UnixNano(), id)
	return err
}

// SetOwner updates a file's uid/gid.
func (t *Tx) SetOwner(id model.FileId, uid, gid uint32, ctime time.Time) error {
	_, err := t.tx.Exec(`UPDATE files SET uid = ?, gid = ?, ctime = ? WHERE id = ?`, uid, gid, ctime.UnixNano(), id)
	return err
}

// SetTimes updates a file's atime/mtime (utimens).
func (t *Tx) SetTimes(id model.FileId, atime, mtime time.Time) error {
	_, err := t.tx.Exec(`UPDATE files SET atime = ?, mtime = ? WHERE id = ?`, atime.UnixNano(), mtime.UnixNano(), id)
	return err
}

// AddEmptyTag records tag as an empty-tag marker (mkdir at the root
// with no file carrying the tag yet).
func (t *Tx) AddEmptyTag(tag string) error {
	_, err := t.tx.Exec(`INSERT OR IGNORE INTO empty_tags (tag) VALUES (?)`, tag)
	return err
}

// RemoveEmptyTag deletes an empty-tag marker, used both by explicit
// rmdir/deleteme and implicitly once a file acquires the tag.
func (t *Tx) RemoveEmptyTag(tag string) error {
	_, err := t.tx.Exec(`DELETE FROM empty_tags WHERE tag = ?`, tag)
	return err
}
