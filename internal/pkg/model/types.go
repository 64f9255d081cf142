// Package model holds the data-model types shared across the store,
// query engine, projector and planner: a File, its tag set, and the
// sentinel values used when a lookup finds nothing.
package model

import "time"

// FileId is the stable, monotonic identity of a File. It never changes
// across renames, retags, writes or truncations.
type FileId int64

// UnknownFileId is returned by lookups that find no matching file.
const UnknownFileId FileId = -1

// File is the persisted identity of a single tagged entry: either a
// regular file (Content holds opaque bytes) or a symlink (Content holds
// the raw, untranslated UTF-8 target string and IsSymlink is true).
type File struct {
	Id        FileId    `db:"id"`
	Name      string    `db:"name"`
	Tags      []string  `db:"-"`
	Content   []byte    `db:"content"`
	Digest    string    `db:"digest"`
	IsSymlink bool      `db:"is_symlink"`
	Mode      uint32    `db:"mode"`
	Uid       uint32    `db:"uid"`
	Gid       uint32    `db:"gid"`
	Atime     time.Time `db:"atime"`
	Mtime     time.Time `db:"mtime"`
	Ctime     time.Time `db:"ctime"`
}

// UnknownFile is the sentinel returned in place of a File when no record
// matches a lookup, so callers can test identity with == rather than
// juggling a second "found" bool everywhere.
var UnknownFile = File{Id: UnknownFileId}

// HasTag reports whether f carries tag exactly.
func (f File) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagSetEqual reports whether f's tag set is exactly the set T (order
// independent), used by the visibility projector to decide whether a
// file is shown bare or dot-hidden.
func (f File) TagSetEqual(t []string) bool {
	if len(f.Tags) != len(t) {
		return false
	}
	want := make(map[string]struct{}, len(t))
	for _, tag := range t {
		want[tag] = struct{}{}
	}
	for _, tag := range f.Tags {
		if _, ok := want[tag]; !ok {
			return false
		}
	}
	return true
}
