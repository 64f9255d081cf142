// Package engine is the core orchestrator: it owns a single
// process-wide lock and wires the Store, Tag Index, Path Parser/Query
// Engine, Visibility Projector and Mutation Planner together behind
// one small operation surface the Dispatcher calls into. Every FUSE
// callback goes through Engine; nothing in the Dispatcher touches the
// store or index directly.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/david-morris/pytagfs/internal/pkg/content"
	"github.com/david-morris/pytagfs/internal/pkg/fserr"
	"github.com/david-morris/pytagfs/internal/pkg/model"
	"github.com/david-morris/pytagfs/internal/pkg/pathquery"
	"github.com/david-morris/pytagfs/internal/pkg/planner"
	"github.com/david-morris/pytagfs/internal/pkg/projector"
	"github.com/david-morris/pytagfs/internal/pkg/store"
	"github.com/david-morris/pytagfs/internal/pkg/tagindex"
)

// Engine is safe for concurrent use: every exported method takes the
// shared lock for a pure read or the exclusive lock for a mutation, a
// conservative single process-wide RWMutex model.
type Engine struct {
	mu  sync.RWMutex
	st  *store.Store
	idx *tagindex.Index
	qe  *pathquery.Engine
	pl  *planner.Planner
}

// Open brings up the store at dbPath and performs the initial index
// build required at mount.
func Open(dbPath string) (*Engine, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	idx := tagindex.New()
	qe := pathquery.New(idx)
	e := &Engine{st: st, idx: idx, qe: qe, pl: planner.New(st, idx, qe)}
	if err := e.refreshLocked(); err != nil {
		st.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error { return e.st.Close() }

// refreshLocked rebuilds the tag index from the store. Callers must
// already hold e.mu (read or write) for the duration.
func (e *Engine) refreshLocked() error {
	files, err := e.st.AllFiles()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	empty, err := e.st.AllEmptyTags()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	e.idx.Rebuild(files, empty)
	return nil
}

// Kind distinguishes what a resolved path component turned out to be.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindTagDir
)

// Resolve classifies name under the directory reached by tags: a known
// file, a reachable tag (including an empty marker, which is only
// reachable when tags is empty), or nothing. A file always wins a
// name collision with a tag.
func (e *Engine) Resolve(tags []string, name string) (Kind, model.File, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.qe.ValidPath(tags) {
		return KindNone, model.UnknownFile, fserr.New(fserr.NotFound, "no such tag path")
	}
	matching := e.qe.MatchingFiles(tags)
	for id := range matching {
		if e.idx.NameOf(id) == name {
			f, err := e.st.FileByID(id)
			if err != nil {
				return KindNone, model.UnknownFile, fserr.New(fserr.IO, err.Error())
			}
			return KindFile, f, nil
		}
	}
	for _, tag := range e.qe.CandidateTags(tags, matching) {
		if tag == name {
			return KindTagDir, model.UnknownFile, nil
		}
	}
	return KindNone, model.UnknownFile, fserr.New(fserr.NotFound, "no such file or tag: "+name)
}

// ReadDir projects the directory listing at tags.
func (e *Engine) ReadDir(tags []string) ([]projector.Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.qe.ValidPath(tags) {
		return nil, fserr.New(fserr.NotFound, "no such tag path")
	}
	matchingIds := e.qe.MatchingFiles(tags)
	matched := make([]model.File, 0, len(matchingIds))
	for id := range matchingIds {
		f, err := e.st.FileByID(id)
		if err != nil {
			return nil, fserr.New(fserr.IO, err.Error())
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	candidates := e.qe.CandidateTags(tags, matchingIds)
	return projector.Listing(tags, matched, candidates, e.qe), nil
}

// FileByID returns a snapshot of a file's current record.
func (e *Engine) FileByID(id model.FileId) (model.File, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, err := e.st.FileByID(id)
	if err != nil {
		return model.UnknownFile, fserr.New(fserr.IO, err.Error())
	}
	return f, nil
}

// Readlink returns a symlink's target translated for the depth it was
// resolved at.
func (e *Engine) Readlink(id model.FileId, depth int) (string, error) {
	f, err := e.FileByID(id)
	if err != nil {
		return "", err
	}
	if f.Id == model.UnknownFileId || !f.IsSymlink {
		return "", fserr.New(fserr.Invalid, "not a symlink")
	}
	return content.TranslateSymlinkTarget(depth, string(f.Content)), nil
}

// ReadFile returns a regular file's bytes, verifying its digest so
// corruption is caught rather than served silently.
func (e *Engine) ReadFile(id model.FileId) ([]byte, error) {
	f, err := e.FileByID(id)
	if err != nil {
		return nil, err
	}
	if f.Id == model.UnknownFileId {
		return nil, fserr.New(fserr.NotFound, "no such file")
	}
	if !content.Verify(f.Content, f.Digest) {
		return nil, fserr.New(fserr.IO, "content digest mismatch")
	}
	return f.Content, nil
}

// StatSummary is the file and tag totals statfs derives its inode-ish
// counts from, since there is no inherent block count to a
// sqlite-backed content store.
type StatSummary struct {
	Files int
	Tags  int
}

// Stat summarizes the mount for statfs.
func (e *Engine) Stat() StatSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return StatSummary{Files: len(e.idx.AllFileIds()), Tags: len(e.idx.AllTags()) + len(e.idx.AllEmptyTags())}
}

// mutate runs fn under the exclusive lock and, on success, refreshes
// the index so it never drifts from the store.
func (e *Engine) mutate(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return e.refreshLocked()
}

// Create implements the create FUSE callback.
func (e *Engine) Create(tags []string, name string, mode, uid, gid uint32) (model.FileId, error) {
	var id model.FileId
	err := e.mutate(func() error {
		var err error
		id, err = e.pl.Create(tags, name, mode, uid, gid)
		return err
	})
	return id, err
}

// Symlink implements the symlink FUSE callback.
func (e *Engine) Symlink(tags []string, name, target string) (model.FileId, error) {
	var id model.FileId
	err := e.mutate(func() error {
		var err error
		id, err = e.pl.Symlink(tags, name, target)
		return err
	})
	return id, err
}

// Mkdir implements the mkdir FUSE callback.
func (e *Engine) Mkdir(tags []string, tag string) error {
	return e.mutate(func() error { return e.pl.Mkdir(tags, tag) })
}

// Unlink implements the unlink FUSE callback.
func (e *Engine) Unlink(tags []string, name string) error {
	return e.mutate(func() error { return e.pl.Unlink(tags, name) })
}

// Rmdir implements the rmdir FUSE callback.
func (e *Engine) Rmdir(tags []string, tag string) error {
	return e.mutate(func() error { return e.pl.Rmdir(tags, tag) })
}

// Rename implements the overloaded rename FUSE callback.
func (e *Engine) Rename(srcTags []string, srcLeaf string, dstTags []string, dstLeaf string) error {
	return e.mutate(func() error { return e.pl.Rename(srcTags, srcLeaf, dstTags, dstLeaf) })
}

// Write implements the write FUSE callback.
func (e *Engine) Write(id model.FileId, data []byte) error {
	return e.mutate(func() error { return e.pl.Write(id, data) })
}

// Truncate implements the truncate/setattr(size) FUSE callback.
func (e *Engine) Truncate(id model.FileId, size int64) error {
	return e.mutate(func() error { return e.pl.Truncate(id, size) })
}

// Chmod implements setattr(mode) on a real file; tag directories have a
// fixed mode and silently discard chmod.
func (e *Engine) Chmod(id model.FileId, mode uint32) error {
	return e.mutate(func() error { return e.pl.SetMode(id, mode) })
}

// Chown implements setattr(uid,gid) on a real file.
func (e *Engine) Chown(id model.FileId, uid, gid uint32) error {
	return e.mutate(func() error { return e.pl.SetOwner(id, uid, gid) })
}

// Utimens implements setattr(atime,mtime) on a real file.
func (e *Engine) Utimens(id model.FileId, atime, mtime time.Time) error {
	return e.mutate(func() error { return e.pl.SetTimes(id, atime, mtime) })
}
