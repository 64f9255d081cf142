// Package planner implements the Mutation Planner: it turns filesystem
// mutation callbacks into validated sequences of store operations,
// resolving the overloaded rename semantics (retag / rename /
// delete-sentinel) and enforcing the name-grammar and collision rules
// before ever opening a transaction.
package planner

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/david-morris/pytagfs/internal/pkg/content"
	"github.com/david-morris/pytagfs/internal/pkg/fserr"
	"github.com/david-morris/pytagfs/internal/pkg/model"
	"github.com/david-morris/pytagfs/internal/pkg/pathquery"
	"github.com/david-morris/pytagfs/internal/pkg/store"
	"github.com/david-morris/pytagfs/internal/pkg/tagindex"
)

// Planner validates and executes mutations. It reads the in-memory
// index to fail fast before opening a transaction, then performs the
// actual writes against the store inside one. It does not update the
// index itself — the caller (internal/pkg/engine) rebuilds the index
// from the store after a successful commit, which is what keeps the
// Tag Index and Store in lockstep.
type Planner struct {
	st  *store.Store
	idx *tagindex.Index
	qe  *pathquery.Engine
}

// New builds a Planner over the given store, index and query engine.
// All three must refer to the same mount's state.
func New(st *store.Store, idx *tagindex.Index, qe *pathquery.Engine) *Planner {
	return &Planner{st: st, idx: idx, qe: qe}
}

// ValidName enforces the name grammar: UTF-8, no NUL, no '/', not
// empty, not "." or "..", and no leading/trailing '.' except the
// literal "..deleteme" sentinel, which is only legal as a rename
// destination.
func ValidName(name string, allowSentinel bool) error {
	if name == "" || !utf8.ValidString(name) || strings.ContainsRune(name, 0) || strings.Contains(name, "/") {
		return fserr.New(fserr.Invalid, "illegal name: "+name)
	}
	if name == "." || name == ".." {
		return fserr.New(fserr.Invalid, "illegal name: "+name)
	}
	if name == pathquery.DeletemeSentinel {
		if allowSentinel {
			return nil
		}
		return fserr.New(fserr.Invalid, "..deleteme is only valid as a rename destination")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fserr.New(fserr.Invalid, "name may not start or end with '.': "+name)
	}
	return nil
}

// resolution is what classifying (tags, leaf) against the current
// state produces: it is either a known file, a reachable tag
// (including an empty-tag marker), or neither.
type resolution struct {
	file     model.File
	isFile   bool
	isTag    bool
	tagValue string
}

// resolve classifies leaf under tags: a file wins ties with a tag of
// the same name (invariant: collisions are rejected at creation time,
// so in practice at most one can match).
func (p *Planner) resolve(tags []string, leaf string) resolution {
	matching := p.qe.MatchingFiles(tags)
	for id := range matching {
		if p.idx.NameOf(id) == leaf {
			f, _ := p.st.FileByID(id)
			return resolution{file: f, isFile: true}
		}
	}
	for _, tag := range p.qe.CandidateTags(tags, matching) {
		if tag == leaf {
			return resolution{isTag: true, tagValue: leaf}
		}
	}
	return resolution{}
}

// collides reports whether name is already taken by a file or a
// visible tag at depth tags, the EEXIST precondition for
// create/mkdir/rename targets.
func (p *Planner) collides(tags []string, name string) bool {
	r := p.resolve(tags, name)
	return r.isFile || r.isTag
}

// Create implements create: path = T . name. Tags need not already
// exist — a file is the thing that brings a tag into existence, so
// any prefix tag not yet known is simply vivified by this call.
func (p *Planner) Create(tags []string, name string, mode, uid, gid uint32) (model.FileId, error) {
	if err := ValidName(name, false); err != nil {
		return model.UnknownFileId, err
	}
	if p.collides(tags, name) {
		return model.UnknownFileId, fserr.New(fserr.Exists, "name already in use: "+name)
	}
	tx, err := p.st.Begin()
	if err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	now := time.Now()
	id, err := tx.CreateFile(name, append([]string(nil), tags...), mode, uid, gid, now, false, nil, "")
	if err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	if len(tags) > 0 {
		// a file now carries these tags; any empty markers among them
		// are no longer needed, now that a real file implies them.
		for _, tag := range tags {
			if err := tx.RemoveEmptyTag(tag); err != nil {
				return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	return id, nil
}

// Symlink implements symlink: like create, but the content is the raw
// target string and IsSymlink is set. Creating a symlink outside the
// mount root is allowed but its target is stored untranslated.
func (p *Planner) Symlink(tags []string, name string, target string) (model.FileId, error) {
	if err := ValidName(name, false); err != nil {
		return model.UnknownFileId, err
	}
	if p.collides(tags, name) {
		return model.UnknownFileId, fserr.New(fserr.Exists, "name already in use: "+name)
	}
	data := []byte(target)
	tx, err := p.st.Begin()
	if err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	now := time.Now()
	id, err := tx.CreateFile(name, append([]string(nil), tags...), 0777, 0, 0, now, true, data, content.Digest(data).String())
	if err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	for _, tag := range tags {
		if err := tx.RemoveEmptyTag(tag); err != nil {
			return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
		}
	}
	if err := tx.Commit(); err != nil {
		return model.UnknownFileId, fserr.New(fserr.IO, err.Error())
	}
	return id, nil
}

// Mkdir implements mkdir: path = T . tag.
//
// A tag collision with an existing file name at this depth is
// rejected with EEXIST. A tag collision with a tag already reachable
// at this depth is an idempotent no-op. At the root with a genuinely
// new tag, an EmptyTagMarker is persisted. Below the root, mkdir of a
// genuinely new tag succeeds silently without persisting anything —
// nesting a brand new tag inside another tag has no meaning in this
// model (see DESIGN.md for the reasoning).
func (p *Planner) Mkdir(tags []string, tag string) error {
	if err := ValidName(tag, false); err != nil {
		return err
	}
	if !p.qe.ValidPath(tags) {
		return fserr.New(fserr.NotFound, "no such tag path")
	}
	r := p.resolve(tags, tag)
	if r.isFile {
		return fserr.New(fserr.Exists, "name already in use by a file: "+tag)
	}
	if r.isTag {
		return nil // idempotent no-op
	}
	if len(tags) > 0 {
		return nil // no-op: creating a brand new tag nested under another has no meaning
	}
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.AddEmptyTag(tag); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	if err := tx.Commit(); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return nil
}

// Unlink implements unlink: path = T . name. At the root it deletes
// the file entirely; inside a tag path it removes only the
// last tag component of the path the user gave (tags[len(tags)-1]),
// leaving the file tagged with whatever remains.
func (p *Planner) Unlink(tags []string, name string) error {
	r := p.resolve(tags, name)
	if !r.isFile {
		return fserr.New(fserr.NotFound, "no such file: "+name)
	}
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if len(tags) == 0 {
		if err := tx.DeleteFile(r.file.Id); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	} else {
		lastTag := tags[len(tags)-1]
		if err := tx.RemoveTag(r.file.Id, lastTag); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	}
	if err := tx.Commit(); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return nil
}

// Rmdir implements rmdir: path = T . tag. Succeeds only
// if no file matches T ∪ {tag}; an EmptyTagMarker at the root is then
// removed outright, anything else is a no-op (the synthetic directory
// just stops being projected once nothing matches it).
func (p *Planner) Rmdir(tags []string, tag string) error {
	extended := append(append([]string(nil), tags...), tag)
	if len(p.qe.MatchingFiles(extended)) > 0 {
		return fserr.New(fserr.NotEmpty, "tag still has matching files: "+tag)
	}
	if len(tags) == 0 && p.idx.EmptyMarker(tag) {
		tx, err := p.st.Begin()
		if err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
		defer tx.Rollback()
		if err := tx.RemoveEmptyTag(tag); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
		return tx.Commit()
	}
	return nil
}

// Write implements write: content changes, tags don't.
func (p *Planner) Write(id model.FileId, data []byte) error {
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.SetContent(id, data, content.Digest(data).String(), time.Now()); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	if err := tx.Commit(); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return nil
}

// Truncate implements truncate: resizes content, padding with zero
// bytes or cutting it short, tags unchanged.
func (p *Planner) Truncate(id model.FileId, size int64) error {
	f, err := p.st.FileByID(id)
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	if f.Id == model.UnknownFileId {
		return fserr.New(fserr.NotFound, "no such file")
	}
	resized := make([]byte, size)
	copy(resized, f.Content)
	return p.Write(id, resized)
}

// SetMode implements chmod on a file. chmod/chown on synthetic tag
// directories is accepted and discarded by the dispatcher before it
// ever reaches the planner; a real file's mode change is unambiguous
// and is persisted here.
func (p *Planner) SetMode(id model.FileId, mode uint32) error {
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.SetMode(id, mode, time.Now()); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return tx.Commit()
}

// SetOwner implements chown on a file.
func (p *Planner) SetOwner(id model.FileId, uid, gid uint32) error {
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.SetOwner(id, uid, gid, time.Now()); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return tx.Commit()
}

// SetTimes implements utimens on a file.
func (p *Planner) SetTimes(id model.FileId, atime, mtime time.Time) error {
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.SetTimes(id, atime, mtime); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return tx.Commit()
}

// Rename implements the overloaded rename: the deleteme sentinel,
// additive/replacing file retag, and tag rename/no-op-move.
func (p *Planner) Rename(srcTags []string, srcLeaf string, dstTags []string, dstLeaf string) error {
	if dstLeaf == pathquery.DeletemeSentinel {
		return p.renameDeleteme(srcTags, srcLeaf)
	}
	if err := ValidName(dstLeaf, false); err != nil {
		return err
	}
	src := p.resolve(srcTags, srcLeaf)
	switch {
	case src.isFile:
		return p.renameFile(src.file, srcTags, dstTags, dstLeaf)
	case src.isTag:
		return p.renameTag(srcLeaf, srcTags, dstTags, dstLeaf)
	default:
		return fserr.New(fserr.NotFound, "no such file or tag: "+srcLeaf)
	}
}

// renameDeleteme handles "rename X -> ..deleteme": X must resolve to a
// tag with no matching files, in which case its marker (if any) is
// removed; a tag that still has files is refused.
func (p *Planner) renameDeleteme(srcTags []string, srcLeaf string) error {
	r := p.resolve(srcTags, srcLeaf)
	if !r.isTag {
		return fserr.New(fserr.Invalid, "..deleteme target must be an empty tag")
	}
	tagPath := append(append([]string(nil), srcTags...), srcLeaf)
	if len(p.qe.MatchingFiles(tagPath)) > 0 {
		return fserr.New(fserr.Invalid, "cannot delete a tag that still has files: "+srcLeaf)
	}
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.RemoveEmptyTag(srcLeaf); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return tx.Commit()
}

// renameFile handles both the additive-retag and replacing-retag rename
// cases for a file.
func (p *Planner) renameFile(f model.File, srcTags, dstTags []string, dstLeaf string) error {
	if p.destCollides(dstTags, dstLeaf, f.Id) {
		return fserr.New(fserr.Exists, "rename destination already in use: "+dstLeaf)
	}
	hidden := !f.TagSetEqual(srcTags)
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if hidden {
		if err := tx.AddTags(f.Id, append([]string(nil), dstTags...)); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	} else {
		if err := tx.ReplaceTags(f.Id, append([]string(nil), dstTags...)); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	}
	if dstLeaf != f.Name {
		if err := tx.RenameFile(f.Id, dstLeaf); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	}
	for _, tag := range dstTags {
		if err := tx.RemoveEmptyTag(tag); err != nil {
			return fserr.New(fserr.IO, err.Error())
		}
	}
	return tx.Commit()
}

// destCollides checks the rename-destination collision rule: dstLeaf
// must not already be used by a different file, nor by a tag visible
// at dstTags.
func (p *Planner) destCollides(dstTags []string, dstLeaf string, movingFile model.FileId) bool {
	existing, _ := p.st.FileByName(dstLeaf)
	if existing.Id != model.UnknownFileId && existing.Id != movingFile {
		return true
	}
	for _, tag := range p.qe.CandidateTags(dstTags, p.qe.MatchingFiles(dstTags)) {
		if tag == dstLeaf {
			return true
		}
	}
	return false
}

// renameTag handles renaming a tag: at the same parent depth it
// rewrites every file's tag set; moving it to a different depth is a
// meaningless no-op that still reports success.
func (p *Planner) renameTag(srcLeaf string, srcTags, dstTags []string, dstLeaf string) error {
	if !sameTagSet(srcTags, dstTags) {
		return nil // moving a tag hierarchy has no meaning; accept and discard.
	}
	if p.collides(dstTags, dstLeaf) {
		return fserr.New(fserr.Exists, "rename destination already in use: "+dstLeaf)
	}
	tx, err := p.st.Begin()
	if err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	defer tx.Rollback()
	if err := tx.RenameTagEverywhere(srcLeaf, dstLeaf); err != nil {
		return fserr.New(fserr.IO, err.Error())
	}
	return tx.Commit()
}

func sameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
