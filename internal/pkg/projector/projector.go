// Package projector turns a query result into the directory listing a
// reader actually sees, including the dot-hiding rule and the file-
// over-tag collision rule.
package projector

import (
	"sort"

	"github.com/david-morris/pytagfs/internal/pkg/model"
)

// Kind distinguishes a file entry from a synthetic tag-directory entry
// in a listing.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// Entry is one row of a projected directory listing.
type Entry struct {
	Name   string
	Hidden bool
	Kind   Kind
	FileId model.FileId // meaningful only when Kind == KindFile
}

// DisplayName returns the name as a reader would actually see it:
// dot-prefixed when Hidden.
func (e Entry) DisplayName() string {
	if e.Hidden {
		return "." + e.Name
	}
	return e.Name
}

// matcher is the subset of *pathquery.Engine the projector needs.
type matcher interface {
	MatchingFiles(tags []string) map[model.FileId]struct{}
}

// Listing projects (tags, matched, candidates) into an ordered
// directory listing, always including the synthetic "." and ".."
// entries.
//
// matched is the result of Engine.MatchingFiles(tags) hydrated into
// full File records (the projector needs each file's name and tag set,
// not just its id). candidates is the result of
// Engine.CandidateTags(tags, ...) for the same tags.
func Listing(tags []string, matched []model.File, candidates []string, qe matcher) []Entry {
	fileNames := make(map[string]struct{}, len(matched))
	entries := []Entry{
		{Name: ".", Kind: KindDir},
		{Name: "..", Kind: KindDir},
	}
	for _, f := range matched {
		fileNames[f.Name] = struct{}{}
		entries = append(entries, Entry{
			Name:   f.Name,
			Hidden: !f.TagSetEqual(tags),
			Kind:   KindFile,
			FileId: f.Id,
		})
	}
	for _, tag := range candidates {
		if _, collide := fileNames[tag]; collide {
			// a file of the same name wins; the tag is omitted at this
			// depth entirely.
			continue
		}
		entries = append(entries, Entry{
			Name:   tag,
			Hidden: tagHidden(tags, tag, qe),
			Kind:   KindDir,
		})
	}

	rest := entries[2:]
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name < rest[j].Name })
	return entries
}

// tagHidden decides whether a candidate tag should be dot-hidden. A
// tag is visible iff matching_files(T ∪ {tag}) is non-empty, except at
// the mount root where tags are never hidden. By construction every
// candidate tag already co-occurs with at least one file in
// matching_files(T), so that file also lies in matching_files(T ∪
// {tag}); the check below is never actually false, but it is computed
// explicitly rather than assumed.
func tagHidden(tags []string, tag string, qe matcher) bool {
	if len(tags) == 0 {
		return false
	}
	extended := make([]string, 0, len(tags)+1)
	extended = append(extended, tags...)
	extended = append(extended, tag)
	return len(qe.MatchingFiles(extended)) == 0
}
