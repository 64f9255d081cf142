package pathquery

import "github.com/david-morris/pytagfs/internal/pkg/model"

// Engine answers the two questions that matter over an ordered tag
// list T: which files match, and which tags could still be appended
// without emptying the result. It reads the in-memory tag index only
// — it never touches the store and never blocks.
type Engine struct {
	index tagIndex
}

// tagIndex is the subset of *tagindex.Index the query engine needs,
// kept narrow so tests can substitute a fake.
type tagIndex interface {
	KnownTag(tag string) bool
	EmptyMarker(tag string) bool
	AllTags() []string
	AllEmptyTags() []string
	FilesWithTag(tag string) map[model.FileId]struct{}
	AllFileIds() map[model.FileId]struct{}
}

// New builds a query engine over index.
func New(index tagIndex) *Engine {
	return &Engine{index: index}
}

// ValidPath reports whether every tag in tags is either a known tag
// (borne by at least one file) or an empty-tag marker. A path
// containing an unresolvable component is ENOENT, except when the
// caller is about to create the leaf.
func (e *Engine) ValidPath(tags []string) bool {
	for _, tag := range tags {
		if !e.index.KnownTag(tag) && !e.index.EmptyMarker(tag) {
			return false
		}
	}
	return true
}

// MatchingFiles returns { f : tags ⊆ f.tags }. An empty tags list
// matches every file in the index.
func (e *Engine) MatchingFiles(tags []string) map[model.FileId]struct{} {
	if len(tags) == 0 {
		return e.index.AllFileIds()
	}
	result := copySet(e.index.FilesWithTag(tags[0]))
	for _, tag := range tags[1:] {
		result = intersect(result, e.index.FilesWithTag(tag))
		if len(result) == 0 {
			break
		}
	}
	return result
}

// CandidateTags returns every tag that, appended to tags, would still
// leave at least one matching file, plus every empty-tag marker when
// tags is empty (empty markers are visible only at the mount root).
func (e *Engine) CandidateTags(tags []string, matching map[model.FileId]struct{}) []string {
	present := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		present[tag] = struct{}{}
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, tag := range e.index.AllTags() {
		if _, already := present[tag]; already {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if hasIntersection(e.index.FilesWithTag(tag), matching) {
			seen[tag] = struct{}{}
			candidates = append(candidates, tag)
		}
	}
	if len(tags) == 0 {
		for _, tag := range e.index.AllEmptyTags() {
			candidates = append(candidates, tag)
		}
	}
	return candidates
}

func copySet(in map[model.FileId]struct{}) map[model.FileId]struct{} {
	out := make(map[model.FileId]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}

func intersect(a, b map[model.FileId]struct{}) map[model.FileId]struct{} {
	out := make(map[model.FileId]struct{})
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for id := range small {
		if _, ok := big[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func hasIntersection(a, b map[model.FileId]struct{}) bool {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for id := range small {
		if _, ok := big[id]; ok {
			return true
		}
	}
	return false
}
