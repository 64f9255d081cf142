// Package tagindex is the in-memory inverted view over the store: tag
// -> set of file ids. It never owns a file, only a FileId, so it can
// be thrown away and rebuilt from the store at any time without
// touching the data it indexes.
package tagindex

import "github.com/david-morris/pytagfs/internal/pkg/model"

// Index is the rebuildable, in-memory tag -> file-id-set view. It is
// not safe for concurrent use; callers serialize access the same way
// they serialize the store (the engine's RWMutex).
type Index struct {
	tagToFiles map[string]map[model.FileId]struct{}
	fileTags   map[model.FileId][]string
	fileNames  map[model.FileId]string
	emptyTags  map[string]struct{}
}

// New builds an empty index.
func New() *Index {
	return &Index{
		tagToFiles: make(map[string]map[model.FileId]struct{}),
		fileTags:   make(map[model.FileId][]string),
		fileNames:  make(map[model.FileId]string),
		emptyTags:  make(map[string]struct{}),
	}
}

// Rebuild discards the current view and reconstructs it from files and
// emptyTags, the same snapshot the store hands back at mount time or
// after any commit.
func (idx *Index) Rebuild(files []model.File, emptyTags []string) {
	idx.tagToFiles = make(map[string]map[model.FileId]struct{})
	idx.fileTags = make(map[model.FileId][]string)
	idx.fileNames = make(map[model.FileId]string)
	idx.emptyTags = make(map[string]struct{})
	for _, f := range files {
		idx.fileTags[f.Id] = append([]string(nil), f.Tags...)
		idx.fileNames[f.Id] = f.Name
		for _, tag := range f.Tags {
			idx.addToTagSet(tag, f.Id)
		}
	}
	for _, tag := range emptyTags {
		idx.emptyTags[tag] = struct{}{}
	}
}

func (idx *Index) addToTagSet(tag string, id model.FileId) {
	set, ok := idx.tagToFiles[tag]
	if !ok {
		set = make(map[model.FileId]struct{})
		idx.tagToFiles[tag] = set
	}
	set[id] = struct{}{}
}

// KnownTag reports whether tag is borne by at least one file.
func (idx *Index) KnownTag(tag string) bool {
	_, ok := idx.tagToFiles[tag]
	return ok
}

// EmptyMarker reports whether tag exists only as an EmptyTagMarker.
func (idx *Index) EmptyMarker(tag string) bool {
	_, ok := idx.emptyTags[tag]
	return ok
}

// AllTags returns every tag currently borne by at least one file.
func (idx *Index) AllTags() []string {
	tags := make([]string, 0, len(idx.tagToFiles))
	for tag := range idx.tagToFiles {
		tags = append(tags, tag)
	}
	return tags
}

// AllEmptyTags returns every tag that exists only as an
// EmptyTagMarker.
func (idx *Index) AllEmptyTags() []string {
	tags := make([]string, 0, len(idx.emptyTags))
	for tag := range idx.emptyTags {
		tags = append(tags, tag)
	}
	return tags
}

// FilesWithTag returns the set of FileIds bearing tag.
func (idx *Index) FilesWithTag(tag string) map[model.FileId]struct{} {
	return idx.tagToFiles[tag]
}

// NameOf returns the name recorded for id, or "" if id is unknown.
func (idx *Index) NameOf(id model.FileId) string {
	return idx.fileNames[id]
}

// AllFileIds returns every file id currently indexed, the universe used
// when matching an empty tag list (an empty tag list matches every
// file).
func (idx *Index) AllFileIds() map[model.FileId]struct{} {
	ids := make(map[model.FileId]struct{}, len(idx.fileTags))
	for id := range idx.fileTags {
		ids[id] = struct{}{}
	}
	return ids
}
