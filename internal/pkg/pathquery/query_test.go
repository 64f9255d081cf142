package pathquery

import (
	"sort"
	"testing"

	"github.com/david-morris/pytagfs/internal/pkg/model"
	"github.com/david-morris/pytagfs/internal/pkg/tagindex"
)

func buildIndex() *tagindex.Index {
	idx := tagindex.New()
	idx.Rebuild([]model.File{
		{Id: 1, Name: "ticket.pdf", Tags: []string{"peru2018", "paperwork"}},
		{Id: 2, Name: "photo.jpg", Tags: []string{"peru2018", "portraits"}},
		{Id: 3, Name: "untagged", Tags: nil},
	}, []string{"empty"})
	return idx
}

// Tag-as-intersection: each additional tag in the path narrows the
// match set to files bearing all of them.
func TestMatchingFiles_Intersection(t *testing.T) {
	e := New(buildIndex())

	root := e.MatchingFiles(nil)
	if len(root) != 3 {
		t.Errorf("expected all 3 files at root, got %d", len(root))
	}

	peru := e.MatchingFiles([]string{"peru2018"})
	if len(peru) != 2 {
		t.Errorf("expected 2 files under peru2018, got %d", len(peru))
	}

	both := e.MatchingFiles([]string{"peru2018", "paperwork"})
	if len(both) != 1 {
		t.Errorf("expected 1 file under peru2018+paperwork, got %d", len(both))
	}
	if _, ok := both[1]; !ok {
		t.Errorf("expected file 1 in intersection, got %v", both)
	}
}

func TestCandidateTags_RootShowsEmptyMarkers(t *testing.T) {
	e := New(buildIndex())
	matching := e.MatchingFiles(nil)
	cands := e.CandidateTags(nil, matching)
	sort.Strings(cands)
	want := []string{"empty", "paperwork", "peru2018", "portraits"}
	if len(cands) != len(want) {
		t.Fatalf("expected %v, got %v", want, cands)
	}
	for i := range want {
		if cands[i] != want[i] {
			t.Errorf("expected %v, got %v", want, cands)
			break
		}
	}
}

func TestCandidateTags_ExcludesAlreadyPresentAndEmptyMarkersBelowRoot(t *testing.T) {
	e := New(buildIndex())
	tags := []string{"peru2018"}
	matching := e.MatchingFiles(tags)
	cands := e.CandidateTags(tags, matching)
	for _, c := range cands {
		if c == "peru2018" {
			t.Errorf("candidate list should not include a tag already in the path")
		}
		if c == "empty" {
			t.Errorf("empty-tag markers must not appear below the root")
		}
	}
	sort.Strings(cands)
	if len(cands) != 2 || cands[0] != "paperwork" || cands[1] != "portraits" {
		t.Errorf("expected [paperwork portraits], got %v", cands)
	}
}

func TestValidPath(t *testing.T) {
	e := New(buildIndex())
	if !e.ValidPath([]string{"peru2018", "paperwork"}) {
		t.Errorf("expected known tags to form a valid path")
	}
	if !e.ValidPath([]string{"empty"}) {
		t.Errorf("expected an empty-tag marker to be a valid path component")
	}
	if e.ValidPath([]string{"nosuchtag"}) {
		t.Errorf("expected an unknown tag to be an invalid path")
	}
}
