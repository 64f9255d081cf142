package tagindex

import (
	"testing"

	"github.com/david-morris/pytagfs/internal/pkg/model"
)

// Validates that Rebuild produces exactly the inverted view of the
// files passed in.
func TestRebuild_InvertedView(t *testing.T) {
	idx := New()
	files := []model.File{
		{Id: 1, Name: "ticket.pdf", Tags: []string{"peru2018", "paperwork"}},
		{Id: 2, Name: "photo.jpg", Tags: []string{"peru2018", "portraits"}},
	}
	idx.Rebuild(files, []string{"empty"})

	if !idx.KnownTag("peru2018") || !idx.KnownTag("paperwork") || !idx.KnownTag("portraits") {
		t.Errorf("expected all three tags known")
	}
	if idx.KnownTag("empty") {
		t.Errorf("empty tag marker should not appear as a borne tag")
	}
	if !idx.EmptyMarker("empty") {
		t.Errorf("expected empty marker present")
	}

	peru := idx.FilesWithTag("peru2018")
	if len(peru) != 2 {
		t.Errorf("expected 2 files tagged peru2018, got %d", len(peru))
	}
	paperwork := idx.FilesWithTag("paperwork")
	if len(paperwork) != 1 {
		t.Errorf("expected 1 file tagged paperwork, got %d", len(paperwork))
	}
	if idx.NameOf(1) != "ticket.pdf" {
		t.Errorf("expected name lookup to work, got %q", idx.NameOf(1))
	}
}

// Validates that Rebuild fully discards stale state from a previous
// snapshot rather than merging into it.
func TestRebuild_DiscardsStaleState(t *testing.T) {
	idx := New()
	idx.Rebuild([]model.File{{Id: 1, Name: "a", Tags: []string{"old"}}}, nil)
	idx.Rebuild([]model.File{{Id: 2, Name: "b", Tags: []string{"new"}}}, nil)

	if idx.KnownTag("old") {
		t.Errorf("expected 'old' tag to be gone after rebuild")
	}
	if !idx.KnownTag("new") {
		t.Errorf("expected 'new' tag present after rebuild")
	}
	if len(idx.AllFileIds()) != 1 {
		t.Errorf("expected exactly 1 file after rebuild, got %d", len(idx.AllFileIds()))
	}
}
