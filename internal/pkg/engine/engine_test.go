package engine

import (
	"testing"

	"github.com/david-morris/pytagfs/internal/pkg/projector"
)

func newTestEngine(t *testing.T) *Engine {
	e, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// A file tagged {peru2018, paperwork} is visible under both tags
// together, hidden as a dotfile under either alone.
func TestTagIntersectionAndHiding(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Create([]string{"peru2018", "paperwork"}, "ticket.pdf", 0644, 0, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries, err := e.ReadDir([]string{"peru2018", "paperwork"})
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found bool
	for _, ent := range entries {
		if ent.Name == "ticket.pdf" {
			found = true
			if ent.Hidden {
				t.Errorf("expected ticket.pdf visible under both tags")
			}
		}
	}
	if !found {
		t.Fatalf("expected ticket.pdf listed under both tags")
	}

	entries, err = e.ReadDir([]string{"peru2018"})
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found = false
	for _, ent := range entries {
		if ent.Name == "ticket.pdf" {
			found = true
			if !ent.Hidden {
				t.Errorf("expected ticket.pdf hidden under peru2018 alone")
			}
		}
	}
	if !found {
		t.Fatalf("expected ticket.pdf listed (hidden) under peru2018 alone")
	}
}

// Untagged files and the root listing.
func TestRoot_ListsUntaggedFilesAndAllTopLevelTags(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Create(nil, "readme.txt", 0644, 0, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.Create([]string{"peru2018"}, "ticket.pdf", 0644, 0, 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries, err := e.ReadDir(nil)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var readmeVisible, ticketHidden, tagVisible bool
	for _, ent := range entries {
		switch ent.Name {
		case "readme.txt":
			readmeVisible = !ent.Hidden
		case "ticket.pdf":
			ticketHidden = ent.Hidden
		case "peru2018":
			tagVisible = !ent.Hidden
		}
	}
	if !readmeVisible {
		t.Errorf("expected untagged file visible bare at root")
	}
	if !ticketHidden {
		t.Errorf("expected tagged file hidden at root")
	}
	if !tagVisible {
		t.Errorf("expected top-level tag visible at root")
	}
}

// mkdir /empty, then rename /empty -> /..deleteme removes the marker;
// it is not listed afterward.
func TestEmptyTagLifecycle(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Mkdir(nil, "empty"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	entries, err := e.ReadDir(nil)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if _, ok := find(entries, "empty"); !ok {
		t.Fatalf("expected empty marker listed at root")
	}
	if err := e.Rename(nil, "empty", nil, "..deleteme"); err != nil {
		t.Fatalf("Rename deleteme: %v", err)
	}
	entries, err = e.ReadDir(nil)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if _, ok := find(entries, "empty"); ok {
		t.Errorf("expected empty marker gone after ..deleteme rename")
	}
}

// A relative symlink target is translated by ascent depth at read
// time.
func TestSymlinkDepthTranslation(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Symlink([]string{"a", "b"}, "link", "target")
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	got, err := e.Readlink(id, 2)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if got != "../../target" {
		t.Errorf("expected ../../target, got %q", got)
	}
}

// The tag index always matches what ReadDir/Resolve would derive
// directly from the store, even after a sequence of mutations.
func TestInvariant_IndexTracksStoreAfterMutations(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create([]string{"a"}, "x", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Rename([]string{"a"}, "x", []string{"b"}, "x"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	kind, f, err := e.Resolve([]string{"b"}, "x")
	if err != nil || kind != KindFile || f.Id != id {
		t.Fatalf("expected renamed file resolvable under its new tag, got kind=%v err=%v", kind, err)
	}
	if _, _, err := e.Resolve([]string{"a"}, "x"); err == nil {
		t.Errorf("expected old tag path to no longer resolve the file")
	}
}

func TestRename_RoundTrip(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create([]string{"a"}, "x", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Rename([]string{"a"}, "x", []string{"a"}, "y"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := e.Rename([]string{"a"}, "y", []string{"a"}, "x"); err != nil {
		t.Fatalf("Rename back: %v", err)
	}
	f, err := e.FileByID(id)
	if err != nil || f.Name != "x" {
		t.Errorf("expected round-tripped file named x, got %+v err=%v", f, err)
	}
}

func find(entries []projector.Entry, name string) (projector.Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return projector.Entry{}, false
}
