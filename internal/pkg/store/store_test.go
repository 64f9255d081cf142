package store

import (
	"testing"
	"time"

	"github.com/david-morris/pytagfs/internal/pkg/model"
)

// need shared cache to allow the single sqlite connection we pin
// ourselves to still see a consistent in-memory db across Open calls.
func getStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("could not open store: %v", err)
	}
	return s
}

// Validates that a freshly opened store has no files and no tags.
func TestOpen_Empty(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	files, err := s.AllFiles()
	if err != nil || len(files) > 0 {
		t.Errorf("expected empty store, got %d files (err=%v)", len(files), err)
	}
	tags, err := s.AllEmptyTags()
	if err != nil || len(tags) > 0 {
		t.Errorf("expected no empty tags, got %d (err=%v)", len(tags), err)
	}
}

// Validates create/lookup round trips name, tags and content.
func TestCreateFile_RoundTrip(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	now := time.Unix(1700000000, 0)
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	id, err := tx.CreateFile("ticket.pdf", []string{"peru2018", "paperwork"}, 0644, 0, 0, now, false, []byte("PDF"), "sha256:abc")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	found, err := s.FileByID(id)
	if err != nil {
		t.Fatalf("lookup by id: %v", err)
	}
	if found.Name != "ticket.pdf" || string(found.Content) != "PDF" {
		t.Errorf("unexpected file round-tripped: %+v", found)
	}
	if !found.HasTag("peru2018") || !found.HasTag("paperwork") {
		t.Errorf("expected both tags present, got %v", found.Tags)
	}

	byName, err := s.FileByName("ticket.pdf")
	if err != nil || byName.Id != id {
		t.Errorf("expected to find file by name, got %+v (err=%v)", byName, err)
	}
}

// Validates that a missing file lookup returns model.UnknownFile, not
// an error.
func TestFileByName_Missing(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	found, err := s.FileByName("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Id != model.UnknownFileId {
		t.Errorf("expected UnknownFile, got %+v", found)
	}
}

// Validates that DeleteFile removes the name, tags and row together.
func TestDeleteFile(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	tx, _ := s.Begin()
	id, err := tx.CreateFile("x", []string{"a"}, 0644, 0, 0, time.Now(), false, nil, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tx.Commit()

	tx, _ = s.Begin()
	if err := tx.DeleteFile(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tx.Commit()

	found, err := s.FileByID(id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.Id != model.UnknownFileId {
		t.Errorf("expected file gone, got %+v", found)
	}
}

// Validates a rename round-trip: A -> B -> A leaves the file as it
// started.
func TestRenameFile_RoundTrip(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	tx, _ := s.Begin()
	id, _ := tx.CreateFile("a", nil, 0644, 0, 0, time.Now(), false, nil, "")
	tx.Commit()

	tx, _ = s.Begin()
	if err := tx.RenameFile(id, "b"); err != nil {
		t.Fatalf("rename to b: %v", err)
	}
	tx.Commit()

	tx, _ = s.Begin()
	if err := tx.RenameFile(id, "a"); err != nil {
		t.Fatalf("rename back to a: %v", err)
	}
	tx.Commit()

	found, err := s.FileByID(id)
	if err != nil || found.Name != "a" {
		t.Errorf("expected name restored to 'a', got %+v (err=%v)", found, err)
	}
}

// Validates empty-tag markers are created, listed and removed.
func TestEmptyTagMarkers(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	tx, _ := s.Begin()
	if err := tx.AddEmptyTag("empty"); err != nil {
		t.Fatalf("add empty tag: %v", err)
	}
	tx.Commit()

	tags, err := s.AllEmptyTags()
	if err != nil || len(tags) != 1 || tags[0] != "empty" {
		t.Errorf("expected [empty], got %v (err=%v)", tags, err)
	}

	tx, _ = s.Begin()
	if err := tx.RemoveEmptyTag("empty"); err != nil {
		t.Fatalf("remove empty tag: %v", err)
	}
	tx.Commit()

	tags, err = s.AllEmptyTags()
	if err != nil || len(tags) != 0 {
		t.Errorf("expected no empty tags left, got %v (err=%v)", tags, err)
	}
}

// Validates RenameTagEverywhere rewrites every file's tag set
// atomically.
func TestRenameTagEverywhere(t *testing.T) {
	s := getStore(t)
	defer s.Close()

	tx, _ := s.Begin()
	id1, _ := tx.CreateFile("one", []string{"old"}, 0644, 0, 0, time.Now(), false, nil, "")
	id2, _ := tx.CreateFile("two", []string{"old", "other"}, 0644, 0, 0, time.Now(), false, nil, "")
	tx.Commit()

	tx, _ = s.Begin()
	if err := tx.RenameTagEverywhere("old", "new"); err != nil {
		t.Fatalf("rename tag: %v", err)
	}
	tx.Commit()

	f1, _ := s.FileByID(id1)
	f2, _ := s.FileByID(id2)
	if !f1.HasTag("new") || f1.HasTag("old") {
		t.Errorf("expected file one retagged, got %v", f1.Tags)
	}
	if !f2.HasTag("new") || !f2.HasTag("other") || f2.HasTag("old") {
		t.Errorf("expected file two retagged but keep 'other', got %v", f2.Tags)
	}
}
