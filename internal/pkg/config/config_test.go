package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_RequiresMountAndDatastore(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := Parse(fs, nil); err == nil {
		t.Errorf("expected error when -m/-d are missing")
	}
}

func TestParse_OptionsSplit(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Parse(fs, []string{"-m", "/mnt", "-d", "/data.db", "-o", "ro,noexec"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Options) != 2 || cfg.Options[0] != "ro" || cfg.Options[1] != "noexec" {
		t.Errorf("expected split options, got %v", cfg.Options)
	}
}

func TestValidate_RejectsMissingMountpoint(t *testing.T) {
	cfg := Config{Mountpoint: filepath.Join(t.TempDir(), "nope"), Datastore: "x.db"}
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for missing mountpoint")
	}
}

func TestValidate_RejectsNonEmptyMountpoint(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stray"), []byte("x"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := Config{Mountpoint: dir, Datastore: filepath.Join(t.TempDir(), "x.db")}
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for non-empty mountpoint")
	}
}

func TestValidate_RejectsDatastoreInsideMountpoint(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Mountpoint: dir, Datastore: filepath.Join(dir, "x.db")}
	if err := Validate(cfg); err == nil {
		t.Errorf("expected error for datastore inside mountpoint")
	}
}

func TestValidate_AcceptsEmptyMountpointAndOutsideDatastore(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Mountpoint: dir, Datastore: filepath.Join(t.TempDir(), "x.db")}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}
