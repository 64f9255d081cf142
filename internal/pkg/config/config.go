// Package config parses and validates the pytagfs CLI surface:
// mountpoint, datastore path, mount options, and verbosity. Uses the
// plain stdlib flag package rather than a config-file or CLI-framework
// library, matching the rest of this codebase's preference for
// keeping its CLI mains small.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the parsed, validated set of mount-time parameters.
type Config struct {
	Mountpoint string
	Datastore  string
	Options    []string
	Verbose    bool
	Debug      bool
}

// Parse registers and parses the -m/-d/-o/-v/-vv flags against fs,
// independent of the global flag.CommandLine so tests can call it
// repeatedly without colliding.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	var opts string
	fs.StringVar(&cfg.Mountpoint, "m", "", "mountpoint directory (required)")
	fs.StringVar(&cfg.Datastore, "d", "", "datastore file path (required)")
	fs.StringVar(&opts, "o", "", "comma-separated mount options")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging")
	fs.BoolVar(&cfg.Debug, "vv", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if opts != "" {
		cfg.Options = strings.Split(opts, ",")
	}
	if cfg.Mountpoint == "" || cfg.Datastore == "" {
		return Config{}, fmt.Errorf("-m and -d are required")
	}
	return cfg, nil
}

// Validate enforces the mount-time preconditions: the mountpoint must
// exist and be empty, and the datastore path must not live inside the
// mountpoint. A fresh datastore (file absent) is fine; store.Open
// creates and migrates it on first use.
func Validate(cfg Config) error {
	info, err := os.Stat(cfg.Mountpoint)
	if err != nil {
		return fmt.Errorf("mountpoint %s: %w", cfg.Mountpoint, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mountpoint %s is not a directory", cfg.Mountpoint)
	}
	entries, err := os.ReadDir(cfg.Mountpoint)
	if err != nil {
		return fmt.Errorf("mountpoint %s: %w", cfg.Mountpoint, err)
	}
	if len(entries) != 0 {
		return fmt.Errorf("mountpoint %s is not empty", cfg.Mountpoint)
	}
	absMount, err := filepath.Abs(cfg.Mountpoint)
	if err != nil {
		return err
	}
	absStore, err := filepath.Abs(cfg.Datastore)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absMount, absStore)
	if err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
		return fmt.Errorf("datastore %s may not live inside mountpoint %s", cfg.Datastore, cfg.Mountpoint)
	}
	return nil
}
