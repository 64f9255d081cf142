package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/david-morris/pytagfs/internal/app/pytagfs"
	"github.com/david-morris/pytagfs/internal/pkg/config"
	"github.com/david-morris/pytagfs/internal/pkg/logging"
)

var progName = filepath.Base(os.Args[0])

func main() {
	log.SetFlags(0)
	log.SetPrefix(progName + ": ")

	flag.Usage = usage
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		usage()
		os.Exit(1)
	}
	logging.SetLevel(cfg.Verbose, cfg.Debug)

	if err := config.Validate(cfg); err != nil {
		log.Print(err)
		os.Exit(1)
	}

	logging.Infof("mounting %s at %s", cfg.Datastore, cfg.Mountpoint)
	if err := pytagfs.Mount(cfg.Datastore, cfg.Mountpoint, cfg.Options); err != nil {
		log.Print(err)
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of %s:\n", progName)
	fmt.Fprintf(os.Stderr, "  %s -m <mountpoint> -d <datastore> [-o opt,...] [-v|-vv]\n", progName)
	flag.PrintDefaults()
}
