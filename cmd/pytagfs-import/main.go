package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/david-morris/pytagfs/internal/app/importer"
)

var progName = filepath.Base(os.Args[0])

type dirFlag []string

func main() {
	log.SetFlags(0)
	log.SetPrefix(progName + ": ")

	var scanDirectories dirFlag
	flag.Var(&scanDirectories, "scanDir", "Directory to scan for existing files. Can be repeated.")

	flag.Usage = usage
	flag.Parse()

	if len(scanDirectories) == 0 || flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	dbPath := flag.Arg(0)

	var wg sync.WaitGroup
	wg.Add(len(scanDirectories))
	for _, dir := range scanDirectories {
		dir := dir
		go func() {
			defer wg.Done()
			if err := importer.IndexPath(dir, dbPath); err != nil {
				log.Printf("could not index directory %s: %v", dir, err)
			}
		}()
	}
	wg.Wait()
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of %s:\n", progName)
	fmt.Fprintf(os.Stderr, "  %s <datastore>\n", progName)
	flag.PrintDefaults()
}

func (i *dirFlag) String() string {
	var content string
	for _, val := range *i {
		content += val
	}
	return content
}

func (i *dirFlag) Set(value string) error {
	*i = append(*i, value)
	return nil
}
