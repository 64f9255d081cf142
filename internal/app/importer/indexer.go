// Package importer is the supplemental bulk-import feature: it walks a
// real directory tree and creates a tagged entry in the store for
// every file found, inferring tags from file extension. It calls into
// internal/pkg/engine, the same store every Dispatcher mutation goes
// through.
package importer

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/david-morris/pytagfs/internal/pkg/engine"
)

var defaultTag = "uncategorized"

// extensionToTagMap infers a starting tag set from a file's extension.
var extensionToTagMap = map[string][]string{
	".jpg":     {"media", "image"},
	".jpeg":    {"media", "image"},
	".bmp":     {"media", "image"},
	".png":     {"media", "image"},
	".gif":     {"media", "image"},
	".tiff":    {"media", "image"},
	".tif":     {"media", "image"},
	".ico":     {"media", "image"},
	".svg":     {"media", "image"},
	".psd":     {"media", "image"},
	".odt":     {"document"},
	".rtf":     {"document"},
	".doc":     {"document"},
	".docx":    {"document"},
	".pages":   {"document"},
	".md":      {"document"},
	".ps":      {"document"},
	".eml":     {"document", "email"},
	".ppt":     {"document", "presentation"},
	".pptx":    {"document", "presentation"},
	".key":     {"document", "presentation"},
	".xls":     {"document", "spreadsheet"},
	".xlsx":    {"document", "spreadsheet"},
	".xlsm":    {"document", "spreadsheet"},
	".csv":     {"document", "spreadsheet"},
	".numbers": {"document", "spreadsheet"},
	".ods":     {"document", "spreadsheet"},
	".txt":     {"document"},
	".pdf":     {"document"},
	".mp3":     {"media", "audio"},
	".wav":     {"media", "audio"},
	".wma":     {"media", "audio"},
	".cda":     {"media", "audio"},
	".mov":     {"media", "video"},
	".wmv":     {"media", "video"},
	".mp4":     {"media", "video"},
	".avi":     {"media", "video"},
	".flv":     {"media", "video"},
	".h264":    {"media", "video"},
	".mpg":     {"media", "video"},
	".mpeg":    {"media", "video"},
	".zip":     {"archive"},
	".tar":     {"archive"},
	".gz":      {"archive"},
	".tgz":     {"archive"},
	".7z":      {"archive"},
	".rar":     {"archive"},
	".dmg":     {"archive"},
	".java":    {"code", "java"},
	".xml":     {"code", "xml"},
	".css":     {"code", "css", "web"},
	".html":    {"code", "html", "web"},
	".htm":     {"code", "html", "web"},
	".sh":      {"code", "scripts"},
	".py":      {"code", "python"},
	".go":      {"code", "go"},
	".sql":     {"code", "sql"},
	".json":    {"code", "javascript"},
	".js":      {"code", "javascript", "web"},
}

// IndexPath walks pathToIndex recursively and creates a store entry,
// tagged by inferred extension, for every file found that isn't
// already present under that name.
func IndexPath(pathToIndex string, dbPath string) error {
	eng, err := engine.Open(dbPath)
	if err != nil {
		return err
	}
	defer eng.Close()
	return indexLocalDirectory(eng, pathToIndex)
}

func indexLocalDirectory(eng *engine.Engine, pathToIndex string) error {
	return filepath.Walk(pathToIndex, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if kind, _, lookupErr := eng.Resolve(nil, name); lookupErr == nil && kind == engine.KindFile {
			return nil // already indexed under this name
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("could not read %s: %v", path, err)
			return nil
		}
		tags := inferTagsFromFile(path)
		id, err := eng.Create(tags, name, uint32(info.Mode().Perm()), 0, 0)
		if err != nil {
			log.Printf("could not index %s: %v", path, err)
			return nil
		}
		if err := eng.Write(id, content); err != nil {
			log.Printf("could not write content for %s: %v", path, err)
		}
		return nil
	})
}

// inferTagsFromFile infers tags to attribute to a file based on its
// extension, falling back to defaultTag when the extension is
// unrecognized.
func inferTagsFromFile(path string) []string {
	extension := strings.ToLower(filepath.Ext(path))
	if tags, ok := extensionToTagMap[extension]; ok {
		return tags
	}
	return []string{defaultTag}
}
