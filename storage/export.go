package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a search query and collapses every run of characters
// outside [a-z0-9] into a single underscore.
func Slug(query string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(query), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "leads"
	}
	return s
}

// OutputPaths returns the JSON and CSV paths for a run started at t:
// <dir>/<slug>_<YYYYMMDD_HHMMSS>.json and .csv.
func OutputPaths(dir, query string, t time.Time) (jsonPath, csvPath string) {
	base := Slug(query) + "_" + t.Format("20060102_150405")
	return filepath.Join(dir, base+".json"), filepath.Join(dir, base+".csv")
}

// createFile creates (or truncates) path, making intermediate directories.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create file %q", path)
	}
	return f, nil
}
