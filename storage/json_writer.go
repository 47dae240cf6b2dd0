package storage

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"

	"lead-scraper/models"
)

// JSONWriter writes a run's leads as one indented JSON array. Each call to
// Write replaces the file contents, so an empty run still leaves "[]".
type JSONWriter struct {
	mu   sync.Mutex
	file *os.File
}

func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "json")
	}
	return &JSONWriter{file: f}, nil
}

func (j *JSONWriter) Write(leads []*models.Lead) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if leads == nil {
		leads = []*models.Lead{}
	}
	if err := j.file.Truncate(0); err != nil {
		return eris.Wrap(err, "json: truncate")
	}
	if _, err := j.file.Seek(0, 0); err != nil {
		return eris.Wrap(err, "json: seek")
	}

	enc := json.NewEncoder(j.file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(leads); err != nil {
		return eris.Wrap(err, "json: encode leads")
	}
	return nil
}

func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
