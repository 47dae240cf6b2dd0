package storage

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"lead-scraper/models"
)

// csvColumns is the fixed export order: scoring first, then contact
// details, then the quality signals.
var csvColumns = []string{
	"lead_score", "score_reasons",
	"name", "address", "phone", "website",
	"rating", "review_count", "category",
	"photo_count", "has_description", "has_services",
	"owner_responds", "newest_review", "has_hours",
	"maps_link", "photo_url",
}

// CSVWriter writes leads as a spreadsheet-friendly table.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv")
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "csv: write header")
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per lead in the order given.
func (c *CSVWriter) Write(leads []*models.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range leads {
		if err := c.writer.Write(csvRow(l)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func csvRow(l *models.Lead) []string {
	rating := ""
	if l.Rating != nil {
		rating = strconv.FormatFloat(*l.Rating, 'f', -1, 64)
	}
	reviews := ""
	if l.ReviewCount != nil {
		reviews = strconv.Itoa(*l.ReviewCount)
	}
	return []string{
		strconv.Itoa(l.LeadScore),
		l.ScoreReasons,
		l.Name,
		l.Address,
		l.Phone,
		l.Website,
		rating,
		reviews,
		l.Category,
		strconv.Itoa(l.PhotoCount),
		strconv.FormatBool(l.HasDescription),
		strconv.FormatBool(l.HasServices),
		strconv.FormatBool(l.OwnerResponds),
		l.NewestReview,
		strconv.FormatBool(l.HasHours),
		l.MapsLink,
		l.PhotoURL,
	}
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
