package storage

import (
	"context"

	"lead-scraper/models"
)

// LeadWriter is what the scrape pipeline needs from the reconciliation store.
type LeadWriter interface {
	UpsertAll(ctx context.Context, leads []*models.Lead, query string) (UpsertResult, error)
	Close() error
}

// LeadRepository is the consumer surface used by the CRM backend. Each
// method maps directly onto the leads table with no pipeline involvement.
type LeadRepository interface {
	ListByScore(ctx context.Context) ([]*models.Lead, error)
	Get(ctx context.Context, link string) (*models.Lead, error)
	UpdateContact(ctx context.Context, u models.ContactUpdate) error
	Delete(ctx context.Context, links []string) (int64, error)
}

// ExportWriter emits one run's output leads to a file.
type ExportWriter interface {
	Write(leads []*models.Lead) error
	Close() error
}

var (
	_ LeadWriter     = (*LeadStore)(nil)
	_ LeadRepository = (*LeadStore)(nil)
	_ ExportWriter   = (*CSVWriter)(nil)
	_ ExportWriter   = (*JSONWriter)(nil)
)
