package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"lead-scraper/models"
	"lead-scraper/utils"
)

// ErrNotFound is returned when no lead exists for a maps link.
var ErrNotFound = eris.New("storage: lead not found")

// LeadStore persists leads keyed by their canonical maps link. The same SQL
// runs on PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3).
//
// Ownership rules: contact_status, last_contacted, notes and scraped_at are
// written by the pipeline only when a row is created. Afterwards only the
// CRM methods change them. Every other column belongs to the pipeline and is
// overwritten on each upsert, including with empty values.
type LeadStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// StoreOption customises a LeadStore.
type StoreOption func(*LeadStore)

// WithClock replaces the clock used for scraped_at and updated_at.
func WithClock(now func() time.Time) StoreOption {
	return func(s *LeadStore) { s.now = now }
}

// WithAttempts sets how many times a single-record write is tried.
func WithAttempts(attempts int, baseDelay time.Duration) StoreOption {
	return func(s *LeadStore) {
		s.retry.MaxAttempts = attempts
		s.retry.BaseDelay = baseDelay
	}
}

// Open connects to the database, runs schema migrations, and returns a
// ready-to-use LeadStore. driver is "postgres" or "sqlite3".
func Open(ctx context.Context, driver, dsn string, logger *utils.Logger, opts ...StoreOption) (*LeadStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: open %s", driver)
	}

	s := &LeadStore{
		db:     db,
		driver: driver,
		now:    time.Now,
		retry: &utils.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			Logger:      logger,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.connect(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "storage: migrate")
	}
	return s, nil
}

func (s *LeadStore) connect(ctx context.Context) error {
	switch s.driver {
	case "sqlite3":
		// One connection serialises writers inside this process; the busy
		// timeout covers the CRM process writing the same file.
		s.db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			`PRAGMA journal_mode = WAL;`,
			`PRAGMA busy_timeout = 5000;`,
		} {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				s.logger.Warn("[store] %s failed: %v", strings.TrimSuffix(pragma, ";"), err)
			}
		}
		return nil
	default:
		ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: s.logger}
		err := ping.Do(ctx, "postgres-ping", func() error {
			return s.db.PingContext(ctx)
		})
		return eris.Wrap(err, "storage: connect")
	}
}

func (s *LeadStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS leads (
			maps_link       TEXT PRIMARY KEY,
			name            TEXT NOT NULL DEFAULT '',
			address         TEXT NOT NULL DEFAULT '',
			phone           TEXT NOT NULL DEFAULT '',
			website         TEXT NOT NULL DEFAULT '',
			rating          DOUBLE PRECISION,
			review_count    INTEGER,
			category        TEXT NOT NULL DEFAULT '',
			photo_url       TEXT NOT NULL DEFAULT '',
			photo_count     INTEGER NOT NULL DEFAULT 0,
			has_description BOOLEAN NOT NULL DEFAULT FALSE,
			has_services    BOOLEAN NOT NULL DEFAULT FALSE,
			owner_responds  BOOLEAN NOT NULL DEFAULT FALSE,
			newest_review   TEXT NOT NULL DEFAULT '',
			has_hours       BOOLEAN NOT NULL DEFAULT FALSE,
			lead_score      INTEGER NOT NULL DEFAULT 0,
			score_reasons   TEXT NOT NULL DEFAULT '',
			contact_status  TEXT NOT NULL DEFAULT 'new',
			last_contacted  DATE,
			notes           TEXT,
			query           TEXT NOT NULL DEFAULT '',
			scraped_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_leads_score  ON leads(lead_score);
		CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(contact_status);
	`)
	return err
}

// timestamp returns the store clock's current time in the precision both
// backends keep.
func (s *LeadStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// upsertSQL inserts a new lead with CRM defaults, or refreshes the
// pipeline-owned columns of an existing one. contact_status, last_contacted,
// notes and scraped_at are absent from the update list.
const upsertSQL = `
	INSERT INTO leads (
		maps_link, name, address, phone, website, rating, review_count, category, photo_url,
		photo_count, has_description, has_services, owner_responds, newest_review, has_hours,
		lead_score, score_reasons, query, contact_status, scraped_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9,
		$10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21
	)
	ON CONFLICT (maps_link) DO UPDATE SET
		name            = excluded.name,
		address         = excluded.address,
		phone           = excluded.phone,
		website         = excluded.website,
		rating          = excluded.rating,
		review_count    = excluded.review_count,
		category        = excluded.category,
		photo_url       = excluded.photo_url,
		photo_count     = excluded.photo_count,
		has_description = excluded.has_description,
		has_services    = excluded.has_services,
		owner_responds  = excluded.owner_responds,
		newest_review   = excluded.newest_review,
		has_hours       = excluded.has_hours,
		lead_score      = excluded.lead_score,
		score_reasons   = excluded.score_reasons,
		query           = excluded.query,
		updated_at      = excluded.updated_at`

// Upsert inserts or refreshes one lead in its own transaction, retrying
// according to the store's attempt budget. It reports whether a new row was
// created.
func (s *LeadStore) Upsert(ctx context.Context, lead *models.Lead, query string) (bool, error) {
	if strings.TrimSpace(lead.MapsLink) == "" {
		return false, eris.Errorf("storage: lead %q has no maps link", lead.Name)
	}

	var created bool
	err := s.retry.Do(ctx, "upsert "+lead.MapsLink, func() error {
		var err error
		created, err = s.upsertOnce(ctx, lead, query)
		return err
	})
	return created, err
}

func (s *LeadStore) upsertOnce(ctx context.Context, lead *models.Lead, query string) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "storage: begin upsert")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE maps_link = $1`, lead.MapsLink).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return false, eris.Wrap(err, "storage: look up lead")
	}

	now := s.timestamp()
	_, err = tx.ExecContext(ctx, upsertSQL,
		lead.MapsLink, lead.Name, lead.Address, lead.Phone, lead.Website,
		nullFloat(lead.Rating), nullInt(lead.ReviewCount), lead.Category, lead.PhotoURL,
		lead.PhotoCount, lead.HasDescription, lead.HasServices, lead.OwnerResponds,
		lead.NewestReview, lead.HasHours,
		lead.LeadScore, lead.ScoreReasons, query, string(models.StatusNew), now, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "storage: upsert lead")
	}

	if err = tx.Commit(); err != nil {
		return false, eris.Wrap(err, "storage: commit upsert")
	}
	return created, nil
}

// UpsertResult counts what UpsertAll did.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// UpsertAll upserts leads in order, one transaction per lead. It stops at
// the first lead that still fails after retries; leads before it remain
// committed.
func (s *LeadStore) UpsertAll(ctx context.Context, leads []*models.Lead, query string) (UpsertResult, error) {
	var res UpsertResult
	for i, l := range leads {
		created, err := s.Upsert(ctx, l, query)
		if err != nil {
			return res, eris.Wrapf(err, "storage: stopped at lead %d of %d (%s)", i+1, len(leads), l.MapsLink)
		}
		if created {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	s.logger.Info("[store] Upserted %d leads (%d new, %d updated)", len(leads), res.Inserted, res.Updated)
	return res, nil
}

const leadColumns = `
	maps_link, name, address, phone, website, rating, review_count, category, photo_url,
	photo_count, has_description, has_services, owner_responds, newest_review, has_hours,
	lead_score, score_reasons, contact_status, last_contacted, notes, query, scraped_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		l             models.Lead
		rating        sql.NullFloat64
		reviewCount   sql.NullInt64
		status        string
		lastContacted sql.NullTime
		notes         sql.NullString
	)
	err := row.Scan(
		&l.MapsLink, &l.Name, &l.Address, &l.Phone, &l.Website, &rating, &reviewCount, &l.Category, &l.PhotoURL,
		&l.PhotoCount, &l.HasDescription, &l.HasServices, &l.OwnerResponds, &l.NewestReview, &l.HasHours,
		&l.LeadScore, &l.ScoreReasons, &status, &lastContacted, &notes, &l.Query, &l.ScrapedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		l.Rating = &rating.Float64
	}
	if reviewCount.Valid {
		n := int(reviewCount.Int64)
		l.ReviewCount = &n
	}
	l.ContactStatus = models.ContactStatus(status)
	if lastContacted.Valid {
		d := lastContacted.Time.UTC()
		l.LastContacted = &d
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	l.ScrapedAt = l.ScrapedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

// Get returns the lead stored for link.
func (s *LeadStore) Get(ctx context.Context, link string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE maps_link = $1`, link)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "%s", link)
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: get lead")
	}
	return l, nil
}

// ListByScore returns every lead, highest score first.
func (s *LeadStore) ListByScore(ctx context.Context) ([]*models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY lead_score DESC, name ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "storage: list leads")
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "storage: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "storage: iterate leads")
}

// UpdateContact applies a CRM edit to one lead and advances updated_at.
// An empty note clears the notes column.
func (s *LeadStore) UpdateContact(ctx context.Context, u models.ContactUpdate) (err error) {
	status, err := models.ParseContactStatus(string(u.Status))
	if err != nil {
		return err
	}

	var lastContacted any
	if u.LastContacted != nil {
		lastContacted = u.LastContacted.UTC().Truncate(24 * time.Hour)
	}
	var notes any
	if u.Notes != nil && *u.Notes != "" {
		notes = *u.Notes
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "storage: begin update")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE leads SET contact_status = $1, last_contacted = $2, notes = $3, updated_at = $4
		 WHERE maps_link = $5`,
		string(status), lastContacted, notes, s.timestamp(), u.MapsLink,
	)
	if err != nil {
		return eris.Wrap(err, "storage: update contact")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "storage: update contact")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", u.MapsLink)
	}
	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "storage: commit update")
	}
	return nil
}

// Delete removes the leads with the given links in one transaction and
// returns how many rows went away.
func (s *LeadStore) Delete(ctx context.Context, links []string) (n int64, err error) {
	if len(links) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(links))
	args := make([]any, len(links))
	for i, link := range links {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = link
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "storage: begin delete")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM leads WHERE maps_link IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return 0, eris.Wrap(err, "storage: delete leads")
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, eris.Wrap(err, "storage: delete leads")
	}
	if err = tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "storage: commit delete")
	}
	return n, nil
}

func (s *LeadStore) Close() error {
	return s.db.Close()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
