package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rotisserie/eris"
)

// Supported values for LEADS_DB_DRIVER.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DefaultTextTemplate is the outbound message used by the CRM when
// TEXT_TEMPLATE is unset. [NAME] is replaced with the lead's first name.
const DefaultTextTemplate = "Hi [NAME], I took a quick look at your Google listing and noticed a few " +
	"areas that may be limiting visibility and reviews. Mostly easy fixes that can make a real " +
	"difference. I offer a free quick audit showing specific improvements. If you'd like, I can " +
	"send the report today, no obligation."

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Lead store
	DBDriver string `envconfig:"LEADS_DB_DRIVER" default:"sqlite3"`
	DBPath   string `envconfig:"LEADS_DB_PATH" default:"leads.db"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"scraper"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"scraper123"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"leads_db"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// StoreAttempts is how many times a single record upsert is tried before
	// the run gives up.
	StoreAttempts int `envconfig:"STORE_ATTEMPTS" default:"2"`

	OutputDir string `envconfig:"OUTPUT_DIR" default:"./output"`

	// Browser
	ChromeBin        string        `envconfig:"CHROME_BIN"`
	Headless         bool          `envconfig:"HEADLESS" default:"true"`
	NavAttempts      int           `envconfig:"NAV_ATTEMPTS" default:"2"`
	ResultsTimeout   time.Duration `envconfig:"RESULTS_TIMEOUT" default:"15s"`
	DetailTimeout    time.Duration `envconfig:"DETAIL_TIMEOUT" default:"10s"`
	ConsentWait      time.Duration `envconfig:"CONSENT_WAIT" default:"2s"`
	DebugCapturePath string        `envconfig:"DEBUG_CAPTURE_PATH" default:"/tmp/scraper_debug.png"`

	// Pacing. Every delay is base plus a random extra of up to its jitter.
	ScrollDelay     time.Duration `envconfig:"SCROLL_DELAY" default:"1500ms"`
	ScrollJitter    time.Duration `envconfig:"SCROLL_JITTER" default:"1s"`
	SettleDelay     time.Duration `envconfig:"SETTLE_DELAY" default:"1500ms"`
	SettleJitter    time.Duration `envconfig:"SETTLE_JITTER" default:"750ms"`
	ListingDelay    time.Duration `envconfig:"LISTING_DELAY" default:"2s"`
	ListingJitter   time.Duration `envconfig:"LISTING_JITTER" default:"1500ms"`
	MaxStaleScrolls int           `envconfig:"MAX_STALE_SCROLLS" default:"5"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CRM backend
	CRMAddr      string        `envconfig:"CRM_ADDR" default:":8080"`
	PendingTTL   time.Duration `envconfig:"PENDING_TTL" default:"0s"`
	TextTemplate string        `envconfig:"TEXT_TEMPLATE"`
}

// Load reads the .env file (if any) and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("[config] .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, eris.Wrap(err, "config: process environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TextTemplate == "" {
		cfg.TextTemplate = DefaultTextTemplate
	}
	return &cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return eris.Errorf("config: unsupported LEADS_DB_DRIVER %q", c.DBDriver)
	}
	if c.StoreAttempts < 1 {
		return eris.Errorf("config: STORE_ATTEMPTS must be at least 1, got %d", c.StoreAttempts)
	}
	if c.MaxStaleScrolls < 1 {
		return eris.Errorf("config: MAX_STALE_SCROLLS must be at least 1, got %d", c.MaxStaleScrolls)
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.PostgresHost, c.PostgresPort, c.PostgresUser,
			c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
	}
	return c.DBPath
}

// StoreLocation describes where leads are persisted, for run summaries.
func (c *Config) StoreLocation() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("postgres://%s@%s:%s/%s", c.PostgresUser, c.PostgresHost, c.PostgresPort, c.PostgresDB)
	}
	return c.DBPath
}
