package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"lead-scraper/config"
	"lead-scraper/models"
	"lead-scraper/scraper/maps"
	"lead-scraper/services"
	"lead-scraper/storage"
	"lead-scraper/utils"
)

const storeRetryDelay = 500 * time.Millisecond

type cliOptions struct {
	query    string
	max      int
	minScore int
	all      bool
}

// parseArgs accepts flags before or after the positional query. Multiple
// positional words are joined into one query.
func parseArgs(args []string, errOut io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("lead-scraper", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.IntVar(&opts.max, "max", 20, "maximum number of listings to collect")
	fs.IntVar(&opts.minScore, "min-score", 5, "only output leads scoring at least this much")
	fs.BoolVar(&opts.all, "all", false, "output every lead regardless of score")
	fs.Usage = func() {
		fmt.Fprintln(errOut, `usage: lead-scraper [--max N] [--min-score N] [--all] "<search query>"`)
		fs.PrintDefaults()
	}

	var words []string
	for {
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		if fs.NArg() == 0 {
			break
		}
		words = append(words, fs.Arg(0))
		args = fs.Args()[1:]
	}

	opts.query = strings.TrimSpace(strings.Join(words, " "))
	if opts.query == "" {
		fs.Usage()
		return opts, eris.New("a search query is required")
	}
	if opts.max < 1 {
		return opts, eris.Errorf("--max must be at least 1, got %d", opts.max)
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Invalid configuration: %v", err)
		return 1
	}

	logger, err := utils.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	logger = logger.With("run_id", uuid.NewString(), "query", opts.query)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Lead Scraper starting ===")
	logger.Info("Query: %q | max: %d | min score: %d | all: %v", opts.query, opts.max, opts.minScore, opts.all)

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DSN(), logger,
		storage.WithAttempts(cfg.StoreAttempts, storeRetryDelay))
	if err != nil {
		logger.Error("Failed to open lead store at %s: %v", cfg.StoreLocation(), err)
		if cfg.DBDriver == config.DriverPostgres {
			logger.Error("Make sure Docker is running: docker compose up -d")
		}
		return 1
	}
	defer store.Close()

	browser, err := maps.NewChromeBrowser(maps.BrowserOptions{
		ChromeBin: cfg.ChromeBin,
		Headless:  cfg.Headless,
	}, logger)
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		return 1
	}
	defer browser.Close()

	leads, err := maps.New(cfg, logger, browser).Scrape(ctx, opts.query, opts.max)
	switch {
	case errors.Is(err, maps.ErrNoResults):
		logger.Error("No results for %q. Diagnostic capture: %s", opts.query, cfg.DebugCapturePath)
		return 1
	case err != nil:
		logger.Error("Scrape failed: %v", err)
		return 1
	}

	leads = services.NewCleaner(logger).Clean(leads)
	services.ApplyScore(leads)
	services.SortByScore(leads)

	res, err := store.UpsertAll(ctx, leads, opts.query)
	if err != nil {
		logger.Error("Persistence failed after %d inserted, %d updated: %v", res.Inserted, res.Updated, err)
		return 1
	}
	logger.Info("[store] %d new leads, %d updated in %s", res.Inserted, res.Updated, cfg.StoreLocation())

	projection := services.Project(leads, opts.minScore, opts.all)
	jsonPath, csvPath := storage.OutputPaths(cfg.OutputDir, opts.query, time.Now())
	if err := writeExports(projection.Leads, jsonPath, csvPath); err != nil {
		logger.Error("Failed to write output files: %v", err)
		return 1
	}
	logger.Info("Saved %d leads to %s and %s", len(projection.Leads), jsonPath, csvPath)

	insightSvc := services.NewInsightService(logger)
	insightSvc.PrintRunSummary(os.Stdout, services.RunSummary{
		Query:         opts.query,
		JSONPath:      jsonPath,
		CSVPath:       csvPath,
		StoreLocation: cfg.StoreLocation(),
		Projection:    projection,
	})
	insightSvc.Print(os.Stdout, insightSvc.Generate(leads, opts.minScore))
	return 0
}

// writeExports writes the same leads to every output format.
func writeExports(leads []*models.Lead, jsonPath, csvPath string) error {
	jw, err := storage.NewJSONWriter(jsonPath)
	if err != nil {
		return err
	}
	cw, err := storage.NewCSVWriter(csvPath)
	if err != nil {
		_ = jw.Close()
		return err
	}

	for _, w := range []storage.ExportWriter{jw, cw} {
		if err := w.Write(leads); err != nil {
			_ = jw.Close()
			_ = cw.Close()
			return err
		}
	}
	if err := jw.Close(); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}
