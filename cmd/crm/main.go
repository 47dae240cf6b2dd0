// Command crm serves the lead-tracking JSON API over the lead store written
// by the scraper.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead-scraper/config"
	"lead-scraper/crm"
	"lead-scraper/storage"
	"lead-scraper/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("crm", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", "", "listen address (default CRM_ADDR)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Invalid configuration: %v", err)
		return 1
	}
	if *addr == "" {
		*addr = cfg.CRMAddr
	}

	logger, err := utils.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to open lead store at %s: %v", cfg.StoreLocation(), err)
		return 1
	}
	defer store.Close()

	handler := crm.NewHandler(store, crm.NewOutbox(cfg.PendingTTL), cfg.TextTemplate, logger)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("[crm] Listening on %s (database: %s)", *addr, cfg.StoreLocation())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("[crm] Server failed: %v", err)
		return 1
	}
	logger.Info("[crm] Stopped")
	return 0
}
