// Package maps drives a map-search results page and the listing detail pages
// behind it, turning them into scored-ready lead records.
package maps

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"lead-scraper/config"
	"lead-scraper/models"
	"lead-scraper/utils"
)

var (
	// ErrNoResults means the search produced no listing anchors. It is fatal
	// for the run.
	ErrNoResults = eris.New("maps: no search results")
	// ErrNavigationTimeout means a page did not become ready in time.
	ErrNavigationTimeout = eris.New("maps: navigation timeout")
)

// Scraper orchestrates the two-phase scrape: search-result collection, then
// sequential detail-page enrichment.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	browser Browser
	retry   *utils.RetryConfig

	scrollPacer  *utils.Pacer
	listingPacer *utils.Pacer
}

// New creates a Scraper driving browser.
func New(cfg *config.Config, logger *utils.Logger, browser Browser) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		browser: browser,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.NavAttempts,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		scrollPacer:  utils.NewPacer(cfg.ScrollDelay, cfg.ScrollJitter),
		listingPacer: utils.NewPacer(cfg.ListingDelay, cfg.ListingJitter),
	}
}

// Scrape runs both phases for query and returns one lead per collected stub.
func (s *Scraper) Scrape(ctx context.Context, query string, max int) ([]*models.Lead, error) {
	s.logger.Info("[maps] Phase 1: Loading search results...")
	stubs, err := s.Collect(ctx, query, max)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[maps] Phase 1 complete: %d listings collected", len(stubs))

	s.logger.Info("[maps] Phase 2: Scraping detail pages...")
	leads, err := s.Enrich(ctx, stubs)
	if err != nil {
		return leads, err
	}
	s.logger.Info("[maps] Phase 2 complete")
	return leads, nil
}

// Collect loads the results page for query, scrolls the feed until it stops
// growing or holds max listings, and returns the deduplicated stubs.
func (s *Scraper) Collect(ctx context.Context, query string, max int) ([]models.StubListing, error) {
	searchURL := SearchURL(query)
	s.logger.Info("[collector] Query: %s", query)
	s.logger.Debug("[collector] Search URL: %s", searchURL)

	err := s.retry.Do(ctx, "load-search", func() error {
		return s.browser.Navigate(ctx, searchURL)
	})
	if err != nil {
		return nil, err
	}

	s.dismissConsent(ctx)

	if err := s.browser.WaitFor(ctx, resultAnchorSelector, s.cfg.ResultsTimeout); err != nil {
		if !errors.Is(err, ErrNavigationTimeout) {
			return nil, err
		}
		s.logger.Error("[collector] No search results loaded. Google may be blocking or the query returned no results.")
		s.captureDiagnostics(ctx)
		return nil, eris.Wrapf(ErrNoResults, "query %q", query)
	}
	if err := utils.SleepContext(ctx, s.cfg.SettleDelay); err != nil {
		return nil, err
	}

	s.logger.Info("[collector] Scrolling to load more listings...")
	if err := s.scrollResults(ctx, max); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("[collector] Scrolling stopped early: %v", err)
	}

	doc, err := s.browser.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stubs := CollectStubs(doc.Selection, max)
	if len(stubs) == 0 {
		s.logger.Error("[collector] No listings found on the results page")
		s.captureDiagnostics(ctx)
		return nil, eris.Wrapf(ErrNoResults, "query %q", query)
	}
	return stubs, nil
}

func (s *Scraper) dismissConsent(ctx context.Context) {
	clicked, err := s.browser.DismissConsent(ctx)
	if err != nil {
		s.logger.Debug("[collector] Consent check failed: %v", err)
		return
	}
	if clicked {
		s.logger.Info("[collector] Dismissed consent dialog")
		_ = utils.SleepContext(ctx, s.cfg.ConsentWait)
	}
}

// scrollResults scrolls the results feed until no new anchors appear for
// MaxStaleScrolls consecutive rounds, or until max anchors are visible.
func (s *Scraper) scrollResults(ctx context.Context, max int) error {
	lastCount, staleRounds := 0, 0
	for staleRounds < s.cfg.MaxStaleScrolls {
		found, err := s.browser.ScrollFeed(ctx, feedSelectors)
		if err != nil {
			return err
		}
		if !found {
			s.logger.Warn("[collector] Could not find results feed panel to scroll")
			return nil
		}
		if err := s.scrollPacer.Wait(ctx); err != nil {
			return err
		}

		count, err := s.browser.Count(ctx, resultAnchorSelector)
		if err != nil {
			return err
		}
		s.logger.Info("[collector] Scrolled, %d listings visible", count)

		if count >= max {
			return nil
		}
		if count == lastCount {
			staleRounds++
		} else {
			staleRounds = 0
		}
		lastCount = count
	}
	s.logger.Debug("[collector] Feed stopped growing after %d stale rounds", staleRounds)
	return nil
}

// Enrich visits each stub's detail page in turn. A listing whose page fails to
// load keeps its stub fields and default signals and is still returned.
func (s *Scraper) Enrich(ctx context.Context, stubs []models.StubListing) ([]*models.Lead, error) {
	leads := make([]*models.Lead, 0, len(stubs))
	for i, stub := range stubs {
		if i > 0 {
			if err := s.listingPacer.Wait(ctx); err != nil {
				return leads, err
			}
		}

		lead := models.NewLead(stub)
		s.logger.Info("[enricher] [%d/%d] %s", i+1, len(stubs), stub.Name)

		if err := s.enrichOne(ctx, lead); err != nil {
			if ctx.Err() != nil {
				return leads, ctx.Err()
			}
			if errors.Is(err, ErrNavigationTimeout) {
				s.logger.Warn("[enricher] Detail page timed out, keeping stub data: %s", stub.Name)
			} else {
				s.logger.Warn("[enricher] Failed to get details for %s: %v", stub.Name, err)
			}
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (s *Scraper) enrichOne(ctx context.Context, lead *models.Lead) error {
	if err := s.browser.Navigate(ctx, lead.MapsLink); err != nil {
		return err
	}
	if err := s.browser.WaitFor(ctx, mainSelector, s.cfg.DetailTimeout); err != nil {
		return err
	}
	if err := utils.SleepContext(ctx, utils.RandomDelay(s.cfg.SettleDelay, s.cfg.SettleJitter)); err != nil {
		return err
	}

	doc, err := s.browser.Snapshot(ctx)
	if err != nil {
		return err
	}
	EnrichLead(doc.Selection, lead)
	return nil
}

// captureDiagnostics saves a screenshot and HTML dump of the current page.
func (s *Scraper) captureDiagnostics(ctx context.Context) {
	path := s.cfg.DebugCapturePath
	if path == "" {
		return
	}
	if err := s.browser.Capture(ctx, path); err != nil {
		s.logger.Warn("[collector] Could not save diagnostic capture: %v", err)
		return
	}
	s.logger.Error("[collector] Screenshot saved to %s for debugging (HTML at %s)", path, htmlCapturePath(path))
}
