package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"lead-scraper/utils"
)

// Browser is the page-driving surface the scraper needs. Every read of page
// content goes through Snapshot, so extraction logic only ever sees parsed HTML.
type Browser interface {
	// Navigate loads url in the current tab.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches an element, or fails with
	// ErrNavigationTimeout once timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// DismissConsent clicks a cookie/consent accept button if one is shown.
	DismissConsent(ctx context.Context) (bool, error)
	// ScrollFeed scrolls the first element matching one of selectors to its
	// bottom. It reports false when none of them is present.
	ScrollFeed(ctx context.Context, selectors []string) (bool, error)
	// Count returns how many elements currently match selector.
	Count(ctx context.Context, selector string) (int, error)
	// Snapshot returns the current document.
	Snapshot(ctx context.Context) (*goquery.Document, error)
	// Capture writes a screenshot to path and the page HTML next to it.
	Capture(ctx context.Context, path string) error
	Close()
}

// BrowserOptions configures a ChromeBrowser.
type BrowserOptions struct {
	ChromeBin string
	Headless  bool
	UserAgent string
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeBrowser drives a single Chrome tab through chromedp.
type ChromeBrowser struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *utils.Logger
}

// NewChromeBrowser launches Chrome and opens one tab.
func NewChromeBrowser(opts BrowserOptions, logger *utils.Logger) (*ChromeBrowser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[maps] Using browser binary: %s", chromeBin)

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(ua),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Running with no actions starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "maps: start browser")
	}

	return &ChromeBrowser{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}, nil
}

// run executes actions on the tab. The actions stop when ctx is cancelled or
// when timeout (if positive) elapses.
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(b.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(b.tabCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(err, "maps: navigate %s", url)
	}
	return nil
}

func (b *ChromeBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := b.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return eris.Wrapf(ErrNavigationTimeout, "%s not ready after %s", selector, timeout)
	}
	return eris.Wrapf(err, "maps: wait for %s", selector)
}

// consentScript clicks the first visible accept button of a cookie or consent
// dialog. Labels cover the regions Google serves consent pages in.
const consentScript = `(() => {
	const words = ["accept all", "reject all", "alles accepteren", "alles afwijzen",
		"tout accepter", "alle akzeptieren", "aceptar todo", "accept"];
	const buttons = document.querySelectorAll(
		'form[action*="consent"] button, div[role="dialog"] button, button');
	for (const w of words) {
		for (const btn of buttons) {
			const t = (btn.textContent || '').replace(/\s+/g, ' ').trim().toLowerCase();
			if (t.includes(w)) {
				btn.click();
				return true;
			}
		}
	}
	return false;
})()`

func (b *ChromeBrowser) DismissConsent(ctx context.Context) (bool, error) {
	var clicked bool
	if err := b.run(ctx, 10*time.Second, chromedp.Evaluate(consentScript, &clicked)); err != nil {
		return false, eris.Wrap(err, "maps: dismiss consent")
	}
	return clicked, nil
}

func (b *ChromeBrowser) ScrollFeed(ctx context.Context, selectors []string) (bool, error) {
	list, err := json.Marshal(selectors)
	if err != nil {
		return false, eris.Wrap(err, "maps: encode feed selectors")
	}
	script := fmt.Sprintf(`(() => {
		for (const sel of %s) {
			const feed = document.querySelector(sel);
			if (feed) {
				feed.scrollTop = feed.scrollHeight;
				return true;
			}
		}
		return false;
	})()`, list)

	var found bool
	if err := b.run(ctx, 10*time.Second, chromedp.Evaluate(script, &found)); err != nil {
		return false, eris.Wrap(err, "maps: scroll feed")
	}
	return found, nil
}

func (b *ChromeBrowser) Count(ctx context.Context, selector string) (int, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return 0, eris.Wrap(err, "maps: encode selector")
	}
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%s).length`, quoted)
	if err := b.run(ctx, 10*time.Second, chromedp.Evaluate(script, &n)); err != nil {
		return 0, eris.Wrapf(err, "maps: count %s", selector)
	}
	return n, nil
}

func (b *ChromeBrowser) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var raw string
	if err := b.run(ctx, 30*time.Second, chromedp.OuterHTML("html", &raw, chromedp.ByQuery)); err != nil {
		return nil, eris.Wrap(err, "maps: snapshot page")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "maps: parse snapshot")
	}
	return doc, nil
}

func (b *ChromeBrowser) Capture(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "maps: create capture dir")
	}

	var (
		png  []byte
		html string
	)
	err := b.run(ctx, 30*time.Second,
		chromedp.CaptureScreenshot(&png),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return eris.Wrap(err, "maps: capture page")
	}

	if err := os.WriteFile(path, png, 0o644); err != nil {
		return eris.Wrap(err, "maps: write screenshot")
	}
	if err := os.WriteFile(htmlCapturePath(path), []byte(html), 0o644); err != nil {
		return eris.Wrap(err, "maps: write html dump")
	}
	return nil
}

// Close shuts down the tab and the browser process.
func (b *ChromeBrowser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// htmlCapturePath returns the companion .html path for a screenshot path.
func htmlCapturePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
