package surface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"followexport/pkg/errors"
	"followexport/pkg/logger"
	"followexport/pkg/models"
)

const atEndScript = `(() => {
  const s = document.scrollingElement || document.documentElement || document.body;
  return Math.ceil(s.scrollTop + window.innerHeight + 2) >= s.scrollHeight;
})()`

const advanceScriptFormat = `(() => {
  const s = document.scrollingElement || document.documentElement || document.body;
  s.scrollTop = Math.min(s.scrollTop + Math.floor(window.innerHeight * %g), s.scrollHeight);
  return s.scrollTop;
})()`

// BrowserConfig controls the Chrome instance driving the following page
type BrowserConfig struct {
	URL               string
	Headless          bool
	UserDataDir       string
	UserAgent         string
	NavigationTimeout time.Duration
	Selectors         Selectors
}

// Browser is a Surface backed by a real Chrome tab via the DevTools protocol.
// Reusing the user's own profile directory keeps the page logged in.
type Browser struct {
	cfg    BrowserConfig
	logger logger.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewBrowser creates an unopened browser surface
func NewBrowser(cfg BrowserConfig, log logger.Logger) *Browser {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	return &Browser{cfg: cfg, logger: log}
}

// Open launches Chrome and navigates to the following page. The browser lives
// until Close is called or ctx ends.
func (b *Browser) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tabCtx != nil {
		return nil
	}
	if b.cfg.URL == "" {
		return errors.New(errors.ErrorTypeSurface, "following page URL is required")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
	)
	if b.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.cfg.UserDataDir))
	}
	if b.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.logger.DebugWithFields("chromedp", map[string]interface{}{"detail": fmt.Sprintf(format, args...)})
	}))

	b.logger.InfoWithFields("Opening following page", map[string]interface{}{
		"url":      b.cfg.URL,
		"headless": b.cfg.Headless,
	})

	navCtx, navCancel := context.WithTimeout(tabCtx, b.cfg.NavigationTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(b.cfg.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return errors.Wrap(errors.ErrorTypeSurface, "failed to open following page", err)
	}

	b.allocCancel = allocCancel
	b.tabCtx = tabCtx
	b.tabCancel = tabCancel
	return nil
}

// Close shuts the tab and the browser process
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.tabCtx, b.tabCancel, b.allocCancel = nil, nil, nil
}

func (b *Browser) tab(ctx context.Context) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tabCtx == nil {
		return nil, errors.New(errors.ErrorTypeSurface, "browser is not open")
	}
	return b.tabCtx, nil
}

func (b *Browser) Sample(ctx context.Context) ([]models.Candidate, error) {
	tab, err := b.tab(ctx)
	if err != nil {
		return nil, err
	}

	var html string
	if err := chromedp.Run(tab, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeSurface, "failed to read page", err)
	}

	candidates, err := ParseCards(html, b.cfg.Selectors)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeSurface, "failed to parse page", err)
	}
	return candidates, nil
}

func (b *Browser) Advance(ctx context.Context, ratio float64) error {
	tab, err := b.tab(ctx)
	if err != nil {
		return err
	}

	var scrollTop float64
	if err := chromedp.Run(tab, chromedp.Evaluate(AdvanceScript(ratio), &scrollTop)); err != nil {
		return errors.Wrap(errors.ErrorTypeSurface, "failed to scroll", err)
	}
	return nil
}

func (b *Browser) AtEnd(ctx context.Context) (bool, error) {
	tab, err := b.tab(ctx)
	if err != nil {
		return false, err
	}

	var atEnd bool
	if err := chromedp.Run(tab, chromedp.Evaluate(atEndScript, &atEnd)); err != nil {
		return false, errors.Wrap(errors.ErrorTypeSurface, "failed to read scroll position", err)
	}
	return atEnd, nil
}

// AdvanceScript builds the scroll expression for ratio
func AdvanceScript(ratio float64) string {
	return fmt.Sprintf(advanceScriptFormat, ratio)
}
