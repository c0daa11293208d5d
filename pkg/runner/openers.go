package runner

import (
	"context"

	"followexport/pkg/config"
	"followexport/pkg/logger"
	"followexport/pkg/surface"
)

// Selectors converts configured selectors for the surface package
func Selectors(c config.SelectorConfig) surface.Selectors {
	return surface.Selectors{
		Card:        c.Card,
		Name:        c.Name,
		Avatar:      c.Avatar,
		Description: c.Description,
	}
}

// BrowserOpener launches Chrome on the configured following page for each
// run and closes it afterwards.
func BrowserOpener(cfg *config.Config, log logger.Logger) Opener {
	return func(ctx context.Context) (surface.Surface, func(), error) {
		b := surface.NewBrowser(browserConfig(cfg), log)
		if err := b.Open(ctx); err != nil {
			b.Close()
			return nil, nil, err
		}
		return b, b.Close, nil
	}
}

// SnapshotOpener reads a saved copy of the following page for each run
func SnapshotOpener(path string, sel surface.Selectors) Opener {
	return func(ctx context.Context) (surface.Surface, func(), error) {
		snap, err := surface.LoadSnapshot(path, sel)
		if err != nil {
			return nil, nil, err
		}
		return snap, nil, nil
	}
}

// StaticOpener hands out the same surface to every run
func StaticOpener(s surface.Surface) Opener {
	return func(ctx context.Context) (surface.Surface, func(), error) {
		return s, nil, nil
	}
}

// browserConfig keeps Chrome's own user agent unless browser.user_agent is set.
// The avatar fetch headers never leak into the browser.
func browserConfig(cfg *config.Config) surface.BrowserConfig {
	return surface.BrowserConfig{
		URL:               cfg.Browser.URL,
		Headless:          cfg.Browser.Headless,
		UserDataDir:       cfg.Browser.UserDataDir,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Selectors:         Selectors(cfg.Browser.Selectors),
	}
}
