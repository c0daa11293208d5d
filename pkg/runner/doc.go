// Package runner orchestrates one export of a Weibo following list.
//
// A Runner owns the run session: it rejects overlapping invocations, creates
// a fresh dedup store for each run, and drives the stages in order:
//
//   - harvest the candidate surface until the limit, a stall at the end of the
//     list, or the tick budget stops it
//   - optionally fetch and embed every avatar through the bounded pool
//   - render the HTML document and save it under a deterministic name
//
// Failures anywhere in that sequence, panics included, are reported as a
// single "Error occurred" observation and returned as an errors.ErrorTypeRun
// error. The runner is idle again afterwards.
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	cfg.Browser.URL = "https://weibo.com/u/page/follow/1234567890"
//
//	mgr, _ := storage.NewManager(cfg.Output.BaseDirectory)
//	client := fetcher.NewClient(fetcher.Options{Timeout: cfg.Enrich.FetchTimeout}, nil)
//	r := runner.New(cfg, runner.BrowserOpener(cfg, nil), mgr, client, ui.NewStatusLine(os.Stdout, false), nil)
//
//	summary, err := r.Run(ctx, runner.Options{WithResources: true, Limit: 100})
package runner
