package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"followexport/pkg/config"
	"followexport/pkg/logger"
	"followexport/pkg/models"
	"followexport/pkg/runner"
	"followexport/pkg/storage"
	"followexport/pkg/ui"
)

var (
	// Export command flags
	limit        int
	snapshotPath string
	concurrency  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the following list with avatar links only",
	Long: `Scroll the following page until the list ends, the limit is reached or the
tick budget runs out, then write an HTML page linking each avatar by URL.`,
	Example: `  # Export everyone you follow
  followexport export --url https://weibo.com/u/page/follow/1234567890

  # Stop after the first 200 accounts
  followexport export --limit 200

  # Build the page from a saved copy of the following page
  followexport export --snapshot ./following.html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, false)
	},
}

var exportAvatarsCmd = &cobra.Command{
	Use:   "export-avatars",
	Short: "Export the following list with avatars embedded",
	Long: `Same as export, but every avatar is downloaded and embedded in the page as a
base64 data URI so the file works offline. Avatars that fail to download are
left out of their card; the export still completes.`,
	Example: `  followexport export-avatars --limit 100 --concurrency 4`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, exportAvatarsCmd} {
		rootCmd.AddCommand(c)
		c.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of accounts to export (0 = no limit)")
		c.Flags().StringVar(&snapshotPath, "snapshot", "", "read cards from a saved HTML page instead of opening Chrome")
	}
	exportAvatarsCmd.Flags().IntVar(&concurrency, "concurrency", config.DefaultConfig().Enrich.MaxConcurrency, "number of avatars fetched at once")
}

func runExport(cmd *cobra.Command, withResources bool) error {
	if limit < 0 {
		return fmt.Errorf("--limit must be zero or a positive number, got %d", limit)
	}

	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("followexport starting")

	open, err := opener(cfg)
	if err != nil {
		return err
	}

	mgr, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}

	observers := ui.Multi{ui.NewStatusLine(os.Stdout, quiet)}
	if notifications {
		observers = append(observers, ui.NewNotifier())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(cfg, open, mgr, nil, observers, log)
	summary, err := r.Run(ctx, runner.Options{WithResources: withResources, Limit: limit})
	if err != nil {
		return err
	}

	printSummary(summary, mgr)
	return nil
}

func opener(cfg *config.Config) (runner.Opener, error) {
	if snapshotPath != "" {
		return runner.SnapshotOpener(snapshotPath, runner.Selectors(cfg.Browser.Selectors)), nil
	}
	if cfg.Browser.URL == "" {
		return nil, fmt.Errorf("no following page configured: pass --url or set FOLLOWEXPORT_URL")
	}
	return runner.BrowserOpener(cfg, logger.GetLogger()), nil
}

func printSummary(s models.RunSummary, mgr *storage.Manager) {
	if quiet {
		return
	}
	ui.PrintInfo("File", s.Path)
	ui.PrintInfo("Output directory", fmt.Sprintf("%s (%d exports)", mgr.GetOutputDir(), mgr.GetArtifactCount()))
	ui.PrintInfo("Accounts", fmt.Sprintf("%d", s.Count))
	if s.WithResources {
		ui.PrintInfo("Avatars embedded", fmt.Sprintf("%d/%d", s.Enriched, s.Count))
	}
	ui.PrintInfo("Stopped by", string(s.Reason))
}
