package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"followexport/pkg/config"
	"followexport/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	quiet         bool
	notifications bool
	pageURL       string
	outputDir     string
	headless      bool
	userDataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "followexport",
	Short: "Export a Weibo following list to a searchable HTML page",
	Long: `followexport scrolls the Weibo following page in Chrome, collects every
followed account it sees and writes a single self-contained HTML document
with a search box and a light/dark theme toggle.

Two exports are available:
  - export          avatar links only, small output
  - export-avatars  avatars fetched and embedded as base64

Configuration is read from, in order of increasing priority:
  - Default values
  - Configuration file (.followexport.yaml)
  - .env file and FOLLOWEXPORT_* environment variables
  - Command line flags`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is ./.followexport.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "print only the final result")
	pf.BoolVar(&notifications, "notify", false, "send a desktop notification when the export ends")
	pf.StringVarP(&pageURL, "url", "u", "", "Weibo following page to open")
	pf.StringVarP(&outputDir, "output", "o", "", "directory the HTML file is written to")
	pf.BoolVar(&headless, "headless", config.DefaultConfig().Browser.Headless, "run Chrome without a window")
	pf.StringVar(&userDataDir, "user-data-dir", "", "Chrome profile directory holding the Weibo login")

	rootCmd.SetVersionTemplate(`followexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandLineFlags collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects.
func commandLineFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if pageURL != "" {
		flags["url"] = pageURL
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if userDataDir != "" {
		flags["user-data-dir"] = userDataDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	return flags
}
