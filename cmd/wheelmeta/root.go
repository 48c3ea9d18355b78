// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wheelmeta/internal/config"
	"wheelmeta/internal/extract"
	"wheelmeta/internal/issue"
	"wheelmeta/internal/jsonstream"
	"wheelmeta/internal/locator"
	"wheelmeta/internal/storage"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level diagnostics on stderr.
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the configuration loaded by initRootConfig before RunE.
	cfg = config.DefaultConfig()

	// rootCmd is the base command; wheelmeta has no subcommands beyond
	// the standard completion/help surface.
	rootCmd = &cobra.Command{
		Use:   "wheelmeta <locator>...",
		Short: "Stream wheel METADATA from remote or local archives",
		Long: TitleStyle.Render("wheelmeta") + SubtitleStyle.Render(" - stream Python wheel metadata without full downloads") + `

wheelmeta opens each wheel archive as a random-access ZIP container,
reads just enough of it to locate the */METADATA entry, and writes a
single JSON object to stdout keyed by archive name. Remote wheels are
read with HTTP range requests; the archive body is never downloaded in
full. Results stream out as each wheel completes, not in input order.

Locators are http:// or https:// URLs, file:// URLs, or absolute
filesystem paths.

` + SubtitleStyle.Render("Examples:") + `
  wheelmeta https://files.pythonhosted.org/.../pkgA-1.0-py3-none-any.whl
  wheelmeta /tmp/a.whl file:///tmp/b.whl
  WHEELMETA_LOG_LEVEL=debug wheelmeta /tmp/a.whl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			locators, err := parseLocators(args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: ExitUsage, Err: err}
			}

			p := extractParams{
				stdout:   cmd.OutOrStdout(),
				logger:   newLogger(cmd.ErrOrStderr()),
				cfg:      cfg,
				locators: locators,
			}
			return runExtract(cmd.Context(), p)
		},
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug diagnostics on stderr")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/wheelmeta/config.toml)")
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. Called by main.main().
func Execute() {
	// Load .env if present so WHEELMETA_* variables can live in a
	// project dotenv.
	_ = godotenv.Load()

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads configuration from file and environment. Config
// problems are surfaced as warnings; the run continues on defaults.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded
}

// formatErrorForDisplay renders actionable errors with their
// suggestions; other errors fall back to their plain message.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// parseLocators parses every argument up front. Any malformed locator
// aborts the run before a single fetch starts.
func parseLocators(args []string) ([]locator.Locator, error) {
	locators := make([]locator.Locator, 0, len(args))
	for _, arg := range args {
		l, err := locator.Parse(arg)
		if err != nil {
			return nil, err
		}
		locators = append(locators, l)
	}
	return locators, nil
}

// newLogger builds the stderr logger used for fetch diagnostics and
// the storage instrumentation layer.
func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(cfg.Level())
	}
	return logger
}

// extractParams bundles the dependencies for one extraction run,
// keeping runExtract testable without a Cobra command.
type extractParams struct {
	stdout   io.Writer
	logger   *log.Logger
	cfg      *config.Config
	locators []locator.Locator
}

// runExtract is the core flow: fan the locators out through the
// orchestrator, stream each completed result into the JSON encoder the
// moment it arrives, and close the object cleanly no matter what
// failed.
//
// Failed locators are logged and omitted from the object; when any
// failed the process exits non-zero after the object is complete.
func runExtract(ctx context.Context, p extractParams) error {
	resolver := storage.NewResolver(
		storage.WithLogger(p.logger),
		storage.WithHTTPClient(&http.Client{Timeout: p.cfg.HTTP.Timeout}),
		storage.WithUserAgent(p.cfg.HTTP.UserAgent+"/"+Version),
		storage.WithBufferSize(p.cfg.ReadBufferSize),
	)

	results := extract.Run(ctx, p.locators, extract.Options{
		Resolver: resolver,
		Limit:    p.cfg.Concurrency,
	})

	enc := jsonstream.NewObjectWriter(p.stdout)
	failed := 0
	for res := range results {
		if res.Err != nil {
			failed++
			p.logger.Error("fetch failed", "locator", res.Locator.String(), "err", res.Err)
			continue
		}
		if err := enc.Member(res.Locator.DisplayName(), res.Text); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintln(p.stdout)

	if failed > 0 {
		return &ExitError{
			Code: ExitFetchFailed,
			Err:  fmt.Errorf("%d of %d wheels failed", failed, len(p.locators)),
		}
	}
	return nil
}
