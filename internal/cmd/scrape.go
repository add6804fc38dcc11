package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/config"
	"github.com/scrapeline/scrapeline/internal/core"
	"github.com/scrapeline/scrapeline/internal/core/engine"
	"github.com/scrapeline/scrapeline/internal/observability"
	"github.com/scrapeline/scrapeline/internal/output"
)

var (
	scrapeConfigName string
	scrapeJobID      string
	scrapeRPM        int
	scrapeRPH        int
	scrapeDelay      time.Duration
	scrapeNoStore    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a scraping job from a named configuration",
	Long: `Run a scraping job defined in {config_dir}/apis/<name>.yaml.

Each endpoint is fetched sequentially under the configured rate limits;
fetched data is transformed, written to the output directory, and the run
summary is recorded in the local run history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.CLILogger

		appCfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		loader := config.NewLoader(appCfg.ConfigDir, logger)
		scrapeCfg, err := loader.Load(scrapeConfigName)
		if err != nil {
			return err
		}
		if !scrapeCfg.Enabled {
			return fmt.Errorf("configuration %q is disabled", scrapeConfigName)
		}

		applyRateLimitOverrides(cmd, scrapeCfg)

		orchestrator := &engine.Orchestrator{
			Config:    scrapeCfg,
			Client:    &http.Client{Timeout: appCfg.HTTP.Timeout},
			UserAgent: appCfg.HTTP.UserAgent,
			Logger:    logger,
		}

		result, runErr := orchestrator.Run(cmd.Context(), scrapeJobID)
		if result == nil {
			return runErr
		}

		if result.Status == core.JobCompleted && len(result.Captures) > 0 {
			path, err := output.Write(appCfg.OutputDir, scrapeCfg.Output, result)
			if err != nil {
				logger.Error("writing output failed", zap.Error(err))
				result.ErrorMessage = err.Error()
			} else {
				result.OutputLocation = path
			}
		}

		saveRun(cmd, appCfg, result)

		formatter := &output.TableFormatter{}
		fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatResult(result))

		if runErr != nil {
			return runErr
		}
		if result.Status == core.JobFailed {
			return fmt.Errorf("scraping job failed: %s", result.ErrorMessage)
		}
		return nil
	},
}

// applyRateLimitOverrides applies explicit CLI rate-limit flags on top of the
// job configuration. Only flags the user actually set take effect.
func applyRateLimitOverrides(cmd *cobra.Command, cfg *core.ScrapeConfig) {
	if cmd.Flags().Changed("rpm") {
		cfg.RateLimit.RequestsPerMinute = scrapeRPM
	}
	if cmd.Flags().Changed("rph") {
		cfg.RateLimit.RequestsPerHour = scrapeRPH
	}
	if cmd.Flags().Changed("delay") {
		cfg.RateLimit.MinDelay = scrapeDelay
	}
}

// saveRun records the run summary, best effort. History failures never fail
// the scrape itself.
func saveRun(cmd *cobra.Command, appCfg *config.Config, result *core.JobResult) {
	if scrapeNoStore {
		return
	}

	db, err := openStore(cmd.Context(), appCfg)
	if err != nil {
		observability.CLILogger.Warn("run history unavailable", zap.Error(err))
		return
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	if err := db.SaveRun(cmd.Context(), result); err != nil {
		observability.CLILogger.Warn("saving run history failed", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeConfigName, "config", "c", "", "scraping configuration name (required)")
	scrapeCmd.Flags().StringVar(&scrapeJobID, "job-id", "", "job identifier (default derived from start time)")
	scrapeCmd.Flags().IntVar(&scrapeRPM, "rpm", 0, "override requests per minute")
	scrapeCmd.Flags().IntVar(&scrapeRPH, "rph", 0, "override requests per hour")
	scrapeCmd.Flags().DurationVar(&scrapeDelay, "delay", 0, "override minimum delay between requests")
	scrapeCmd.Flags().BoolVar(&scrapeNoStore, "no-store", false, "skip recording the run in history")

	if err := scrapeCmd.MarkFlagRequired("config"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
