package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/clock/system"
	"github.com/JakeFAU/station-crawler/internal/config"
	"github.com/JakeFAU/station-crawler/internal/crawler"
	"github.com/JakeFAU/station-crawler/internal/id"
	"github.com/JakeFAU/station-crawler/internal/logging"
	"github.com/JakeFAU/station-crawler/internal/sink"
	"github.com/JakeFAU/station-crawler/internal/telemetry"
)

func newCrawlCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs the crawl loop (same as invoking stationcrawler with no subcommand)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), *cfgFile)
		},
	}
}

func runCrawl(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	runID, err := id.NewRunID()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, RunID: runID})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	records, err := sink.Open(cfg.Sink, logger.Named("sink"))
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer func() {
		if cerr := records.Close(); cerr != nil {
			logger.Warn("failed to close data file", zap.Error(cerr))
		}
	}()

	opsCtx, stopOps := context.WithCancel(ctx)
	defer stopOps()
	go func() {
		if err := telemetry.Serve(opsCtx, cfg.Telemetry.ListenAddr, logger.Named("ops")); err != nil {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	driver, err := newDriver(cfg, logger)
	if err != nil {
		return err
	}
	loop, err := crawler.NewLoop(cfg.CrawlLoop(), driver, records, system.New(), logger.Named("crawler"))
	if err != nil {
		return err
	}

	logger.Info("crawl starting",
		zap.String("server", cfg.Appium.ServerURL),
		zap.String("device", cfg.App.DeviceName),
		zap.String("data_file", records.Path()),
	)
	if err := loop.Run(ctx); err != nil {
		logger.Error("crawl aborted", zap.Error(err), zap.Int("iterations", loop.Iteration()))
		return err
	}
	logger.Info("crawl finished",
		zap.Int("iterations", loop.Iteration()),
		zap.Int64("records", records.Written()),
	)
	return nil
}
