// Package cmd defines the CLI for the stationcrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/appium"
	"github.com/JakeFAU/station-crawler/internal/config"
	"github.com/JakeFAU/station-crawler/internal/crawler"
)

// newDriver builds the session driver. It's a variable so tests can swap in
// a fake without an Appium server.
var newDriver = func(cfg config.Config, logger *zap.Logger) (crawler.Driver, error) {
	client, err := appium.NewClient(cfg.AppiumClient(), logger.Named("appium"))
	if err != nil {
		return nil, fmt.Errorf("init appium client: %w", err)
	}
	return crawler.NewAppiumDriver(client, cfg.App), nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "stationcrawler",
		Short: "Crawls charging-station details from the operator app over Appium.",
		Long: `stationcrawler drives the charging-station app on an Android device
through an Appium server. Each pass restarts the app, taps every map marker,
and appends the detail screen to the data file until interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), cfgFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults and STATIONCRAWLER_* env vars apply)")
	cmd.AddCommand(newCrawlCmd(&cfgFile))
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var unrecoverable *crawler.UnrecoverableError
		if errors.As(err, &unrecoverable) {
			fmt.Fprintf(os.Stderr, "stationcrawler: unrecoverable: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "stationcrawler: %v\n", err)
		}
		return 1
	}
	return 0
}
