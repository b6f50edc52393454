// Package scheduler implements the scheduler command: run crawl and rescore
// passes on cron schedules until interrupted.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/cmd/crawl"
	"github.com/myaku-dev/myaku/cmd/rescore"
	"github.com/myaku-dev/myaku/internal/logger"
)

const (
	// Crawls run every four hours; the rescore pass runs hourly so tier
	// crossings are caught within an hour of happening.
	defaultCrawlSpec   = "0 */4 * * *"
	defaultRescoreSpec = "30 * * * *"
)

// Command returns the scheduler command.
func Command() *cobra.Command {
	var crawlSpec, rescoreSpec string

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run crawl and rescore passes on a schedule",
		Long: `Run crawl and rescore passes on cron schedules until interrupted
with Ctrl+C. Overlapping runs of the same job are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), crawlSpec, rescoreSpec)
		},
	}
	cmd.Flags().StringVar(&crawlSpec, "crawl-spec", defaultCrawlSpec, "cron spec for crawl runs")
	cmd.Flags().StringVar(&rescoreSpec, "rescore-spec", defaultRescoreSpec, "cron spec for rescore passes")
	return cmd
}

func run(ctx context.Context, crawlSpec, rescoreSpec string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	log := deps.Logger
	defer func() {
		_ = log.Sync()
	}()

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	if _, err := c.AddFunc(crawlSpec, func() {
		log.Info("scheduled crawl starting")
		if err := crawl.Run(ctx); err != nil {
			log.Error("scheduled crawl failed", logger.Err(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(rescoreSpec, func() {
		log.Info("scheduled rescore starting")
		if err := rescore.Run(ctx); err != nil {
			log.Error("scheduled rescore failed", logger.Err(err))
		}
	}); err != nil {
		return err
	}

	log.Info("scheduler started",
		logger.String("crawl_spec", crawlSpec),
		logger.String("rescore_spec", rescoreSpec),
	)
	c.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")
	stopped := c.Stop()
	// Let in-flight jobs finish before exiting.
	<-stopped.Done()
	return nil
}
