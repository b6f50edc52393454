// Package crawl implements the crawl command: run every enabled source
// adapter's most-recent crawls through the pipeline.
package crawl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/internal/analyzer/kagome"
	"github.com/myaku-dev/myaku/internal/crawler"
	"github.com/myaku-dev/myaku/internal/database"
	"github.com/myaku-dev/myaku/internal/fetcher"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/score"
)

const timeRound = 100 * time.Millisecond

// Command returns the crawl command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the enabled sources and index new articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	}
}

// Run executes one full crawl of the enabled sources. Shared with the
// scheduler command.
func Run(ctx context.Context) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() {
		_ = deps.Logger.Sync()
	}()
	cfg := deps.Config

	if len(cfg.Crawler.EnabledSources) == 0 {
		return fmt.Errorf("no sources enabled (registered: %v)", crawler.AdapterNames())
	}

	store, err := deps.NewStore()
	if err != nil {
		return err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	stack, err := deps.NewSearchStack(store, false)
	if err != nil {
		return err
	}
	defer stack.Close()

	if _, err := stack.Searcher.EnsureCacheBuilt(ctx); err != nil {
		return fmt.Errorf("build first-page cache: %w", err)
	}

	an, err := kagome.New()
	if err != nil {
		return fmt.Errorf("load analyzer dictionary: %w", err)
	}
	scorer, err := score.NewScorerWithTiers(cfg.Scoring.RecencyTierDays)
	if err != nil {
		return err
	}

	fetch, err := fetcher.New(fetcher.Config{
		MinWait:   cfg.Crawler.RateLimitMin,
		MaxWait:   cfg.Crawler.RateLimitMax,
		Timeout:   cfg.Crawler.FetchTimeout,
		Retries:   cfg.Crawler.FetchRetries,
		UserAgent: cfg.Crawler.UserAgent,
	}, deps.Logger)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	adapters, err := crawler.NewAdapters(cfg.Crawler.EnabledSources, fetch, deps.Logger)
	if err != nil {
		return err
	}

	tracker := crawler.NewTracker(store, deps.Logger)
	pipeline := crawler.NewPipeline(
		store, tracker, an, scorer, stack.Searcher, cfg.Crawler.Workers, deps.Logger)

	stats, err := pipeline.RunAll(ctx, adapters)
	if err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}

	renderStats(stats)

	if cfg.Database.Enabled {
		if err := recordRuns(ctx, deps, stats); err != nil {
			deps.Logger.Error("recording crawl runs failed", logger.Err(err))
		}
	}
	return nil
}

// renderStats prints the per-crawl counters and totals.
func renderStats(stats *crawler.RunStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Crawl", "Articles", "Skipped", "Failed", "FLIs", "Elapsed"})
	for _, c := range stats.Crawls {
		t.AppendRow(table.Row{c.Source, c.Crawl, c.Articles, c.Skipped, c.Failed, c.FLIs, c.Elapsed.Round(timeRound)})
	}
	total := stats.Totals()
	t.AppendFooter(table.Row{"Total", "", total.Articles, total.Skipped, total.Failed, total.FLIs, total.Elapsed.Round(timeRound)})
	t.Render()
}

// recordRuns writes one history row per crawl to Postgres.
func recordRuns(ctx context.Context, deps *cmdcommon.Deps, stats *crawler.RunStats) error {
	db, err := database.NewConnection(deps.Config.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	repo, err := database.NewCrawlRunRepository(db)
	if err != nil {
		return err
	}

	for _, c := range stats.Crawls {
		run := &database.CrawlRun{
			Source:     c.Source,
			CrawlName:  c.Crawl,
			StartedAt:  stats.Started,
			FinishedAt: stats.Started.Add(c.Elapsed),
			Articles:   c.Articles,
			Skipped:    c.Skipped,
			Failed:     c.Failed,
			FLIs:       c.FLIs,
			Status:     database.RunStatusCompleted,
		}
		if c.Failed > 0 && c.Articles == 0 {
			run.Status = database.RunStatusFailed
			run.Error = fmt.Sprintf("%d candidates failed, none stored", c.Failed)
		}
		if err := repo.Insert(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
