// Package rescore implements the rescore command: recompute quality scores
// for articles whose age crossed a recency tier boundary.
package rescore

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/internal/rescore"
	"github.com/myaku-dev/myaku/internal/score"
)

const timeRound = 100 * time.Millisecond

// Command returns the rescore command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Rescore articles that crossed a recency tier boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	}
}

// Run executes one rescore pass. Shared with the scheduler command.
func Run(ctx context.Context) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	defer func() {
		_ = deps.Logger.Sync()
	}()

	store, err := deps.NewStore()
	if err != nil {
		return err
	}
	stack, err := deps.NewSearchStack(store, false)
	if err != nil {
		return err
	}
	defer stack.Close()

	scorer, err := score.NewScorerWithTiers(deps.Config.Scoring.RecencyTierDays)
	if err != nil {
		return err
	}

	if _, err := stack.Searcher.EnsureCacheBuilt(ctx); err != nil {
		return fmt.Errorf("build first-page cache: %w", err)
	}

	pass := rescore.New(store, scorer, stack.Searcher, deps.Logger)
	stats, err := pass.Run(ctx)
	if err != nil {
		return fmt.Errorf("rescore pass: %w", err)
	}

	fmt.Printf("rescored %d of %d scanned articles in %s\n",
		stats.Changed, stats.Scanned, stats.Elapsed.Round(timeRound))
	return nil
}
