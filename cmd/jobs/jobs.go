// Package jobs implements the jobs command: list recent crawl runs from the
// Postgres history.
package jobs

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/internal/database"
)

// Command returns the jobs command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent crawl runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func run(cmd *cobra.Command, limit int) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	if !deps.Config.Database.Enabled {
		return errors.New("crawl run history requires database.enabled")
	}

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
	runs, err := repo.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no crawl runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Source", "Crawl", "Started", "Articles", "Skipped", "Failed", "FLIs", "Status"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Source,
			r.CrawlName,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Articles,
			r.Skipped,
			r.Failed,
			r.FLIs,
			r.Status,
		})
	}
	t.Render()
	return nil
}
