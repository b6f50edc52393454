// Package search implements the search command: query the index from the
// command line and print the ranked results.
package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/models"
)

const sampleColumnWidth = 60

// Command returns the search command.
func Command() *cobra.Command {
	var page int
	var conv string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index for a lexical item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], page, conv)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "result page number")
	cmd.Flags().StringVar(&conv, "conv", "none", "kana conversion: hira, kata, or none")
	return cmd
}

func run(cmd *cobra.Command, queryStr string, page int, conv string) error {
	queryStr = japanese.NormalizeWidth(queryStr)
	switch conv {
	case "none":
	case "hira":
		queryStr = japanese.ToHiragana(queryStr)
	case "kata":
		queryStr = japanese.ToKatakana(queryStr)
	default:
		return fmt.Errorf("unknown conversion %q", conv)
	}

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
	stack, err := deps.NewSearchStack(store.ReadOnly(), false)
	if err != nil {
		return err
	}
	defer stack.Close()

	result, err := stack.Searcher.Search(cmd.Context(), models.Query{
		Str:     queryStr,
		PageNum: page,
		Type:    models.QueryTypeExact,
	})
	if err != nil {
		return err
	}
	if result.Failed {
		return fmt.Errorf("search for %q failed, see logs", queryStr)
	}

	fmt.Printf("%d results for %q (page %d)\n", result.TotalResults, queryStr, result.Query.PageNum)
	if len(result.Results) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Title", "Source", "Score", "Hits", "Updated", "Sample"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Sample", WidthMax: sampleColumnWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	offset := (result.Query.PageNum - 1) * deps.Config.Search.PageSize
	for i, r := range result.Results {
		updated := ""
		if r.Article != nil && !r.Article.LastUpdatedDT.IsZero() {
			updated = r.Article.LastUpdatedDT.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			offset + i + 1,
			r.Article.Title,
			r.Article.SourceName,
			r.QualityScore,
			r.InstanceCount(),
			updated,
			sampleString(r.MainSample),
		})
	}
	t.Render()

	if result.HasNextPage {
		fmt.Printf("more results: myaku search %q -p %d\n", queryStr, result.Query.PageNum+1)
	}
	return nil
}

func sampleString(s *models.SampleText) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, seg := range s.Segments {
		if seg.IsQueryMatch {
			b.WriteString("[")
			b.WriteString(seg.Text)
			b.WriteString("]")
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
