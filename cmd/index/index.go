// Package index implements the index command group for managing the
// Elasticsearch indexes.
package index

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	esindex "github.com/myaku-dev/myaku/internal/index"
)

// Command returns the index command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the Elasticsearch indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(createCommand(), deleteCommand(), listCommand())
	return cmd
}

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create any missing indexes with their mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}
			if err := store.EnsureIndexes(cmd.Context()); err != nil {
				return fmt.Errorf("create indexes: %w", err)
			}
			fmt.Println("indexes ready")
			return nil
		},
	}
}

func deleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete all Myaku indexes and their data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to delete indexes without --force")
			}
			store, err := newStore()
			if err != nil {
				return err
			}
			if err := store.DeleteIndexes(cmd.Context()); err != nil {
				return fmt.Errorf("delete indexes: %w", err)
			}
			fmt.Println("indexes deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deleting all indexed data")
	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the Myaku index names",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Index"})
			for _, name := range store.IndexNames() {
				t.AppendRow(table.Row{name})
			}
			t.Render()
			return nil
		},
	}
}

func newStore() (*esindex.Store, error) {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return nil, err
	}
	return deps.NewStore()
}
