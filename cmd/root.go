// Package cmd implements the command-line interface for Myaku.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/cmd/crawl"
	"github.com/myaku-dev/myaku/cmd/httpd"
	cmdindex "github.com/myaku-dev/myaku/cmd/index"
	"github.com/myaku-dev/myaku/cmd/jobs"
	cmdrescore "github.com/myaku-dev/myaku/cmd/rescore"
	"github.com/myaku-dev/myaku/cmd/scheduler"
	"github.com/myaku-dev/myaku/cmd/search"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "myaku",
	Short: "Native Japanese article search by lexical item",
	Long: `Myaku crawls native Japanese articles, analyzes them into base-form
lexical items, and serves ranked search over the resulting index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// .env values must be present before any command loads config.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cmdcommon.CfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&cmdcommon.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("myaku version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(cmdrescore.Command())
	rootCmd.AddCommand(scheduler.Command())
	rootCmd.AddCommand(search.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(cmdindex.Command())
	rootCmd.AddCommand(jobs.Command())
}
