// Package httpd implements the httpd command: serve the search API.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/myaku-dev/myaku/cmd/common"
	"github.com/myaku-dev/myaku/internal/api"
	"github.com/myaku-dev/myaku/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve the search HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return err
	}
	log := deps.Logger
	defer func() {
		_ = log.Sync()
	}()

	store, err := deps.NewStore()
	if err != nil {
		return err
	}
	// The API only reads; a read-only handle makes stray writes an error.
	stack, err := deps.NewSearchStack(store.ReadOnly(), true)
	if err != nil {
		return err
	}
	defer stack.Close()

	srv := api.NewServer(stack.Searcher, deps.Config.API, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("search API listening", logger.String("addr", srv.Addr))
		if serveErr := srv.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
