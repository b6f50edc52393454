package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// CrawlRun is one finished crawl of one source, for the jobs history.
type CrawlRun struct {
	ID         int64     `db:"id"`
	Source     string    `db:"source"`
	CrawlName  string    `db:"crawl_name"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Articles   int       `db:"articles"`
	Skipped    int       `db:"skipped"`
	Failed     int       `db:"failed"`
	FLIs       int       `db:"flis"`
	Status     string    `db:"status"`
	Error      string    `db:"error"`
}

// Crawl run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const crawlRunsSchema = `
CREATE TABLE IF NOT EXISTS crawl_runs (
	id          BIGSERIAL PRIMARY KEY,
	source      TEXT NOT NULL,
	crawl_name  TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	articles    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	flis        INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_crawl_runs_started_at ON crawl_runs (started_at DESC);
`

// CrawlRunRepository stores crawl run history rows.
type CrawlRunRepository struct {
	db *sqlx.DB
}

// NewCrawlRunRepository creates the repository, ensuring the schema exists.
func NewCrawlRunRepository(db *sqlx.DB) (*CrawlRunRepository, error) {
	if _, err := db.Exec(crawlRunsSchema); err != nil {
		return nil, fmt.Errorf("ensure crawl_runs schema: %w", err)
	}
	return &CrawlRunRepository{db: db}, nil
}

// Insert records one finished crawl run.
func (r *CrawlRunRepository) Insert(ctx context.Context, run *CrawlRun) error {
	query := `
		INSERT INTO crawl_runs
			(source, crawl_name, started_at, finished_at, articles, skipped, failed, flis, status, error)
		VALUES
			(:source, :crawl_name, :started_at, :finished_at, :articles, :skipped, :failed, :flis, :status, :error)
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("insert crawl run: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("scan crawl run id: %w", err)
		}
	}
	return rows.Err()
}

// Recent returns the latest runs, newest first.
func (r *CrawlRunRepository) Recent(ctx context.Context, limit int) ([]CrawlRun, error) {
	if limit < 1 {
		limit = 20
	}
	var runs []CrawlRun
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM crawl_runs ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}
	return runs, nil
}
