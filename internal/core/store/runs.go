package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scrapeline/scrapeline/internal/core"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS job_runs (
		execution_id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		config_name TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		duration_seconds REAL NOT NULL,
		endpoints_scraped INTEGER NOT NULL DEFAULT 0,
		endpoints_skipped INTEGER NOT NULL DEFAULT 0,
		records_processed INTEGER NOT NULL DEFAULT 0,
		data_size_bytes INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		output_location TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(started_at);`,
	`CREATE INDEX IF NOT EXISTS idx_job_runs_config ON job_runs(config_name);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}

// SaveRun records a job run summary. Captures are not persisted; they go to
// the output writers.
func (s *Store) SaveRun(ctx context.Context, result *core.JobResult) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if result == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO job_runs (
			execution_id, job_id, config_name, status,
			started_at, completed_at, duration_seconds,
			endpoints_scraped, endpoints_skipped, records_processed,
			data_size_bytes, error_message, output_location
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			duration_seconds = excluded.duration_seconds,
			endpoints_scraped = excluded.endpoints_scraped,
			endpoints_skipped = excluded.endpoints_skipped,
			records_processed = excluded.records_processed,
			data_size_bytes = excluded.data_size_bytes,
			error_message = excluded.error_message,
			output_location = excluded.output_location
	`,
		result.ExecutionID, result.JobID, result.ConfigName, string(result.Status),
		result.StartedAt.UTC().Unix(), result.CompletedAt.UTC().Unix(), result.DurationSeconds,
		result.EndpointsScraped, result.EndpointsSkipped, result.RecordsProcessed,
		result.DataSizeBytes, nullable(result.ErrorMessage), nullable(result.OutputLocation),
	)
	if err != nil {
		return fmt.Errorf("save job run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*core.JobResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT execution_id, job_id, config_name, status,
			started_at, completed_at, duration_seconds,
			endpoints_scraped, endpoints_skipped, records_processed,
			data_size_bytes, error_message, output_location
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var results []*core.JobResult
	for rows.Next() {
		var (
			result       core.JobResult
			startedAt    int64
			completedAt  int64
			status       string
			errorMessage sql.NullString
			outputPath   sql.NullString
		)
		if err := rows.Scan(
			&result.ExecutionID, &result.JobID, &result.ConfigName, &status,
			&startedAt, &completedAt, &result.DurationSeconds,
			&result.EndpointsScraped, &result.EndpointsSkipped, &result.RecordsProcessed,
			&result.DataSizeBytes, &errorMessage, &outputPath,
		); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}

		result.Status = core.JobStatus(status)
		result.StartedAt = time.Unix(startedAt, 0).UTC()
		result.CompletedAt = time.Unix(completedAt, 0).UTC()
		result.ErrorMessage = errorMessage.String
		result.OutputLocation = outputPath.String
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}

	return results, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
