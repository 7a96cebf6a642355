package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// CreateBatchRun persists a new pending run.
func (c *Client) CreateBatchRun(ctx context.Context, id, location string, documents []string, maxConcurrent int) error {
	sql := `
		CREATE type::record("batch_run", $id) SET
			status = "pending",
			location = $location,
			documents = $documents,
			max_concurrent = $max_concurrent,
			total = $total,
			progress = 0
	`
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":             id,
		"location":       location,
		"documents":      documents,
		"max_concurrent": maxConcurrent,
		"total":          len(documents),
	})
	if err != nil {
		return fmt.Errorf("create batch run: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateRunProgress records how many documents have a terminal outcome.
func (c *Client) UpdateRunProgress(ctx context.Context, id string, progress int) error {
	sql := `UPDATE type::record("batch_run", $id) SET progress = $progress, status = "running"`
	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"id": id, "progress": progress}); err != nil {
		return fmt.Errorf("update run progress: %w", wrapQueryError(err))
	}
	return nil
}

// CompleteRun stores the final outcomes. A non-empty errMsg marks the run failed.
func (c *Client) CompleteRun(ctx context.Context, id string, results []models.DocumentResult, errMsg string) error {
	rows := make([]map[string]any, len(results))
	for i, r := range results {
		row := map[string]any{"document": r.Document, "status": r.Status}
		if r.Stage != "" {
			row["stage"] = r.Stage
		}
		if r.Reason != "" {
			row["reason"] = r.Reason
		}
		rows[i] = row
	}

	vars := map[string]any{
		"id":       id,
		"results":  rows,
		"progress": len(results),
	}
	sql := `
		UPDATE type::record("batch_run", $id) SET
			status = "completed",
			progress = $progress,
			results = $results,
			completed_at = time::now()
	`
	if errMsg != "" {
		vars["error"] = errMsg
		sql = `
		UPDATE type::record("batch_run", $id) SET
			status = "failed",
			progress = $progress,
			results = $results,
			error = $error,
			completed_at = time::now()
	`
	}

	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("complete run: %w", wrapQueryError(err))
	}
	return nil
}

// GetRun loads one run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (*models.BatchRun, error) {
	sql := `SELECT * FROM type::record("batch_run", $id)`
	results, err := surrealdb.Query[[]models.BatchRun](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: batch_run %s", ErrNotFound, id)
	}
	return &(*results)[0].Result[0], nil
}

// ListRuns returns the most recent runs first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	sql := `SELECT * FROM batch_run ORDER BY started_at DESC LIMIT $limit`
	results, err := surrealdb.Query[[]models.BatchRun](ctx, c.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
