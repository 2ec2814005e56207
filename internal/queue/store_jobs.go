package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue inserts a pending job. payloadJSON must be a JSON object.
func (s *Store) Enqueue(ctx context.Context, kind, payloadJSON string) (*Job, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, errors.New("enqueue: job kind is required")
	}
	if !json.Valid([]byte(payloadJSON)) {
		return nil, errors.New("enqueue: payload is not valid JSON")
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (kind, status, payload_json, attempts, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		kind,
		StatusPending,
		payloadJSON,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs ordered by id, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextPending claims the oldest pending job, moving it to processing. When no
// job is pending it returns (nil, nil).
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	var job *Job
	err := retryOnBusy(ctx, func() error {
		now := timestamp(time.Now())
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts = attempts + 1, started_at = ?, updated_at = ?,
                 error_message = NULL, finished_at = NULL
             WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY id LIMIT 1)
             RETURNING `+jobColumns,
			StatusProcessing,
			now,
			now,
			StatusPending,
		)
		claimed, scanErr := scanJob(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			job = nil
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Complete marks a processing job completed and stores its result.
func (s *Store) Complete(ctx context.Context, id int64, resultJSON string) error {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, result_json = ?, error_message = NULL, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		nullableString(resultJSON),
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return expectOneRow(res, id)
}

// Fail records a failure message and moves the job to status, which must be
// StatusFailed or StatusReview.
func (s *Store) Fail(ctx context.Context, id int64, status Status, message string) error {
	if status != StatusFailed && status != StatusReview {
		return fmt.Errorf("fail job: unsupported status %q", status)
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status,
		message,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d: %w", id, ErrNotProcessing)
	}
	return nil
}

// ErrNotProcessing is returned when finishing a job that is not currently claimed.
var ErrNotProcessing = errors.New("job is not processing")
