package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"podforge/internal/storage"
)

// Store manages job persistence backed by the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const jobColumns = "id, command, payload, status, result, error_message, created_at, updated_at, started_at, finished_at"

// Create inserts a pending job for the given command.
func (s *Store) Create(ctx context.Context, command string, payload json.RawMessage) (*Job, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("command name is required")
	}

	id := uuid.NewString()
	timestamp := storage.FormatTime(time.Now())

	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO jobs (id, command, payload, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		command,
		storage.NullableString(string(payload)),
		string(StatusPending),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// MarkRunning claims a pending job for execution. The conditional update
// makes exactly one claimant win; everyone else gets false.
func (s *Store) MarkRunning(ctx context.Context, id string) (bool, error) {
	now := storage.FormatTime(time.Now())
	res, err := s.db.ExecRetry(
		ctx,
		`UPDATE jobs SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusRunning),
		now,
		now,
		id,
		string(StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark job running: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Finish records a terminal state together with the handler's result and
// error message.
func (s *Store) Finish(ctx context.Context, id string, status Status, result json.RawMessage, errorMessage string) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	now := storage.FormatTime(time.Now())
	if err := s.db.ExecRetryNoResult(
		ctx,
		`UPDATE jobs SET status = ?, result = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ?`,
		string(status),
		storage.NullableString(string(result)),
		storage.NullableString(errorMessage),
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// PendingIDs returns identifiers of jobs awaiting dispatch, oldest first.
func (s *Store) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 64
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		string(StatusPending),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResetRunning moves jobs left running by a previous process back to pending
// so the requeue sweep can redeliver them.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecRetry(
		ctx,
		`UPDATE jobs SET status = ?, started_at = NULL, updated_at = ? WHERE status = ?`,
		string(StatusPending),
		storage.FormatTime(time.Now()),
		string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// LastFailure returns the error message of the most recently finished failed
// job, or the empty string when no job has failed.
func (s *Store) LastFailure(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT error_message FROM jobs WHERE status = ? ORDER BY finished_at DESC LIMIT 1`, string(StatusFailed))
	var message sql.NullString
	if err := row.Scan(&message); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("last failure: %w", err)
	}
	return message.String, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		command      string
		payload      sql.NullString
		status       string
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&command,
		&payload,
		&status,
		&result,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Command:      command,
		Status:       Status(status),
		ErrorMessage: errorMessage.String,
	}
	if payload.Valid && payload.String != "" {
		job.Payload = json.RawMessage(payload.String)
	}
	if result.Valid && result.String != "" {
		job.Result = json.RawMessage(result.String)
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if started, err := storage.ParseTime(startedRaw.String); err == nil {
		job.StartedAt = &started
	}
	if finished, err := storage.ParseTime(finishedRaw.String); err == nil {
		job.FinishedAt = &finished
	}
	return job, nil
}
