package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/eatlytic/internal/domain"
)

// MaxRecent caps how many attempts Recent returns.
const MaxRecent = 200

// AttemptStore is the diagnostic log of analyze calls.
type AttemptStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAttemptStore(db *sql.DB) *AttemptStore {
	return &AttemptStore{db: db, now: time.Now}
}

// Record stores a. ID and CreatedAt are filled in when empty.
func (s *AttemptStore) Record(ctx context.Context, a domain.Attempt) (*domain.Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts (id, media_type, image_bytes, backend, outcome, failure_kind, message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.MediaType, a.ImageBytes, a.Backend, a.Outcome, a.FailureKind, a.Message, a.DurationMs, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}

	return s.GetByID(ctx, a.ID)
}

func (s *AttemptStore) GetByID(ctx context.Context, id string) (*domain.Attempt, error) {
	a := &domain.Attempt{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, media_type, image_bytes, backend, outcome, failure_kind, message, duration_ms, created_at
		FROM attempts WHERE id = ?
	`, id).Scan(&a.ID, &a.MediaType, &a.ImageBytes, &a.Backend, &a.Outcome, &a.FailureKind, &a.Message, &a.DurationMs, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return a, nil
}

// Recent returns up to limit attempts, newest first.
func (s *AttemptStore) Recent(ctx context.Context, limit int) ([]*domain.Attempt, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, media_type, image_bytes, backend, outcome, failure_kind, message, duration_ms, created_at
		FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	attempts := make([]*domain.Attempt, 0)
	for rows.Next() {
		a := &domain.Attempt{}
		if err := rows.Scan(&a.ID, &a.MediaType, &a.ImageBytes, &a.Backend, &a.Outcome, &a.FailureKind, &a.Message, &a.DurationMs, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return attempts, nil
}

// CountByOutcome returns how many attempts ended with each outcome.
func (s *AttemptStore) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{domain.OutcomeSucceeded: 0, domain.OutcomeFailed: 0}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan attempt count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempt counts: %w", err)
	}
	return counts, nil
}
