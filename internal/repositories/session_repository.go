package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSessionStore keeps each account's current refresh token in the accounts table.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Rotate overwrites the stored refresh token.
func (s *PostgresSessionStore) Rotate(ctx context.Context, accountID, refreshToken string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET refresh_token = $2, updated_at = $3
        WHERE id = $1
    `, accountID, refreshToken, time.Now().UTC())
	if err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("store refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// CompareAndRotate swaps the stored token only while it still equals presented.
// The check and the write are a single UPDATE, so of two concurrent refreshes
// with the same token exactly one matches a row.
func (s *PostgresSessionStore) CompareAndRotate(ctx context.Context, accountID, presented, next string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET refresh_token = $3, updated_at = $4
        WHERE id = $1 AND refresh_token = $2
    `, accountID, presented, next, time.Now().UTC())
	if err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("check account for session: %w", err)
	}
	if !exists {
		return auth.ErrSessionNotFound
	}
	return auth.ErrSessionMismatch
}

// Clear removes the stored refresh token.
func (s *PostgresSessionStore) Clear(ctx context.Context, accountID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET refresh_token = NULL, updated_at = $2
        WHERE id = $1
    `, accountID, time.Now().UTC())
	if err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
