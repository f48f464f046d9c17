package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// AccountRepository defines the data access contract for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByHandle(ctx context.Context, handle string) (models.Account, error)
	FindByLogin(ctx context.Context, identifier string) (models.Account, error)
	ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error)
	UpdateDetails(ctx context.Context, id, displayName, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SwapAvatar(ctx context.Context, id, url string) (previous string, err error)
	SwapCover(ctx context.Context, id, url string) (previous string, err error)
	RecordWatch(ctx context.Context, accountID, videoID string) error
}

const accountColumns = `id, handle, email, display_name, password_hash, avatar_url, cover_url, refresh_token, watch_history, created_at, updated_at`

// PostgresAccountRepository provides PostgreSQL-backed persistence for accounts.
type PostgresAccountRepository struct {
	pool db.Pool
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// Create persists a new account. Duplicate handle or email yields ErrConflict.
func (r *PostgresAccountRepository) Create(ctx context.Context, account models.Account) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO accounts (id, handle, email, display_name, password_hash, avatar_url, cover_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, account.ID, account.Handle, account.Email, account.DisplayName, account.PasswordHash,
		account.AvatarURL, account.CoverURL, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if errors.Is(classify(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// FindByID fetches an account by its identifier.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByHandle fetches an account by its handle.
func (r *PostgresAccountRepository) FindByHandle(ctx context.Context, handle string) (models.Account, error) {
	return r.findOne(ctx, `WHERE handle = $1`, strings.ToLower(handle))
}

// FindByLogin fetches the account whose handle or email equals identifier.
func (r *PostgresAccountRepository) FindByLogin(ctx context.Context, identifier string) (models.Account, error) {
	return r.findOne(ctx, `WHERE handle = $1 OR email = $1`, strings.ToLower(identifier))
}

// ExistsByHandleOrEmail reports whether either value is already taken.
func (r *PostgresAccountRepository) ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM accounts WHERE handle = $1 OR email = $2)
    `, strings.ToLower(handle), strings.ToLower(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account existence: %w", err)
	}
	return exists, nil
}

// UpdateDetails changes display name and email and returns the stored record.
func (r *PostgresAccountRepository) UpdateDetails(ctx context.Context, id, displayName, email string) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE accounts
        SET display_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+accountColumns, id, displayName, strings.ToLower(email), time.Now().UTC())

	account, err := scanAccount(row)
	if err != nil {
		if sentinel := classify(err); sentinel != nil {
			return models.Account{}, sentinel
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("update account details: %w", err)
	}
	return account, nil
}

// UpdatePassword stores a new password hash and clears the refresh token in
// the same statement, ending every outstanding session.
func (r *PostgresAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET password_hash = $2, refresh_token = NULL, updated_at = $3
        WHERE id = $1
    `, id, passwordHash, time.Now().UTC())
	if err != nil {
		if sentinel := classify(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("update account password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapAvatar replaces the avatar reference and returns the previous one.
func (r *PostgresAccountRepository) SwapAvatar(ctx context.Context, id, url string) (string, error) {
	return r.swapMedia(ctx, "avatar_url", id, url)
}

// SwapCover replaces the cover image reference and returns the previous one.
// An empty url clears the cover.
func (r *PostgresAccountRepository) SwapCover(ctx context.Context, id, url string) (string, error) {
	return r.swapMedia(ctx, "cover_url", id, url)
}

// RecordWatch moves videoID to the end of the account's watch history.
func (r *PostgresAccountRepository) RecordWatch(ctx context.Context, accountID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE accounts
        SET watch_history = array_append(array_remove(watch_history, $2::UUID), $2::UUID)
        WHERE id = $1
    `, accountID, videoID)
	if err != nil {
		if sentinel := classify(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("record watch: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) swapMedia(ctx context.Context, column, id, url string) (string, error) {
	if column != "avatar_url" && column != "cover_url" {
		return "", fmt.Errorf("unsupported media column %q", column)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin %s swap: %w", column, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	if err := tx.QueryRow(ctx, `SELECT `+column+` FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(classify(err), ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select %s: %w", column, err)
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET `+column+` = $2, updated_at = $3 WHERE id = $1`, id, url, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("update %s: %w", column, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit %s swap: %w", column, err)
	}
	return previous, nil
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, where string, arg any) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	account, err := scanAccount(conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(classify(err), ErrNotFound) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		account      models.Account
		refreshToken sql.NullString
	)
	if err := row.Scan(
		&account.ID,
		&account.Handle,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.AvatarURL,
		&account.CoverURL,
		&refreshToken,
		&account.WatchHistory,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return models.Account{}, err
	}
	account.RefreshToken = refreshToken.String
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return account, nil
}

var _ AccountRepository = (*PostgresAccountRepository)(nil)
