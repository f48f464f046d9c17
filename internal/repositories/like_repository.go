package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// LikeRepository defines the data access contract for likes.
type LikeRepository interface {
	TargetExists(ctx context.Context, target models.LikeTarget) (bool, error)
	Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error)
	LikedVideos(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}

var likeTargetTables = map[models.TargetKind]string{
	models.TargetVideo:   "videos",
	models.TargetComment: "comments",
	models.TargetTweet:   "tweets",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// TargetExists reports whether the liked entity is present.
func (r *PostgresLikeRepository) TargetExists(ctx context.Context, target models.LikeTarget) (bool, error) {
	table, ok := likeTargetTables[target.Kind()]
	if !ok {
		return false, fmt.Errorf("unsupported like target %q", target.Kind())
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, target.ID()).Scan(&exists); err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check like target: %w", err)
	}
	return exists, nil
}

// Toggle removes the like when present and records it otherwise. It reports
// whether the target is liked afterwards.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error) {
	var liked bool
	err := inSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM likes
            WHERE account_id = $1 AND target_kind = $2 AND target_id = $3
        `, accountID, string(target.Kind()), target.ID())
		if err != nil {
			return fmt.Errorf("delete like: %w", err)
		}

		liked = tag.RowsAffected() == 0
		if !liked {
			return nil
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO likes (id, account_id, target_kind, target_id, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, uuid.NewString(), accountID, string(target.Kind()), target.ID(), time.Now().UTC()); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
		return nil
	})
	if err != nil {
		if sentinel := classify(err); sentinel != nil {
			return false, sentinel
		}
		return false, fmt.Errorf("toggle like: %w", err)
	}
	return liked, nil
}

// LikedVideos returns the videos the account liked with their owners, most recent like first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url, v.duration,
               v.views, v.published, v.created_at, v.updated_at,
               a.id, a.handle, a.display_name, a.avatar_url
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        JOIN accounts a ON a.id = v.owner_id
        WHERE l.account_id = $1 AND l.target_kind = 'video'
        ORDER BY l.created_at DESC
    `, accountID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	return collectVideosWithOwners(rows)
}

func collectVideosWithOwners(rows pgx.Rows) ([]models.WatchedVideo, error) {
	defer rows.Close()

	entries := []models.WatchedVideo{}
	for rows.Next() {
		var entry models.WatchedVideo
		if err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.Title,
			&entry.Description,
			&entry.VideoURL,
			&entry.ThumbnailURL,
			&entry.Duration,
			&entry.Views,
			&entry.Published,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&entry.Owner.ID,
			&entry.Owner.Handle,
			&entry.Owner.DisplayName,
			&entry.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan video with owner: %w", err)
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entry.UpdatedAt = entry.UpdatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return []models.WatchedVideo{}, nil
		}
		return nil, fmt.Errorf("iterate videos with owners: %w", err)
	}
	return entries, nil
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
