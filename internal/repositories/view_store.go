package repositories

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresViewStore answers the read-only lookups behind channel profiles,
// watch history and channel stats.
type PostgresViewStore struct {
	pool     db.Pool
	accounts *PostgresAccountRepository
}

// NewPostgresViewStore constructs a view store backed by PostgreSQL.
func NewPostgresViewStore(pool db.Pool) *PostgresViewStore {
	return &PostgresViewStore{pool: pool, accounts: NewPostgresAccountRepository(pool)}
}

// FindAccountByHandle fetches the channel root of a profile view.
func (s *PostgresViewStore) FindAccountByHandle(ctx context.Context, handle string) (models.Account, error) {
	return s.accounts.FindByHandle(ctx, handle)
}

// FindAccountByID fetches the account owning a watch history or stats view.
func (s *PostgresViewStore) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// CountSubscribers counts accounts subscribed to the channel.
func (s *PostgresViewStore) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	return s.count(ctx, "count subscribers", `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID)
}

// CountSubscriptions counts channels the account is subscribed to.
func (s *PostgresViewStore) CountSubscriptions(ctx context.Context, subscriberID string) (int64, error) {
	return s.count(ctx, "count subscriptions", `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
}

// IsSubscribed reports whether subscriberID follows channelID.
func (s *PostgresViewStore) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	n, err := s.count(ctx, "check subscription", `
        SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	return n > 0, err
}

// CountVideos counts every video the owner has uploaded.
func (s *PostgresViewStore) CountVideos(ctx context.Context, ownerID string) (int64, error) {
	return s.count(ctx, "count videos", `SELECT COUNT(*) FROM videos WHERE owner_id = $1`, ownerID)
}

// CountVideoLikes counts likes on the owner's videos.
func (s *PostgresViewStore) CountVideoLikes(ctx context.Context, ownerID string) (int64, error) {
	return s.count(ctx, "count video likes", `
        SELECT COUNT(*)
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        WHERE l.target_kind = 'video' AND v.owner_id = $1
    `, ownerID)
}

// SumVideoViews adds up the view counters of the owner's videos.
func (s *PostgresViewStore) SumVideoViews(ctx context.Context, ownerID string) (int64, error) {
	return s.count(ctx, "sum video views", `
        SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1
    `, ownerID)
}

// VideosWithOwners loads the given videos joined with their owner summaries.
// Missing ids are skipped and no particular order is guaranteed.
func (s *PostgresViewStore) VideosWithOwners(ctx context.Context, ids []string) ([]models.WatchedVideo, error) {
	if len(ids) == 0 {
		return []models.WatchedVideo{}, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url, v.duration,
               v.views, v.published, v.created_at, v.updated_at,
               a.id, a.handle, a.display_name, a.avatar_url
        FROM videos v
        JOIN accounts a ON a.id = v.owner_id
        WHERE v.id = ANY($1::UUID[])
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query watched videos: %w", err)
	}
	return collectVideosWithOwners(rows)
}

func (s *PostgresViewStore) count(ctx context.Context, op, query string, args ...any) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var n int64
	if err := conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		if classify(err) == ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
