// Package views assembles the read-only aggregate views of channels:
// profile, watch history and dashboard stats.
package views

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Store answers the lookups each view is joined from.
type Store interface {
	FindAccountByHandle(ctx context.Context, handle string) (models.Account, error)
	FindAccountByID(ctx context.Context, id string) (models.Account, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	VideosWithOwners(ctx context.Context, ids []string) ([]models.WatchedVideo, error)
	CountVideos(ctx context.Context, ownerID string) (int64, error)
	CountVideoLikes(ctx context.Context, ownerID string) (int64, error)
	SumVideoViews(ctx context.Context, ownerID string) (int64, error)
}

// Composer builds denormalized views from a Store.
type Composer struct {
	store Store
}

// NewComposer constructs a Composer over store.
func NewComposer(store Store) *Composer {
	return &Composer{store: store}
}

// ChannelProfile returns the public profile of the channel with handle, with
// follower counts and whether requesterID is subscribed. An empty requesterID
// is an anonymous viewer.
func (c *Composer) ChannelProfile(ctx context.Context, handle, requesterID string) (models.ChannelProfile, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return models.ChannelProfile{}, apperr.Validation("handle is required")
	}

	ctx, span := logging.StartSpan(ctx, "views.channel_profile")
	var err error
	defer func() { span.End(err) }()

	channel, err := c.store.FindAccountByHandle(ctx, handle)
	if err != nil {
		err = rootError("channel", err)
		return models.ChannelProfile{}, err
	}

	profile := models.ChannelProfile{
		ID:          channel.ID,
		Handle:      channel.Handle,
		DisplayName: channel.DisplayName,
		Email:       channel.Email,
		AvatarURL:   channel.AvatarURL,
		CoverURL:    channel.CoverURL,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.store.CountSubscribers(gctx, channel.ID)
		profile.SubscribersCount = n
		return err
	})
	g.Go(func() error {
		n, err := c.store.CountSubscriptions(gctx, channel.ID)
		profile.SubscribedToCount = n
		return err
	})
	if requesterID != "" {
		g.Go(func() error {
			subscribed, err := c.store.IsSubscribed(gctx, requesterID, channel.ID)
			profile.IsSubscribed = subscribed
			return err
		})
	}
	if err = g.Wait(); err != nil {
		err = apperr.Internal("load channel profile", err)
		return models.ChannelProfile{}, err
	}

	return profile, nil
}

// WatchHistory returns the account's watched videos with owner summaries, in
// exactly the stored order. Entries whose video no longer exists are skipped.
func (c *Composer) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "views.watch_history")
	var err error
	defer func() { span.End(err) }()

	account, err := c.store.FindAccountByID(ctx, accountID)
	if err != nil {
		err = rootError("account", err)
		return nil, err
	}

	history := []models.WatchedVideo{}
	if len(account.WatchHistory) == 0 {
		return history, nil
	}

	found, err := c.store.VideosWithOwners(ctx, account.WatchHistory)
	if err != nil {
		err = apperr.Internal("load watch history", err)
		return nil, err
	}

	byID := make(map[string]models.WatchedVideo, len(found))
	for _, entry := range found {
		byID[entry.ID] = entry
	}
	for _, id := range account.WatchHistory {
		if entry, ok := byID[id]; ok {
			history = append(history, entry)
		}
	}
	return history, nil
}

// ChannelStats aggregates subscriber, video, like and view totals for ownerID.
// A channel with no activity yields zero counters.
func (c *Composer) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "views.channel_stats")
	var err error
	defer func() { span.End(err) }()

	if _, err = c.store.FindAccountByID(ctx, ownerID); err != nil {
		err = rootError("channel", err)
		return models.ChannelStats{}, err
	}

	var stats models.ChannelStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.store.CountSubscribers(gctx, ownerID)
		stats.SubscribersCount = n
		return err
	})
	g.Go(func() error {
		n, err := c.store.CountVideos(gctx, ownerID)
		stats.VideosCount = n
		return err
	})
	g.Go(func() error {
		n, err := c.store.CountVideoLikes(gctx, ownerID)
		stats.LikesCount = n
		return err
	})
	g.Go(func() error {
		n, err := c.store.SumVideoViews(gctx, ownerID)
		stats.ViewsCount = n
		return err
	})
	if err = g.Wait(); err != nil {
		err = apperr.Internal("load channel stats", err)
		return models.ChannelStats{}, err
	}
	return stats, nil
}

func rootError(what string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("load "+what, err)
}
