// Package social implements subscriptions, likes, tweets and comments.
package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// AccountFinder resolves accounts by id.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
}

// VideoFinder resolves videos by id.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Subscriptions persists subscriber to channel edges.
type Subscriptions interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerSummary, error)
}

// Likes persists like edges.
type Likes interface {
	TargetExists(ctx context.Context, target models.LikeTarget) (bool, error)
	Toggle(ctx context.Context, accountID string, target models.LikeTarget) (bool, error)
	LikedVideos(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}

// Tweets persists tweets.
type Tweets interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// Comments persists video comments.
type Comments interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string, offset, limit int) ([]models.Comment, int64, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// StatsInvalidator drops cached channel stats.
type StatsInvalidator interface {
	Invalidate(ownerID string)
}

// Deps bundles the repositories used by the service. Stats may be nil.
type Deps struct {
	Accounts      AccountFinder
	Videos        VideoFinder
	Subscriptions Subscriptions
	Likes         Likes
	Tweets        Tweets
	Comments      Comments
	Stats         StatsInvalidator
}

// Service implements the social graph operations.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService wires the social service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// ToggleSubscription subscribes to or unsubscribes from a channel and reports
// whether the subscriber is subscribed afterwards.
func (s *Service) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return false, apperr.Validation("channel id is required")
	}
	if channelID == subscriberID {
		return false, apperr.Validation("cannot subscribe to your own channel")
	}
	if err := s.channelExists(ctx, channelID); err != nil {
		return false, err
	}

	subscribed, err := s.deps.Subscriptions.Toggle(ctx, subscriberID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperr.NotFound("channel not found")
		}
		return false, apperr.Internal("toggle subscription", err)
	}

	s.invalidate(channelID)
	return subscribed, nil
}

// ChannelSubscribers lists the accounts subscribed to a channel.
func (s *Service) ChannelSubscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error) {
	if err := s.channelExists(ctx, channelID); err != nil {
		return nil, err
	}
	subscribers, err := s.deps.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		return nil, apperr.Internal("list subscribers", err)
	}
	return nonNil(subscribers), nil
}

// SubscribedChannels lists the channels an account follows.
func (s *Service) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerSummary, error) {
	if err := s.channelExists(ctx, subscriberID); err != nil {
		return nil, err
	}
	channels, err := s.deps.Subscriptions.ListSubscribedChannels(ctx, subscriberID)
	if err != nil {
		return nil, apperr.Internal("list subscribed channels", err)
	}
	return nonNil(channels), nil
}

// ToggleLike likes or unlikes a video, comment or tweet and reports whether
// it is liked afterwards.
func (s *Service) ToggleLike(ctx context.Context, accountID string, target models.LikeTarget) (bool, error) {
	if target.IsZero() || strings.TrimSpace(target.ID()) == "" {
		return false, apperr.Validation("like target is required")
	}

	exists, err := s.deps.Likes.TargetExists(ctx, target)
	if err != nil {
		return false, apperr.Internal("check like target", err)
	}
	if !exists {
		return false, apperr.NotFound(string(target.Kind()) + " not found")
	}

	liked, err := s.deps.Likes.Toggle(ctx, accountID, target)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperr.NotFound(string(target.Kind()) + " not found")
		}
		return false, apperr.Internal("toggle like", err)
	}

	if target.Kind() == models.TargetVideo {
		if video, err := s.deps.Videos.FindByID(ctx, target.ID()); err == nil {
			s.invalidate(video.OwnerID)
		}
	}
	return liked, nil
}

// LikedVideos lists the videos an account liked, most recent like first.
func (s *Service) LikedVideos(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	videos, err := s.deps.Likes.LikedVideos(ctx, accountID)
	if err != nil {
		return nil, apperr.Internal("list liked videos", err)
	}
	if videos == nil {
		videos = []models.WatchedVideo{}
	}
	return videos, nil
}

func (s *Service) channelExists(ctx context.Context, id string) error {
	if _, err := s.deps.Accounts.FindByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("channel not found")
		}
		return apperr.Internal("load channel", err)
	}
	return nil
}

func (s *Service) invalidate(ownerID string) {
	if s.deps.Stats != nil {
		s.deps.Stats.Invalidate(ownerID)
	}
}

func nonNil(in []models.OwnerSummary) []models.OwnerSummary {
	if in == nil {
		return []models.OwnerSummary{}
	}
	return in
}
