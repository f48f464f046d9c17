package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/social"
	"github.com/vidtube/backend/internal/videos"
)

// AccountService captures the account operations exposed over HTTP.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (models.PublicAccount, error)
	Login(ctx context.Context, in accounts.LoginInput) (accounts.AuthResult, error)
	Logout(ctx context.Context, accountID string) error
	Refresh(ctx context.Context, refreshToken string) (accounts.AuthResult, error)
	ChangePassword(ctx context.Context, accountID string, in accounts.ChangePasswordInput) error
	CurrentAccount(ctx context.Context, accountID string) (models.PublicAccount, error)
	UpdateDetails(ctx context.Context, accountID string, in accounts.UpdateDetailsInput) (models.PublicAccount, error)
	UpdateAvatar(ctx context.Context, accountID string, file media.File) (models.PublicAccount, error)
	UpdateCoverImage(ctx context.Context, accountID string, file media.File) (models.PublicAccount, error)
	DeleteCoverImage(ctx context.Context, accountID string) (models.PublicAccount, error)
}

// ViewService composes read-only channel views.
type ViewService interface {
	ChannelProfile(ctx context.Context, handle, requesterID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}

// StatsService produces dashboard counters.
type StatsService interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// VideoService captures the video operations exposed over HTTP.
type VideoService interface {
	Publish(ctx context.Context, ownerID string, in videos.PublishInput) (models.Video, error)
	Get(ctx context.Context, videoID, viewerID string) (models.Video, error)
	Update(ctx context.Context, videoID, accountID string, in videos.UpdateInput) (models.Video, error)
	Delete(ctx context.Context, videoID, accountID string) error
	TogglePublish(ctx context.Context, videoID, accountID string) (models.Video, error)
	List(ctx context.Context, in videos.ListInput) (videos.Page, error)
	ChannelVideos(ctx context.Context, ownerID string) ([]models.Video, error)
}

// SocialService captures subscriptions, likes, tweets and comments.
type SocialService interface {
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerSummary, error)
	ToggleLike(ctx context.Context, accountID string, target models.LikeTarget) (bool, error)
	LikedVideos(ctx context.Context, accountID string) ([]models.WatchedVideo, error)

	CreateTweet(ctx context.Context, ownerID string, in social.ContentInput) (models.Tweet, error)
	AccountTweets(ctx context.Context, ownerID string) ([]models.Tweet, error)
	UpdateTweet(ctx context.Context, tweetID, accountID string, in social.ContentInput) (models.Tweet, error)
	DeleteTweet(ctx context.Context, tweetID, accountID string) error

	AddComment(ctx context.Context, videoID, ownerID string, in social.ContentInput) (models.Comment, error)
	VideoComments(ctx context.Context, videoID string, page, limit int) (social.CommentPage, error)
	UpdateComment(ctx context.Context, commentID, accountID string, in social.ContentInput) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID, accountID string) error
}

// Authenticator resolves an access token to the account it was issued for.
type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
