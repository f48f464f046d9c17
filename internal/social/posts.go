package social

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/validation"
)

const (
	defaultCommentPage = 10
	maxCommentPage     = 100
)

// ContentInput carries the text of a tweet or comment.
type ContentInput struct {
	Content string `json:"content" validate:"notblank,max=1000"`
}

// CommentPage is one page of a video's comments.
type CommentPage struct {
	Comments   []models.Comment `json:"docs"`
	Total      int64            `json:"totalDocs"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// CreateTweet posts a tweet for the owner.
func (s *Service) CreateTweet(ctx context.Context, ownerID string, in ContentInput) (models.Tweet, error) {
	content, err := cleanContent(in)
	if err != nil {
		return models.Tweet{}, err
	}

	now := s.now().UTC()
	tweet := models.Tweet{ID: uuid.NewString(), OwnerID: ownerID, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Tweets.Create(ctx, tweet); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Tweet{}, apperr.NotFound("account not found")
		}
		return models.Tweet{}, apperr.Internal("create tweet", err)
	}
	return tweet, nil
}

// Tweet returns a single tweet.
func (s *Service) Tweet(ctx context.Context, tweetID string) (models.Tweet, error) {
	tweet, err := s.deps.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Tweet{}, apperr.NotFound("tweet not found")
		}
		return models.Tweet{}, apperr.Internal("load tweet", err)
	}
	return tweet, nil
}

// AccountTweets lists an account's tweets, newest first.
func (s *Service) AccountTweets(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	if err := s.channelExists(ctx, ownerID); err != nil {
		return nil, err
	}
	tweets, err := s.deps.Tweets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("list tweets", err)
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}
	return tweets, nil
}

// UpdateTweet replaces the text of a tweet owned by accountID.
func (s *Service) UpdateTweet(ctx context.Context, tweetID, accountID string, in ContentInput) (models.Tweet, error) {
	content, err := cleanContent(in)
	if err != nil {
		return models.Tweet{}, err
	}
	tweet, err := s.Tweet(ctx, tweetID)
	if err != nil {
		return models.Tweet{}, err
	}
	if tweet.OwnerID != accountID {
		return models.Tweet{}, apperr.Forbidden("only the owner can modify this tweet")
	}

	updated, err := s.deps.Tweets.UpdateContent(ctx, tweetID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Tweet{}, apperr.NotFound("tweet not found")
		}
		return models.Tweet{}, apperr.Internal("update tweet", err)
	}
	return updated, nil
}

// DeleteTweet removes a tweet owned by accountID.
func (s *Service) DeleteTweet(ctx context.Context, tweetID, accountID string) error {
	tweet, err := s.Tweet(ctx, tweetID)
	if err != nil {
		return err
	}
	if tweet.OwnerID != accountID {
		return apperr.Forbidden("only the owner can delete this tweet")
	}
	if err := s.deps.Tweets.Delete(ctx, tweetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("tweet not found")
		}
		return apperr.Internal("delete tweet", err)
	}
	return nil
}

// AddComment attaches a comment to a video.
func (s *Service) AddComment(ctx context.Context, videoID, ownerID string, in ContentInput) (models.Comment, error) {
	content, err := cleanContent(in)
	if err != nil {
		return models.Comment{}, err
	}
	if err := s.videoExists(ctx, videoID); err != nil {
		return models.Comment{}, err
	}

	now := s.now().UTC()
	comment := models.Comment{ID: uuid.NewString(), VideoID: videoID, OwnerID: ownerID, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, apperr.NotFound("video not found")
		}
		return models.Comment{}, apperr.Internal("create comment", err)
	}
	return comment, nil
}

// VideoComments returns one page of a video's comments, newest first.
func (s *Service) VideoComments(ctx context.Context, videoID string, page, limit int) (CommentPage, error) {
	if page < 0 || limit < 0 || limit > maxCommentPage {
		return CommentPage{}, apperr.Validation("page must be at least 1 and limit between 1 and 100")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultCommentPage
	}
	if err := s.videoExists(ctx, videoID); err != nil {
		return CommentPage{}, err
	}

	comments, total, err := s.deps.Comments.ListByVideo(ctx, videoID, (page-1)*limit, limit)
	if err != nil {
		return CommentPage{}, apperr.Internal("list comments", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return CommentPage{
		Comments:   comments,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdateComment replaces the text of a comment owned by accountID.
func (s *Service) UpdateComment(ctx context.Context, commentID, accountID string, in ContentInput) (models.Comment, error) {
	content, err := cleanContent(in)
	if err != nil {
		return models.Comment{}, err
	}
	if _, err := s.ownedComment(ctx, commentID, accountID); err != nil {
		return models.Comment{}, err
	}

	updated, err := s.deps.Comments.UpdateContent(ctx, commentID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, apperr.NotFound("comment not found")
		}
		return models.Comment{}, apperr.Internal("update comment", err)
	}
	return updated, nil
}

// DeleteComment removes a comment owned by accountID.
func (s *Service) DeleteComment(ctx context.Context, commentID, accountID string) error {
	if _, err := s.ownedComment(ctx, commentID, accountID); err != nil {
		return err
	}
	if err := s.deps.Comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Internal("delete comment", err)
	}
	return nil
}

func (s *Service) ownedComment(ctx context.Context, commentID, accountID string) (models.Comment, error) {
	comment, err := s.deps.Comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, apperr.NotFound("comment not found")
		}
		return models.Comment{}, apperr.Internal("load comment", err)
	}
	if comment.OwnerID != accountID {
		return models.Comment{}, apperr.Forbidden("only the owner can modify this comment")
	}
	return comment, nil
}

func (s *Service) videoExists(ctx context.Context, videoID string) error {
	if _, err := s.deps.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("video not found")
		}
		return apperr.Internal("load video", err)
	}
	return nil
}

func cleanContent(in ContentInput) (string, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(&in); err != nil {
		return "", err
	}
	return in.Content, nil
}
