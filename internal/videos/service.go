// Package videos publishes, serves and lists videos.
package videos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/validation"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Repository is the video persistence the service needs.
type Repository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, query repositories.VideoQuery) ([]models.Video, int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
}

// WatchRecorder appends a video to an account's watch history.
type WatchRecorder interface {
	RecordWatch(ctx context.Context, accountID, videoID string) error
}

// DurationProber reads the length of a local media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Reclaimer schedules deletion of media that is no longer referenced.
type Reclaimer interface {
	Enqueue(ctx context.Context, kind media.Kind, reference string) error
}

// StatsInvalidator drops cached channel stats.
type StatsInvalidator interface {
	Invalidate(ownerID string)
}

// Deps bundles the collaborators of the service. Prober and Stats may be nil.
type Deps struct {
	Videos  Repository
	Watches WatchRecorder
	Store   media.Store
	Prober  DurationProber
	Reaper  Reclaimer
	Stats   StatsInvalidator
}

// Service implements the video operations.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService wires the video service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// PublishInput is the upload request for a new video.
type PublishInput struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"notblank,max=5000"`
	Video       media.File `json:"-"`
	Thumbnail   media.File `json:"-"`
}

// UpdateInput edits a video. A zero Thumbnail keeps the current one.
type UpdateInput struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"notblank,max=5000"`
	Thumbnail   media.File `json:"-"`
}

// ListInput selects a page of published videos.
type ListInput struct {
	Query    string `json:"query" validate:"max=200"`
	SortBy   string `json:"sortBy" validate:"omitempty,oneof=createdAt views duration title"`
	SortType string `json:"sortType" validate:"omitempty,oneof=asc desc"`
	Page     int    `json:"page" validate:"gte=0,lte=100000"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
	OwnerID  string `json:"userId" validate:"omitempty,uuid"`
}

// Page is one page of a video listing.
type Page struct {
	Videos     []models.Video `json:"docs"`
	Total      int64          `json:"totalDocs"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

// Publish uploads the video file and thumbnail and stores an unpublished video.
func (s *Service) Publish(ctx context.Context, ownerID string, in PublishInput) (models.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(&in); err != nil {
		return models.Video{}, err
	}
	if in.Video.IsZero() {
		return models.Video{}, apperr.Validation("video file is required")
	}
	if in.Thumbnail.IsZero() {
		return models.Video{}, apperr.Validation("thumbnail is required")
	}

	ctx, span := logging.StartSpan(ctx, "videos.publish")
	var err error
	defer func() { span.End(err) }()

	asset, err := s.deps.Store.Upload(ctx, media.KindVideo, in.Video)
	if err != nil {
		err = apperr.Upstream("failed to upload video", err)
		return models.Video{}, err
	}
	thumb, err := s.deps.Store.Upload(ctx, media.KindImage, in.Thumbnail)
	if err != nil {
		s.reclaim(ctx, media.KindVideo, asset.URL)
		err = apperr.Upstream("failed to upload thumbnail", err)
		return models.Video{}, err
	}

	duration := asset.Duration
	if duration <= 0 && s.deps.Prober != nil {
		probed, probeErr := s.deps.Prober.Duration(ctx, in.Video.Path)
		if probeErr != nil {
			logging.FromContext(ctx).Warn("probe video duration", "error", probeErr)
		} else {
			duration = probed
		}
	}

	now := s.now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        in.Title,
		Description:  in.Description,
		VideoURL:     asset.URL,
		ThumbnailURL: thumb.URL,
		Duration:     duration,
		Published:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.Annotate("video_id", video.ID, "duration", duration)
	if err = s.deps.Videos.Create(ctx, video); err != nil {
		s.reclaim(ctx, media.KindVideo, asset.URL)
		s.reclaim(ctx, media.KindImage, thumb.URL)
		if errors.Is(err, repositories.ErrNotFound) {
			err = apperr.NotFound("account not found")
			return models.Video{}, err
		}
		err = apperr.Internal("create video", err)
		return models.Video{}, err
	}

	s.invalidate(ownerID)
	return video, nil
}

// Get returns a video. Unpublished videos are only visible to their owner.
// Any other viewer bumps the view counter; a signed-in one also gets the
// video appended to their watch history.
func (s *Service) Get(ctx context.Context, videoID, viewerID string) (models.Video, error) {
	video, err := s.find(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	isOwner := viewerID != "" && viewerID == video.OwnerID
	if !video.Published && !isOwner {
		return models.Video{}, apperr.NotFound("video not found")
	}
	if isOwner {
		return video, nil
	}

	views, err := s.deps.Videos.IncrementViews(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, apperr.Internal("count view", err)
	}
	video.Views = views

	if viewerID != "" {
		if err := s.deps.Watches.RecordWatch(ctx, viewerID, videoID); err != nil {
			logging.FromContext(ctx).Warn("record watch history", "video_id", videoID, "error", err)
		}
	}
	return video, nil
}

// Update edits title and description and optionally replaces the thumbnail.
func (s *Service) Update(ctx context.Context, videoID, accountID string, in UpdateInput) (models.Video, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(&in); err != nil {
		return models.Video{}, err
	}

	video, err := s.owned(ctx, videoID, accountID)
	if err != nil {
		return models.Video{}, err
	}

	previousThumb := ""
	if !in.Thumbnail.IsZero() {
		thumb, err := s.deps.Store.Upload(ctx, media.KindImage, in.Thumbnail)
		if err != nil {
			return models.Video{}, apperr.Upstream("failed to upload thumbnail", err)
		}
		previousThumb = video.ThumbnailURL
		video.ThumbnailURL = thumb.URL
	}

	video.Title = in.Title
	video.Description = in.Description
	video.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, video); err != nil {
		if previousThumb != "" {
			s.reclaim(ctx, media.KindImage, video.ThumbnailURL)
		}
		return models.Video{}, err
	}

	s.reclaim(ctx, media.KindImage, previousThumb)
	return video, nil
}

// Delete removes the video record and queues its media for deletion.
func (s *Service) Delete(ctx context.Context, videoID, accountID string) error {
	video, err := s.owned(ctx, videoID, accountID)
	if err != nil {
		return err
	}

	if err := s.deps.Videos.Delete(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("video not found")
		}
		return apperr.Internal("delete video", err)
	}

	s.reclaim(ctx, media.KindVideo, video.VideoURL)
	s.reclaim(ctx, media.KindImage, video.ThumbnailURL)
	s.invalidate(video.OwnerID)
	return nil
}

// TogglePublish flips the published flag.
func (s *Service) TogglePublish(ctx context.Context, videoID, accountID string) (models.Video, error) {
	video, err := s.owned(ctx, videoID, accountID)
	if err != nil {
		return models.Video{}, err
	}

	video.Published = !video.Published
	video.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, video); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// List returns a page of published videos matching the query.
func (s *Service) List(ctx context.Context, in ListInput) (Page, error) {
	if err := validation.Struct(&in); err != nil {
		return Page{}, err
	}
	page := in.Page
	if page == 0 {
		page = 1
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	videos, total, err := s.deps.Videos.List(ctx, repositories.VideoQuery{
		Search:     in.Query,
		OwnerID:    in.OwnerID,
		SortBy:     in.SortBy,
		Descending: in.SortType != "asc",
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return Page{}, apperr.Internal("list videos", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}

	return Page{
		Videos:     videos,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// ChannelVideos returns every video of the owner, newest first, drafts included.
func (s *Service) ChannelVideos(ctx context.Context, ownerID string) ([]models.Video, error) {
	videos, err := s.deps.Videos.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("list channel videos", err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return videos, nil
}

func (s *Service) find(ctx context.Context, videoID string) (models.Video, error) {
	if strings.TrimSpace(videoID) == "" {
		return models.Video{}, apperr.Validation("video id is required")
	}
	video, err := s.deps.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, apperr.NotFound("video not found")
		}
		return models.Video{}, apperr.Internal("load video", err)
	}
	return video, nil
}

func (s *Service) owned(ctx context.Context, videoID, accountID string) (models.Video, error) {
	video, err := s.find(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if video.OwnerID != accountID {
		return models.Video{}, apperr.Forbidden("only the owner can modify this video")
	}
	return video, nil
}

func (s *Service) save(ctx context.Context, video models.Video) error {
	if err := s.deps.Videos.Update(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("video not found")
		}
		return apperr.Internal("update video", err)
	}
	return nil
}

func (s *Service) reclaim(ctx context.Context, kind media.Kind, reference string) {
	if reference == "" || s.deps.Reaper == nil {
		return
	}
	if err := s.deps.Reaper.Enqueue(ctx, kind, reference); err != nil {
		logging.FromContext(ctx).Warn("queue media deletion", "reference", reference, "error", err)
	}
}

func (s *Service) invalidate(ownerID string) {
	if s.deps.Stats != nil {
		s.deps.Stats.Invalidate(ownerID)
	}
}
