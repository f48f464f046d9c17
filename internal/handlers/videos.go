package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/videos"
)

// VideoHandler provides endpoints for publishing, watching and listing videos.
type VideoHandler struct {
	Videos    VideoService
	Stats     StatsService
	MaxUpload int64
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	limit, err := intParam(query.Get("limit"), "limit")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := h.Videos.List(ctx, videos.ListInput{
		Query:    query.Get("query"),
		SortBy:   query.Get("sortBy"),
		SortType: query.Get("sortType"),
		Page:     page,
		Limit:    limit,
		OwnerID:  query.Get("userId"),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, result, "videos fetched")
}

// Publish handles POST /api/v1/videos (multipart fields videoFile and thumbnail).
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := parseUploads(w, r, h.MaxUpload)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	in := videos.PublishInput{
		Title:       form.value("title"),
		Description: form.value("description"),
	}
	if in.Video, err = form.file("videoFile"); err != nil {
		respondError(ctx, w, err)
		return
	}
	if in.Thumbnail, err = form.file("thumbnail"); err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Publish(ctx, currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, video, "video uploaded")
}

// Get handles GET /api/v1/videos/{videoID}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.Get(ctx, chi.URLParam(r, "videoID"), currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, video, "video fetched")
}

// Update handles PATCH /api/v1/videos/{videoID} (multipart, thumbnail optional).
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := parseUploads(w, r, h.MaxUpload)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	in := videos.UpdateInput{
		Title:       form.value("title"),
		Description: form.value("description"),
	}
	if in.Thumbnail, err = form.file("thumbnail"); err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Update(ctx, chi.URLParam(r, "videoID"), currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, video, "video updated")
}

// Delete handles DELETE /api/v1/videos/{videoID}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Videos.Delete(ctx, chi.URLParam(r, "videoID"), currentAccount(r)); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, struct{}{}, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoID}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.TogglePublish(ctx, chi.URLParam(r, "videoID"), currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, video, "publish status toggled")
}

// DashboardStats handles GET /api/v1/dashboard/stats.
func (h VideoHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.Stats.ChannelStats(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, stats, "channel stats fetched")
}

// DashboardVideos handles GET /api/v1/dashboard/videos.
func (h VideoHandler) DashboardVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Videos.ChannelVideos(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, list, "channel videos fetched")
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name + " must be a number")
	}
	return n, nil
}
