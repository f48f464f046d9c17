package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/social"
)

// SocialHandler serves subscriptions, likes, tweets and comments.
type SocialHandler struct {
	Social SocialService
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{channelID}.
func (h SocialHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribed, err := h.Social.ToggleSubscription(ctx, currentAccount(r), chi.URLParam(r, "channelID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelID}.
func (h SocialHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribers, err := h.Social.ChannelSubscribers(ctx, chi.URLParam(r, "channelID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, subscribers, "subscribers fetched")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberID}.
func (h SocialHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels, err := h.Social.SubscribedChannels(ctx, chi.URLParam(r, "subscriberID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, channels, "subscribed channels fetched")
}

// ToggleLike handles POST /api/v1/likes/toggle/{kind}/{targetID} where kind
// is video, comment or tweet.
func (h SocialHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := models.ParseLikeTarget(chi.URLParam(r, "kind"), chi.URLParam(r, "targetID"))
	if err != nil {
		respondError(ctx, w, apperr.Validation("invalid like target", err.Error()))
		return
	}

	liked, err := h.Social.ToggleLike(ctx, currentAccount(r), target)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := "unliked"
	if liked {
		message = "liked"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h SocialHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Social.LikedVideos(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, list, "liked videos fetched")
}

// CreateTweet handles POST /api/v1/tweets.
func (h SocialHandler) CreateTweet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in social.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	tweet, err := h.Social.CreateTweet(ctx, currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// AccountTweets handles GET /api/v1/tweets/user/{accountID}.
func (h SocialHandler) AccountTweets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweets, err := h.Social.AccountTweets(ctx, chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, tweets, "tweets fetched")
}

// UpdateTweet handles PATCH /api/v1/tweets/{tweetID}.
func (h SocialHandler) UpdateTweet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in social.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	tweet, err := h.Social.UpdateTweet(ctx, chi.URLParam(r, "tweetID"), currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, tweet, "tweet updated")
}

// DeleteTweet handles DELETE /api/v1/tweets/{tweetID}.
func (h SocialHandler) DeleteTweet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Social.DeleteTweet(ctx, chi.URLParam(r, "tweetID"), currentAccount(r)); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, struct{}{}, "tweet deleted")
}

// VideoComments handles GET /api/v1/comments/{videoID}.
func (h SocialHandler) VideoComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := intParam(r.URL.Query().Get("page"), "page")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	comments, err := h.Social.VideoComments(ctx, chi.URLParam(r, "videoID"), page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, comments, "comments fetched")
}

// AddComment handles POST /api/v1/comments/{videoID}.
func (h SocialHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in social.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Social.AddComment(ctx, chi.URLParam(r, "videoID"), currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, comment, "comment added")
}

// UpdateComment handles PATCH /api/v1/comments/c/{commentID}.
func (h SocialHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in social.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Social.UpdateComment(ctx, chi.URLParam(r, "commentID"), currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, comment, "comment updated")
}

// DeleteComment handles DELETE /api/v1/comments/c/{commentID}.
func (h SocialHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Social.DeleteComment(ctx, chi.URLParam(r, "commentID"), currentAccount(r)); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, struct{}{}, "comment deleted")
}
