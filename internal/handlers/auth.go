package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

type imageUpdater func(ctx context.Context, accountID string, file media.File) (models.PublicAccount, error)

// AccountHandler implements registration, session and profile endpoints.
type AccountHandler struct {
	Accounts  AccountService
	Views     ViewService
	Cookies   cookieJar
	MaxUpload int64
}

// Register handles POST /api/v1/users/register (multipart).
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := parseUploads(w, r, h.MaxUpload)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	in := accounts.RegisterInput{
		Handle:      form.value("handle"),
		Email:       form.value("email"),
		DisplayName: form.value("displayName"),
		Password:    r.FormValue("password"),
	}
	if in.Avatar, err = form.file("avatar"); err != nil {
		respondError(ctx, w, err)
		return
	}
	if in.Cover, err = form.file("coverImage"); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.Register(ctx, in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Info("account registered", "account_id", account.ID)
	respondData(ctx, w, http.StatusCreated, account, "account registered")
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/users/login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	identifier := req.Handle
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Email
	}

	result, err := h.Accounts.Login(ctx, accounts.LoginInput{Identifier: identifier, Password: req.Password})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.set(w, result.Tokens)
	respondData(ctx, w, http.StatusOK, result, "logged in")
}

// Logout handles POST /api/v1/users/logout.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Accounts.Logout(ctx, currentAccount(r)); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clear(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "logged out")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/v1/users/refresh-token. The token is read from
// the refresh cookie, falling back to the JSON body.
func (h AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		token = cookie.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		token = req.RefreshToken
	}

	result, err := h.Accounts.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.set(w, result.Tokens)
	respondData(ctx, w, http.StatusOK, result, "session refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in accounts.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.ChangePassword(ctx, currentAccount(r), in); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.Cookies.clear(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "password changed")
}

// Current handles GET /api/v1/users/current-user.
func (h AccountHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.Accounts.CurrentAccount(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, account, "current account")
}

// UpdateDetails handles PATCH /api/v1/users/update-account.
func (h AccountHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in accounts.UpdateDetailsInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.UpdateDetails(ctx, currentAccount(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, account, "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart field "avatar").
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart field "coverImage").
func (h AccountHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCoverImage)
}

// DeleteCoverImage handles DELETE /api/v1/users/cover-image.
func (h AccountHandler) DeleteCoverImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.Accounts.DeleteCoverImage(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, account, "cover image removed")
}

// ChannelProfile handles GET /api/v1/users/c/{handle}.
func (h AccountHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.Views.ChannelProfile(ctx, chi.URLParam(r, "handle"), currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, profile, "channel fetched")
}

// WatchHistory handles GET /api/v1/users/history.
func (h AccountHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := h.Views.WatchHistory(ctx, currentAccount(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, history, "watch history fetched")
}

func (h AccountHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater) {
	ctx := r.Context()

	form, err := parseUploads(w, r, h.MaxUpload)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.cleanup()

	file, err := form.file(field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if file.IsZero() {
		respondError(ctx, w, apperr.Validation(field+" file is required"))
		return
	}

	account, err := update(ctx, currentAccount(r), file)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, account, field+" updated")
}
