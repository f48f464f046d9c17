// Package accounts implements registration, login, session renewal and
// profile maintenance for accounts.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/validation"
)

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, account models.Account) error
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByLogin(ctx context.Context, identifier string) (models.Account, error)
	ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error)
	UpdateDetails(ctx context.Context, id, displayName, email string) (models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SwapAvatar(ctx context.Context, id, url string) (string, error)
	SwapCover(ctx context.Context, id, url string) (string, error)
}

// Sessions issues and rotates token pairs.
type Sessions interface {
	Issue(ctx context.Context, accountID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	Revoke(ctx context.Context, accountID string) error
}

// Reclaimer schedules deletion of media that is no longer referenced.
type Reclaimer interface {
	Enqueue(ctx context.Context, kind media.Kind, reference string) error
}

// Config holds service tunables. BcryptCost applies to new hashes and to the
// decoy comparison made for unknown logins.
type Config struct {
	BcryptCost int
}

// Service implements the account operations.
type Service struct {
	accounts  Repository
	sessions  Sessions
	store     media.Store
	reaper    Reclaimer
	passwords *auth.Passwords
	now       func() time.Time
}

// NewService wires the account service.
func NewService(accounts Repository, sessions Sessions, store media.Store, reaper Reclaimer, cfg Config) *Service {
	return &Service{
		accounts:  accounts,
		sessions:  sessions,
		store:     store,
		reaper:    reaper,
		passwords: auth.NewPasswords(cfg.BcryptCost),
		now:       time.Now,
	}
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Handle      string     `json:"handle" validate:"required,handle,max=30"`
	Email       string     `json:"email" validate:"required,email,max=254"`
	DisplayName string     `json:"displayName" validate:"notblank,max=80"`
	Password    string     `json:"password" validate:"required,min=8,max=72"`
	Avatar      media.File `json:"-"`
	Cover       media.File `json:"-"`
}

// LoginInput identifies the account by handle or email.
type LoginInput struct {
	Identifier string `json:"login" validate:"notblank"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordInput is the password change request.
type ChangePasswordInput struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// UpdateDetailsInput changes the editable profile fields.
type UpdateDetailsInput struct {
	DisplayName string `json:"displayName" validate:"notblank,max=80"`
	Email       string `json:"email" validate:"required,email,max=254"`
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Account models.PublicAccount `json:"user"`
	Tokens  models.SessionTokens `json:"tokens"`
}

// Register creates an account. The avatar is uploaded first; if the insert
// then fails, uploaded media is queued for deletion.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.PublicAccount, error) {
	in.Handle = strings.ToLower(strings.TrimSpace(in.Handle))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validation.Struct(&in); err != nil {
		return models.PublicAccount{}, err
	}
	if in.Avatar.IsZero() {
		return models.PublicAccount{}, apperr.Validation("avatar is required")
	}

	ctx, span := logging.StartSpan(ctx, "accounts.register")
	var err error
	defer func() { span.End(err) }()

	exists, err := s.accounts.ExistsByHandleOrEmail(ctx, in.Handle, in.Email)
	if err != nil {
		err = apperr.Internal("check account", err)
		return models.PublicAccount{}, err
	}
	if exists {
		err = apperr.Conflict("account with this handle or email already exists")
		return models.PublicAccount{}, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		err = apperr.Internal("hash password", err)
		return models.PublicAccount{}, err
	}

	avatar, err := s.upload(ctx, media.KindImage, in.Avatar, "avatar")
	if err != nil {
		return models.PublicAccount{}, err
	}
	var cover media.Asset
	if !in.Cover.IsZero() {
		if cover, err = s.upload(ctx, media.KindImage, in.Cover, "cover image"); err != nil {
			s.reclaim(ctx, media.KindImage, avatar.URL)
			return models.PublicAccount{}, err
		}
	}

	now := s.now().UTC()
	account := models.Account{
		ID:           uuid.NewString(),
		Handle:       in.Handle,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: hash,
		AvatarURL:    avatar.URL,
		CoverURL:     cover.URL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	span.Annotate("new_account_id", account.ID)
	if err = s.accounts.Create(ctx, account); err != nil {
		s.reclaim(ctx, media.KindImage, avatar.URL)
		s.reclaim(ctx, media.KindImage, cover.URL)
		if errors.Is(err, repositories.ErrConflict) {
			err = apperr.Conflict("account with this handle or email already exists")
			return models.PublicAccount{}, err
		}
		err = apperr.Internal("create account", err)
		return models.PublicAccount{}, err
	}

	return account.Public(), nil
}

// Login verifies credentials and starts a new session. Every failure is the
// same generic invalid credentials error; the precise cause is only logged.
func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if err := validation.Struct(&in); err != nil {
		return AuthResult{}, err
	}
	logger := logging.FromContext(ctx)

	account, err := s.accounts.FindByLogin(ctx, strings.TrimSpace(in.Identifier))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			metrics.RecordAuth("login", "error")
			return AuthResult{}, apperr.Internal("load account", err)
		}
		s.passwords.VerifyDecoy(in.Password)
		logger.Info("login rejected", "cause", "account not found")
		metrics.RecordAuth("login", "not_found")
		return AuthResult{}, apperr.InvalidCredentials()
	}

	if !s.passwords.Verify(in.Password, account.PasswordHash) {
		logger.Info("login rejected", "cause", "password mismatch", "account_id", account.ID)
		metrics.RecordAuth("login", "bad_password")
		return AuthResult{}, apperr.InvalidCredentials()
	}

	tokens, err := s.sessions.Issue(ctx, account.ID)
	if err != nil {
		metrics.RecordAuth("login", "error")
		return AuthResult{}, apperr.Internal("issue session", err)
	}

	metrics.RecordAuth("login", "ok")
	return AuthResult{Account: account.Public(), Tokens: tokens}, nil
}

// Logout clears the account's stored refresh token.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if err := s.sessions.Revoke(ctx, accountID); err != nil {
		metrics.RecordAuth("logout", "error")
		if errors.Is(err, auth.ErrSessionNotFound) {
			return apperr.Unauthorized(apperr.ReasonInvalid, "account no longer exists")
		}
		return apperr.Internal("clear session", err)
	}
	metrics.RecordAuth("logout", "ok")
	return nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		metrics.RecordAuth("refresh", "missing")
		return AuthResult{}, apperr.Unauthorized(apperr.ReasonInvalid, "refresh token is required")
	}

	session, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		appErr := tokenError(err, "refresh token")
		logging.FromContext(ctx).Info("refresh rejected", "cause", err.Error())
		metrics.RecordAuth("refresh", outcome(appErr))
		return AuthResult{}, appErr
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		metrics.RecordAuth("refresh", "error")
		if errors.Is(err, repositories.ErrNotFound) {
			return AuthResult{}, apperr.Unauthorized(apperr.ReasonInvalid, "invalid refresh token")
		}
		return AuthResult{}, apperr.Internal("load account", err)
	}

	metrics.RecordAuth("refresh", "ok")
	return AuthResult{Account: account.Public(), Tokens: session.Tokens}, nil
}

// ChangePassword re-verifies the old password, stores the new hash and ends
// all sessions of the account.
func (s *Service) ChangePassword(ctx context.Context, accountID string, in ChangePasswordInput) error {
	if err := validation.Struct(&in); err != nil {
		return err
	}

	account, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.passwords.Verify(in.OldPassword, account.PasswordHash) {
		metrics.RecordAuth("password", "bad_password")
		return apperr.Validation("old password is incorrect")
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("account not found")
		}
		return apperr.Internal("update password", err)
	}

	metrics.RecordAuth("password", "ok")
	return nil
}

// CurrentAccount returns the public projection of the account.
func (s *Service) CurrentAccount(ctx context.Context, accountID string) (models.PublicAccount, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return models.PublicAccount{}, err
	}
	return account.Public(), nil
}

// UpdateDetails changes display name and email.
func (s *Service) UpdateDetails(ctx context.Context, accountID string, in UpdateDetailsInput) (models.PublicAccount, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(&in); err != nil {
		return models.PublicAccount{}, err
	}

	account, err := s.accounts.UpdateDetails(ctx, accountID, in.DisplayName, in.Email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return models.PublicAccount{}, apperr.Conflict("email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			return models.PublicAccount{}, apperr.NotFound("account not found")
		}
		return models.PublicAccount{}, apperr.Internal("update account", err)
	}
	return account.Public(), nil
}

// UpdateAvatar uploads a new avatar and queues the previous one for deletion.
func (s *Service) UpdateAvatar(ctx context.Context, accountID string, file media.File) (models.PublicAccount, error) {
	if file.IsZero() {
		return models.PublicAccount{}, apperr.Validation("avatar is required")
	}
	return s.replaceImage(ctx, accountID, file, "avatar", s.accounts.SwapAvatar)
}

// UpdateCoverImage uploads a new cover image and queues the previous one for deletion.
func (s *Service) UpdateCoverImage(ctx context.Context, accountID string, file media.File) (models.PublicAccount, error) {
	if file.IsZero() {
		return models.PublicAccount{}, apperr.Validation("cover image is required")
	}
	return s.replaceImage(ctx, accountID, file, "cover image", s.accounts.SwapCover)
}

// DeleteCoverImage clears the cover image and queues it for deletion.
func (s *Service) DeleteCoverImage(ctx context.Context, accountID string) (models.PublicAccount, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return models.PublicAccount{}, err
	}
	if account.CoverURL == "" {
		return models.PublicAccount{}, apperr.Validation("no cover image to delete")
	}

	previous, err := s.accounts.SwapCover(ctx, accountID, "")
	if err != nil {
		return models.PublicAccount{}, swapError(err)
	}
	s.reclaim(ctx, media.KindImage, previous)

	account.CoverURL = ""
	return account.Public(), nil
}

type swapFunc func(ctx context.Context, id, url string) (string, error)

func (s *Service) replaceImage(ctx context.Context, accountID string, file media.File, label string, swap swapFunc) (models.PublicAccount, error) {
	asset, err := s.upload(ctx, media.KindImage, file, label)
	if err != nil {
		return models.PublicAccount{}, err
	}

	previous, err := swap(ctx, accountID, asset.URL)
	if err != nil {
		s.reclaim(ctx, media.KindImage, asset.URL)
		return models.PublicAccount{}, swapError(err)
	}
	s.reclaim(ctx, media.KindImage, previous)

	return s.CurrentAccount(ctx, accountID)
}

func (s *Service) upload(ctx context.Context, kind media.Kind, file media.File, label string) (media.Asset, error) {
	asset, err := s.store.Upload(ctx, kind, file)
	if err != nil {
		return media.Asset{}, apperr.Upstream("failed to upload "+label, err)
	}
	if asset.URL == "" {
		return media.Asset{}, apperr.Upstream("failed to upload "+label, media.ErrStoreUnavailable)
	}
	return asset, nil
}

func (s *Service) reclaim(ctx context.Context, kind media.Kind, reference string) {
	if reference == "" || s.reaper == nil {
		return
	}
	if err := s.reaper.Enqueue(ctx, kind, reference); err != nil {
		logging.FromContext(ctx).Warn("queue media deletion", "reference", reference, "error", err)
	}
}

func (s *Service) load(ctx context.Context, accountID string) (models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, apperr.Internal("load account", err)
	}
	return account, nil
}

func swapError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return apperr.Internal("update account media", err)
}

// tokenError maps token verification failures to Unauthorized reasons.
func tokenError(err error, what string) *apperr.Error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return apperr.Unauthorized(apperr.ReasonExpired, what+" expired")
	case errors.Is(err, auth.ErrTokenReused):
		return apperr.Unauthorized(apperr.ReasonReused, what+" has already been used")
	case errors.Is(err, auth.ErrTokenInvalid):
		return apperr.Unauthorized(apperr.ReasonInvalid, "invalid "+what)
	}
	return apperr.Internal("verify "+what, err)
}

// TokenError exposes the token failure mapping for access-token checks.
func TokenError(err error) *apperr.Error {
	return tokenError(err, "access token")
}

func outcome(err *apperr.Error) string {
	if err.Kind == apperr.KindUnauthorized {
		return strings.ToLower(string(err.Reason))
	}
	return "error"
}
