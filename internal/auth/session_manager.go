package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the account owning a token no longer exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionMismatch is returned by SessionStore.CompareAndRotate when the
	// stored refresh token differs from the presented one.
	ErrSessionMismatch = errors.New("session token mismatch")
)

// SessionStore persists the single current refresh token of each account.
type SessionStore interface {
	// Rotate unconditionally replaces the stored refresh token.
	Rotate(ctx context.Context, accountID, refreshToken string) error
	// CompareAndRotate replaces the stored token with next only if it
	// currently equals presented. Check and write are one atomic step.
	CompareAndRotate(ctx context.Context, accountID, presented, next string) error
	// Clear removes the stored refresh token.
	Clear(ctx context.Context, accountID string) error
}

// Session is the result of a successful refresh.
type Session struct {
	AccountID string
	Tokens    models.SessionTokens
}

// Manager issues, rotates and revokes token pairs backed by a SessionStore.
type Manager struct {
	tokens *Tokens
	store  SessionStore
}

// NewManager constructs a Manager over the token codec and session store.
func NewManager(tokens *Tokens, store SessionStore) *Manager {
	if tokens == nil {
		panic("auth: tokens must not be nil")
	}
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{tokens: tokens, store: store}
}

// Tokens exposes the underlying codec for access-token verification.
func (m *Manager) Tokens() *Tokens { return m.tokens }

// Issue mints a fresh pair for the account and records the refresh token,
// invalidating whichever token was stored before.
func (m *Manager) Issue(ctx context.Context, accountID string) (models.SessionTokens, error) {
	tokens, err := m.mint(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.Rotate(ctx, accountID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// verify and must still be the account's stored token; a verified token that
// no longer matches yields ErrTokenReused.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return Session{}, err
	}

	accountID := claims.AccountID()
	tokens, err := m.mint(accountID)
	if err != nil {
		return Session{}, err
	}

	switch err := m.store.CompareAndRotate(ctx, accountID, refreshToken, tokens.RefreshToken); {
	case err == nil:
		return Session{AccountID: accountID, Tokens: tokens}, nil
	case errors.Is(err, ErrSessionMismatch):
		return Session{}, ErrTokenReused
	case errors.Is(err, ErrSessionNotFound):
		return Session{}, ErrTokenInvalid
	default:
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}
}

// Revoke clears the stored refresh token so no outstanding one can be redeemed.
func (m *Manager) Revoke(ctx context.Context, accountID string) error {
	if accountID == "" {
		return errors.New("account id must be provided")
	}
	return m.store.Clear(ctx, accountID)
}

// Authenticate verifies an access token and returns the account it belongs to.
func (m *Manager) Authenticate(accessToken string) (string, error) {
	claims, err := m.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return "", err
	}
	return claims.AccountID(), nil
}

func (m *Manager) mint(accountID string) (models.SessionTokens, error) {
	access, accessExp, err := m.tokens.IssueAccessToken(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refresh, refreshExp, err := m.tokens.IssueRefreshToken(accountID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
