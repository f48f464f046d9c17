package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "vidtube"

var (
	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenReused indicates a well-formed refresh token that a later rotation superseded.
	ErrTokenReused = errors.New("refresh token reused")
)

// Claims are the signed contents of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// AccountID returns the subject the token was issued to.
func (c *Claims) AccountID() string { return c.Subject }

// TokenConfig holds the per-class signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Tokens mints and verifies HS256 access and refresh tokens. Each class has
// its own secret, so a refresh token never verifies as an access token.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokens validates cfg and returns a token issuer/verifier.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("auth: token secrets must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token ttls must be positive")
	}
	return &Tokens{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// WithNowFunc overrides the clock used for issuing and verifying. Useful for tests.
func (t *Tokens) WithNowFunc(now func() time.Time) *Tokens {
	t.now = now
	return t
}

// IssueAccessToken mints a short-lived access token for the account.
func (t *Tokens) IssueAccessToken(accountID string) (string, time.Time, error) {
	return t.issue(accountID, t.accessSecret, t.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for the account.
func (t *Tokens) IssueRefreshToken(accountID string) (string, time.Time, error) {
	return t.issue(accountID, t.refreshSecret, t.refreshTTL)
}

// VerifyAccessToken checks signature and expiry of an access token.
func (t *Tokens) VerifyAccessToken(token string) (*Claims, error) {
	return t.verify(token, t.accessSecret)
}

// VerifyRefreshToken checks signature and expiry of a refresh token. It does
// not consult the session store; see Manager.Refresh.
func (t *Tokens) VerifyRefreshToken(token string) (*Claims, error) {
	return t.verify(token, t.refreshSecret)
}

func (t *Tokens) issue(accountID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, errors.New("account id must be provided")
	}

	now := t.now().UTC()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (t *Tokens) verify(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
