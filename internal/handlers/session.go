package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// authenticate resolves the caller from a bearer header or the access token
// cookie. When required is false, anonymous requests pass through; a
// presented but invalid token is still rejected.
func authenticate(authn Authenticator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				if required {
					respondError(r.Context(), w, apperr.Unauthorized(apperr.ReasonInvalid, "authentication required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			accountID, err := authn.Authenticate(token)
			if err != nil {
				respondError(r.Context(), w, accounts.TokenError(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(logging.WithAccountID(r.Context(), accountID)))
		})
	}
}

func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(accessCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// currentAccount returns the authenticated account id; empty for anonymous requests.
func currentAccount(r *http.Request) string {
	return logging.AccountIDFromContext(r.Context())
}

// cookieJar writes and clears the session cookies.
type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, c.cookie(accessCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, c.cookie(refreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (c cookieJar) clear(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		cookie := c.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (c cookieJar) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
