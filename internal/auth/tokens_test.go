package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewTokensRejectsBadConfig(t *testing.T) {
	_, err := NewTokens(TokenConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewTokens(TokenConfig{AccessSecret: "a", RefreshSecret: "b"})
	assert.Error(t, err)
}

func TestTokensIssueAreUnique(t *testing.T) {
	tokens := newTestTokens(t)
	first, _, err := tokens.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, _, err := tokens.IssueRefreshToken("user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestTokensVerifyTampered(t *testing.T) {
	tokens := newTestTokens(t)
	token, _, err := tokens.IssueAccessToken("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = tokens.VerifyAccessToken(tampered)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestTokensVerifyWithOtherSecret(t *testing.T) {
	tokens := newTestTokens(t)
	other, err := NewTokens(TokenConfig{
		AccessSecret:  "another-access-secret-another-access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "another-refresh-secret-another-refresh-secret",
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	token, _, err := other.IssueAccessToken("user-1")
	require.NoError(t, err)

	_, err = tokens.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
	assert.False(t, VerifyPassword("correct horse", ""))

	_, err = HashPassword("", 4)
	assert.Error(t, err)
}

func TestPasswordsDecoyMatchesConfiguredCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost, 6} {
		passwords := NewPasswords(cost)
		decoyCost, err := bcrypt.Cost(passwords.decoy)
		require.NoError(t, err)
		assert.Equal(t, cost, decoyCost)

		hash, err := passwords.Hash("correct horse")
		require.NoError(t, err)
		hashCost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, decoyCost, hashCost)

		assert.True(t, passwords.Verify("correct horse", hash))
		assert.False(t, passwords.Verify("correct horse", ""))
	}

	assert.Equal(t, bcrypt.DefaultCost, NewPasswords(99).Cost())
}
