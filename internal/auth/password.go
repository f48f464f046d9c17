package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Passwords hashes and verifies passwords at one bcrypt cost. It keeps a
// decoy hash at that same cost so a login for an unknown account spends as
// long as a login with a wrong password.
type Passwords struct {
	cost  int
	decoy []byte
}

// NewPasswords builds a hasher for cost. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte("vidtube-decoy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("auth: hash decoy password: %v", err))
	}
	return &Passwords{cost: cost, decoy: decoy}
}

// Cost reports the bcrypt cost new hashes are created with.
func (p *Passwords) Cost() int { return p.cost }

// Hash returns a salted bcrypt hash of the plaintext password.
func (p *Passwords) Hash(plaintext string) (string, error) {
	return HashPassword(plaintext, p.cost)
}

// Verify reports whether plaintext matches the stored hash. An empty stored
// hash is compared against the decoy and never matches.
func (p *Passwords) Verify(plaintext, storedHash string) bool {
	if storedHash == "" {
		p.VerifyDecoy(plaintext)
		return false
	}
	return VerifyPassword(plaintext, storedHash)
}

// VerifyDecoy performs one comparison against the decoy hash and discards
// the result. Callers use it when the account lookup missed.
func (p *Passwords) VerifyDecoy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(p.decoy, []byte(plaintext))
}

// HashPassword returns a salted bcrypt hash of the plaintext password.
func HashPassword(plaintext string, cost int) (string, error) {
	if plaintext == "" {
		return "", errors.New("password must be provided")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plaintext matches the stored hash.
func VerifyPassword(plaintext, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
