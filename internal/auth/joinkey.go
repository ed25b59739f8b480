package auth

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidJoinKey = errors.New("invalid join key")

// joinKeyBytes of randomness give a 16 character base32 key.
const joinKeyBytes = 10

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// BcryptAuthenticator implements Authenticator using bcrypt hashes.
type BcryptAuthenticator struct {
	cost int
}

// NewBcryptAuthenticator creates an authenticator hashing at the given cost.
// A cost of 0 uses bcrypt.DefaultCost.
func NewBcryptAuthenticator(cost int) *BcryptAuthenticator {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptAuthenticator{cost: cost}
}

// Issue generates a random key and its bcrypt hash.
func (a *BcryptAuthenticator) Issue() (string, string, error) {
	buf := make([]byte, joinKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate join key: %w", err)
	}
	key := keyEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), a.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash join key: %w", err)
	}
	return key, string(hash), nil
}

// Verify compares a presented key with the stored hash. Keys are case-insensitive.
func (a *BcryptAuthenticator) Verify(hash, key string) error {
	if hash == "" || key == "" {
		return ErrInvalidJoinKey
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidJoinKey
	}
	return nil
}

var _ Authenticator = (*BcryptAuthenticator)(nil)
