package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher abstracts the hashing scheme so the identity service never
// depends on a specific algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt. Zero value is usable
// and applies the library default cost.
type BcryptHasher struct {
	Cost int
}

// Hash hashes a password. Inputs beyond bcrypt's 72-byte limit are rejected
// rather than silently truncated.
func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	if len(password) > 72 {
		return "", errors.New("password exceeds the 72-byte bcrypt limit")
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the password matches the stored hash.
func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
