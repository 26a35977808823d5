package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor. Raising it slows offline brute force at
// the price of login latency; changing it does not invalidate existing hashes.
const HashCost = 12

// HashPassword generates a salted bcrypt hash of the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored bcrypt hash.
// A malformed hash is treated the same as a mismatch, it never panics or
// surfaces a format error to the caller.
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false
	}
	// Anything else (truncated hash, wrong prefix, bad cost) is a stored-data
	// problem and still means "does not verify".
	return false
}
