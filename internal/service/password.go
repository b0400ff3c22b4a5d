package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Password hashing algorithms.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// PasswordHasher hashes new passwords with the configured algorithm and
// verifies hashes produced by either algorithm, so stored accounts keep
// working after the algorithm is switched.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      *argon2id.Params
}

// NewPasswordHasher returns a hasher for algorithm. Empty selects bcrypt.
func NewPasswordHasher(algorithm string) (*PasswordHasher, error) {
	switch algorithm {
	case "", HashBcrypt:
		algorithm = HashBcrypt
	case HashArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password hash %q", algorithm)
	}
	return &PasswordHasher{
		algorithm:  algorithm,
		bcryptCost: bcrypt.DefaultCost,
		argon:      argon2id.DefaultParams,
	}, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash returns an encoded hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == HashArgon2id {
		hash, err := argon2id.CreateHash(password, h.argon)
		if err != nil {
			return "", fmt.Errorf("argon2id hash: %w", err)
		}
		return hash, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. The algorithm is detected
// from the hash encoding.
func (h *PasswordHasher) Verify(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, "$argon2id$") {
		ok, err := argon2id.ComparePasswordAndHash(password, hash)
		if err != nil {
			return false, fmt.Errorf("argon2id compare: %w", err)
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare: %w", err)
	}
}
