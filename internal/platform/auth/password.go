package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// LowCostParams keep argon2id fast in tests and local development.
var LowCostParams = &argon2id.Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes new passwords with argon2id. It still verifies bcrypt hashes
// carried over from older accounts.
type Hasher struct {
	params *argon2id.Params
}

func NewHasher(params *argon2id.Params) *Hasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Hasher{params: params}
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain, h.params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Verify compares in constant time. A mismatch is (false, nil); a malformed
// stored hash is an error.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("verify bcrypt hash: %w", err)
		}
	}
	ok, err := argon2id.ComparePasswordAndHash(plain, hash)
	if err != nil {
		return false, fmt.Errorf("verify argon2id hash: %w", err)
	}
	return ok, nil
}

// NeedsRehash reports whether hash should be replaced by an argon2id hash.
func (h *Hasher) NeedsRehash(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
