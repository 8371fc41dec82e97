package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	ResetTokenTTL   = 10 * time.Minute
	resetTokenBytes = 32
)

// ResetToken is a freshly issued password-reset token. Plain goes to the user,
// Hash is what gets stored.
type ResetToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

func GenerateResetToken(now time.Time) (*ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	plain := hex.EncodeToString(buf)
	return &ResetToken{
		Plain:     plain,
		Hash:      HashResetToken(plain),
		ExpiresAt: now.Add(ResetTokenTTL),
	}, nil
}

// HashResetToken is the lookup key for a plain reset token.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
