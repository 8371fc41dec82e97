package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the session token payload. The user id travels as "id".
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// VerifiedToken is what a valid session token proves.
type VerifiedToken struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256 session tokens. The signing key is
// fixed for the life of the service.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenService)

// WithClock overrides time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}
	s := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	return s, nil
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: empty user id")
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Expired tokens yield ErrExpiredToken,
// everything else that fails yields ErrInvalidToken.
func (s *TokenService) Verify(raw string) (*VerifiedToken, error) {
	var claims Claims
	tok, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return &VerifiedToken{
		UserID:    claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
