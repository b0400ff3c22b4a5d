package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/readyluo/lasercalcpro-sub004/internal/model"
)

// TokenTTL is the lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

const tokenIssuer = "lasercalc"

var (
	// ErrInvalidToken covers every reason a token is rejected: malformed,
	// bad signature, wrong algorithm, missing identity claims or expired.
	ErrInvalidToken = errors.New("invalid token")

	// ErrIncompleteIdentity is returned when asked to sign an identity with
	// an empty claim.
	ErrIncompleteIdentity = errors.New("incomplete identity")
)

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used to stamp and check tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) { s.ttl = ttl }
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret.
func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sessionClaims struct {
	AdminID  int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token carrying id. Every identity field must be set.
func (s *TokenService) Issue(id model.Identity) (string, error) {
	if id.ID <= 0 || id.Username == "" || id.Email == "" || id.Role == "" {
		return "", ErrIncompleteIdentity
	}

	now := s.now()
	claims := sessionClaims{
		AdminID:  id.ID,
		Username: id.Username,
		Email:    id.Email,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of tokenStr and returns the identity
// it carries. Any failure yields ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*model.Identity, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.AdminID <= 0 || claims.Username == "" || claims.Email == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return &model.Identity{
		ID:       claims.AdminID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

// Refresh verifies old and issues a new token for the same identity with a
// fresh expiry.
func (s *TokenService) Refresh(old string) (string, error) {
	id, err := s.Verify(old)
	if err != nil {
		return "", err
	}
	return s.Issue(*id)
}
