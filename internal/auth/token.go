package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTokenTTL applies when neither the caller nor the config picks a lifetime.
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers every way a token can fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the session token claims. Subject carries the username.
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *Claims) Username() string {
	return c.Subject
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenService returns a service signing with cfg.Secret.
func NewTokenService(cfg TokenConfig) *TokenService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL is the lifetime used when Issue is called without one.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for username. ttl <= 0 selects the service default.
func (s *TokenService) Issue(username string, userID uint, ttl time.Duration) (string, *Claims, error) {
	if len(s.secret) == 0 {
		return "", nil, errors.New("token secret not configured")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm, expiry, issuer and audience. On any failure
// it returns ErrInvalidToken and no claims.
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoker tracks tokens invalidated before their expiry.
type Revoker interface {
	Revoke(ctx context.Context, claims *Claims) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisRevoker keeps a blacklist:<jti> key per revoked token until it would have expired.
// A nil client turns both operations into no-ops.
type RedisRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, now: time.Now}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

func (r *RedisRevoker) Revoke(ctx context.Context, claims *Claims) error {
	if r == nil || r.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(r.now())
	}
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if r == nil || r.rdb == nil || claims == nil || claims.ID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, blacklistKey(claims.ID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
