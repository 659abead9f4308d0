package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is three days.
const DefaultTokenTTL = 3 * 24 * time.Hour

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens and consults the revocation cache.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked *RevocationCache
	now     func() time.Time
	log     *slog.Logger
	prom    *observability.Prom
}

type TokenOption func(*TokenService)

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log *slog.Logger) TokenOption {
	return func(s *TokenService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(prom *observability.Prom) TokenOption {
	return func(s *TokenService) {
		s.prom = prom
	}
}

func NewTokenService(secret string, ttl time.Duration, revoked *RevocationCache, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue signs a token for userID that expires after the configured lifetime.
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("cannot issue a token without a user id")
	}

	now := s.now().UTC()

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, then expiry, then the revocation list.
// A signature failure reports ErrTokenMalformed, an elapsed expiry ErrTokenExpired,
// and a listed token ErrTokenRevoked. If the cache cannot be reached the token is
// treated as revoked.
func (s *TokenService) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		s.observe(verifyResult(err))
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		s.log.WarnContext(ctx, "revocation cache unavailable, rejecting token", "err", err, "user_id", claims.UserID)
		s.observe("cache_error")
		return nil, fmt.Errorf("%w: %w", ErrTokenRevoked, err)
	}

	if revoked {
		s.observe("revoked")
		return nil, ErrTokenRevoked
	}

	s.observe("ok")
	return claims, nil
}

// Revoke lists token in the revocation cache until the token's own expiry.
// Tokens that are already expired can never verify again, so nothing is stored for them.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)

	if errors.Is(err, ErrTokenExpired) {
		return nil
	}

	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	err = s.revoked.Revoke(ctx, token, ttl)

	if s.prom != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.prom.Revocations.WithLabelValues(result).Inc()
	}

	if err != nil {
		s.log.ErrorContext(ctx, "token revocation failed", "err", err, "user_id", claims.UserID)
		return err
	}

	return nil
}

func (s *TokenService) parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// the raw token is the revocation key, so only canonical encodings may verify
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (s *TokenService) observe(result string) {
	if s.prom != nil {
		s.prom.TokenVerifications.WithLabelValues(result).Inc()
	}
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	default:
		return "malformed"
	}
}
