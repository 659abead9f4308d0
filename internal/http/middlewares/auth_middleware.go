package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/taskmaster/internal/actorctx"
	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserLookup
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// WithUserLookup makes RequireAuth reject tokens whose user no longer exists,
// so every outstanding token dies with the account.
func (m *AuthMiddleware) WithUserLookup(users UserLookup) *AuthMiddleware {
	m.users = users
	return m
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		claims, err := m.tokens.Verify(c.Request.Context(), raw)
		if err != nil {
			switch {
			case domain.IsStorage(err):
				// the revocation list could not be consulted, so the token is not trusted
				abort(c, http.StatusServiceUnavailable, "auth_unavailable", "Authentication is temporarily unavailable")
			case errors.Is(err, auth.ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "token_expired", "Access token has expired")
			case errors.Is(err, auth.ErrTokenRevoked):
				abort(c, http.StatusUnauthorized, "token_revoked", "Access token has been revoked")
			default:
				abort(c, http.StatusUnauthorized, "unauthorized", "Invalid access token")
			}
			return
		}

		if m.users != nil {
			if _, err := m.users.GetByID(c.Request.Context(), claims.UserID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					abort(c, http.StatusUnauthorized, "unauthorized", "Account no longer exists")
				} else {
					abort(c, http.StatusServiceUnavailable, "auth_unavailable", "Authentication is temporarily unavailable")
				}
				return
			}
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxToken, raw)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Helpers so handlers don't need to know the keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxUserID)
}

func TokenFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxToken)
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func abort(c *gin.Context, status int, code, message string) {
	reqID, _ := stringFromContext(c, CtxRequestID)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": reqID,
		},
	})
}
