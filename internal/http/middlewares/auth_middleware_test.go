package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/taskmaster/internal/actorctx"
	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	return f.verifyFn(ctx, token)
}

func TestRequireAuth(t *testing.T) {
	verifier := &fakeVerifier{verifyFn: func(ctx context.Context, token string) (*auth.Claims, error) {
		switch token {
		case "good":
			return &auth.Claims{UserID: "u-1"}, nil
		case "expired":
			return nil, auth.ErrTokenExpired
		case "revoked":
			return nil, auth.ErrTokenRevoked
		case "cache-down":
			return nil, fmt.Errorf("%w: %w", auth.ErrTokenRevoked, domain.Storage("revocation.get", errors.New("connection refused")))
		default:
			return nil, auth.ErrTokenMalformed
		}
	}}

	r := gin.New()
	r.GET("/me", middlewares.NewAuthMiddleware(verifier).RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		actor, _ := actorctx.UserIDFrom(c.Request.Context())
		token, _ := middlewares.TokenFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "actor": actor, "token": token})
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid", "Bearer good", http.StatusOK, ""},
		{"lowercase scheme", "bearer good", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "unauthorized"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "unauthorized"},
		{"malformed", "Bearer junk", http.StatusUnauthorized, "unauthorized"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "token_expired"},
		{"revoked", "Bearer revoked", http.StatusUnauthorized, "token_revoked"},
		{"cache down fails closed", "Bearer cache-down", http.StatusServiceUnavailable, "auth_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}

			if tt.wantCode == http.StatusOK {
				var body map[string]string
				_ = json.Unmarshal(w.Body.Bytes(), &body)
				if body["id"] != "u-1" || body["actor"] != "u-1" || body["token"] != "good" {
					t.Fatalf("identity not propagated: %v", body)
				}
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body.Error.Code != tt.wantErr {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.wantErr)
			}
		})
	}
}

type fakeUsers struct {
	getFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getFn(ctx, id)
}

func TestRequireAuth_UserLookup(t *testing.T) {
	verifier := &fakeVerifier{verifyFn: func(ctx context.Context, token string) (*auth.Claims, error) {
		return &auth.Claims{UserID: token}, nil
	}}
	users := &fakeUsers{getFn: func(ctx context.Context, id string) (user.User, error) {
		switch id {
		case "alive":
			return user.User{ID: id}, nil
		case "gone":
			return user.User{}, user.ErrNotFound
		default:
			return user.User{}, domain.Storage("users.get", errors.New("connection refused"))
		}
	}}

	r := gin.New()
	mw := middlewares.NewAuthMiddleware(verifier).WithUserLookup(users)
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"existing user", "alive", http.StatusOK},
		{"deleted user", "gone", http.StatusUnauthorized},
		{"store down", "broken", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}
