package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Credentials interface {
	Signup(ctx context.Context, in auth.SignupInput) (user.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthHandler struct {
	creds   Credentials
	tokens  TokenRevoker
	users   UserFinder
	log     *slog.Logger
	timeout time.Duration
}

func NewAuthHandler(creds Credentials, tokens TokenRevoker, users UserFinder, log *slog.Logger, timeout time.Duration) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &AuthHandler{creds: creds, tokens: tokens, users: users, log: log, timeout: timeout}
}

// Field rules live in the credential store so that its validation order holds;
// binding only checks the JSON shape.
type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	u, err := h.creds.Signup(cctx, auth.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingName):
			RespondError(ctx, http.StatusBadRequest, "missing_name", err.Error(), nil)
		case errors.Is(err, auth.ErrInvalidFormat):
			RespondError(ctx, http.StatusBadRequest, "invalid_format", err.Error(), nil)
		case errors.Is(err, auth.ErrEmailExists):
			RespondConflict(ctx, "email_taken", err.Error())
		case domain.IsStorage(err):
			RespondUnavailable(ctx, "Could not create user")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "signup failed", "err", err)
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	token, err := h.creds.Login(cctx, req.Email, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			RespondUnauthorized(ctx, "invalid_credentials", err.Error())
		case domain.IsStorage(err):
			RespondUnavailable(ctx, "Could not log in")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err)
			RespondInternal(ctx, "Could not log in")
		}
		return
	}

	ctx.JSON(http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer"})
}

// Logout revokes the presented token for the rest of its lifetime.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	token, ok := middlewares.TokenFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing access token")
		return
	}

	if err := h.tokens.Revoke(ctx.Request.Context(), token); err != nil {
		if domain.IsStorage(err) {
			RespondUnavailable(ctx, "Could not revoke token")
			return
		}
		RespondInternal(ctx, "Could not revoke token")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), userID)
	if err != nil {
		respondStoreError(ctx, err, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
