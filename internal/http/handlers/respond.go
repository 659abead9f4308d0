package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondUnavailable(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, "storage_unavailable", message, nil)
}

// respondStoreError maps repository and coordinator errors onto the error envelope.
func respondStoreError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, organization.ErrNotFound):
		RespondNotFound(ctx, "Organization not found")
	case errors.Is(err, team.ErrNotFound):
		RespondNotFound(ctx, "Team not found")
	case errors.Is(err, bug.ErrNotFound):
		RespondNotFound(ctx, "Bug not found")
	case errors.Is(err, domain.ErrNotFound):
		RespondNotFound(ctx, "Not found")
	case errors.Is(err, organization.ErrAlreadyMember), errors.Is(err, team.ErrAlreadyMember):
		RespondConflict(ctx, "already_member", err.Error())
	case errors.Is(err, team.ErrNotOrgMember), errors.Is(err, bug.ErrAssigneeNotOnTeam):
		RespondError(ctx, http.StatusUnprocessableEntity, "not_a_member", err.Error(), nil)
	case errors.Is(err, bug.ErrInvalidStatus), errors.Is(err, bug.ErrInvalidPriority), errors.Is(err, organization.ErrInvalidRole):
		RespondBadRequest(ctx, err.Error(), nil)
	case domain.IsStorage(err), errors.Is(err, context.DeadlineExceeded):
		RespondUnavailable(ctx, "Storage is temporarily unavailable")
	default:
		RespondInternal(ctx, fallback)
	}
}

func callerID(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
	}
	return id, ok
}
