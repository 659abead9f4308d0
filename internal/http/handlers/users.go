package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/hierarchy"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// HierarchyDeleter is implemented by hierarchy.Coordinator.
type HierarchyDeleter interface {
	DeleteOrganization(ctx context.Context, orgID string) (hierarchy.Report, error)
	DeleteTeam(ctx context.Context, teamID string) (hierarchy.Report, error)
	DeleteUser(ctx context.Context, userID string) (hierarchy.Report, error)
}

type UsersHandler struct {
	deleter HierarchyDeleter
	tokens  TokenRevoker
	log     *slog.Logger
}

func NewUsersHandler(deleter HierarchyDeleter, tokens TokenRevoker, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{deleter: deleter, tokens: tokens, log: log}
}

// DeleteMe removes the caller's account and then revokes the token they used.
// Any other tokens for the account are refused by RequireAuth's user lookup.
func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	rep, err := h.deleter.DeleteUser(ctx.Request.Context(), userID)
	if err != nil {
		respondStoreError(ctx, err, "Could not delete account")
		return
	}

	if token, ok := middlewares.TokenFromContext(ctx); ok {
		// the deletion has committed, so a failed revoke is only logged
		if err := h.tokens.Revoke(context.WithoutCancel(ctx.Request.Context()), token); err != nil {
			h.log.WarnContext(ctx.Request.Context(), "revoke after account deletion failed", "user_id", userID, "err", err)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": rep})
}
