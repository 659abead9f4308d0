package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/gin-gonic/gin"
)

type OrgRoleReader interface {
	MemberRole(ctx context.Context, orgID, userID string) (string, error)
}

const CtxOrgRole = "org.role"

// RequireOrgRole checks the caller's membership in the organization named by the
// route parameter. An empty required role admits any member.
func RequireOrgRole(orgs OrgRoleReader, param, required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		role, err := orgs.MemberRole(c.Request.Context(), c.Param(param), userID)
		if err != nil {
			switch {
			case errors.Is(err, organization.ErrMemberNotFound):
				abort(c, http.StatusForbidden, "forbidden", "Not a member of this organization")
			case domain.IsStorage(err) || errors.Is(err, context.DeadlineExceeded):
				abort(c, http.StatusServiceUnavailable, "storage_unavailable", "Storage is temporarily unavailable")
			default:
				abort(c, http.StatusInternalServerError, "internal_error", "Could not check membership")
			}
			return
		}

		if required != "" && role != required {
			abort(c, http.StatusForbidden, "forbidden", "Organization admin role required")
			return
		}

		c.Set(CtxOrgRole, role)
		c.Next()
	}
}
