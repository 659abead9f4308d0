package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/gin-gonic/gin"
)

type TeamStore interface {
	Create(ctx context.Context, t team.Team) error
	GetByID(ctx context.Context, id string) (team.Team, error)
	ListForUser(ctx context.Context, userID string) ([]team.Team, error)
	AddMember(ctx context.Context, m team.Member) error
}

type OrgRoleReader interface {
	MemberRole(ctx context.Context, orgID, userID string) (string, error)
}

type TeamsHandler struct {
	teams   TeamStore
	orgs    OrgRoleReader
	deleter HierarchyDeleter
}

func NewTeamsHandler(teams TeamStore, orgs OrgRoleReader, deleter HierarchyDeleter) *TeamsHandler {
	return &TeamsHandler{teams: teams, orgs: orgs, deleter: deleter}
}

// authorizeTeam loads the team and checks the caller's role in its organization.
// It writes the error response itself and reports whether to continue.
func authorizeTeam(ctx *gin.Context, teams TeamStore, orgs OrgRoleReader, teamID string, adminOnly bool) (team.Team, bool) {
	userID, ok := callerID(ctx)
	if !ok {
		return team.Team{}, false
	}

	t, err := teams.GetByID(ctx.Request.Context(), teamID)
	if err != nil {
		respondStoreError(ctx, err, "Could not load team")
		return team.Team{}, false
	}

	role, err := orgs.MemberRole(ctx.Request.Context(), t.OrgID, userID)
	if err != nil {
		if errors.Is(err, organization.ErrMemberNotFound) {
			RespondForbidden(ctx, "Not a member of this team's organization")
			return team.Team{}, false
		}
		respondStoreError(ctx, err, "Could not check membership")
		return team.Team{}, false
	}

	if adminOnly && role != organization.RoleAdmin {
		RespondForbidden(ctx, "Organization admin role required")
		return team.Team{}, false
	}

	return t, true
}

func (h *TeamsHandler) ListMine(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	teams, err := h.teams.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		respondStoreError(ctx, err, "Could not list teams")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": teams})
}

func (h *TeamsHandler) Get(ctx *gin.Context) {
	t, ok := authorizeTeam(ctx, h.teams, h.orgs, ctx.Param("teamId"), false)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TeamsHandler) AddMember(ctx *gin.Context) {
	t, ok := authorizeTeam(ctx, h.teams, h.orgs, ctx.Param("teamId"), true)
	if !ok {
		return
	}

	var req team.AddMemberRequest
	if !BindJSON(ctx, &req) {
		return
	}

	m := team.NewMember(t.ID, req.UserID, req.Role)

	if err := h.teams.AddMember(ctx.Request.Context(), m); err != nil {
		respondStoreError(ctx, err, "Could not add team member")
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

func (h *TeamsHandler) Delete(ctx *gin.Context) {
	t, ok := authorizeTeam(ctx, h.teams, h.orgs, ctx.Param("teamId"), true)
	if !ok {
		return
	}

	rep, err := h.deleter.DeleteTeam(ctx.Request.Context(), t.ID)
	if err != nil {
		respondStoreError(ctx, err, "Could not delete team")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": rep})
}
