package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/gin-gonic/gin"
)

type OrgStore interface {
	CreateWithAdmin(ctx context.Context, org organization.Organization, adminUserID string) (organization.Member, error)
	GetByID(ctx context.Context, id string) (organization.Organization, error)
	AddMember(ctx context.Context, m organization.Member) error
	ListForUser(ctx context.Context, userID string) ([]organization.Summary, error)
	ListMembers(ctx context.Context, orgID string) ([]organization.MemberView, error)
	MemberRole(ctx context.Context, orgID, userID string) (string, error)
}

type TeamCreator interface {
	Create(ctx context.Context, t team.Team) error
}

// OrgsHandler serves organization routes. Membership and admin checks run in
// middlewares.RequireOrgRole before these handlers.
type OrgsHandler struct {
	orgs    OrgStore
	teams   TeamCreator
	deleter HierarchyDeleter
}

func NewOrgsHandler(orgs OrgStore, teams TeamCreator, deleter HierarchyDeleter) *OrgsHandler {
	return &OrgsHandler{orgs: orgs, teams: teams, deleter: deleter}
}

func (h *OrgsHandler) Create(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req organization.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	org := organization.New(req.Name)

	if _, err := h.orgs.CreateWithAdmin(ctx.Request.Context(), org, userID); err != nil {
		respondStoreError(ctx, err, "Could not create organization")
		return
	}

	ctx.JSON(http.StatusCreated, org)
}

func (h *OrgsHandler) ListMine(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	orgs, err := h.orgs.ListForUser(ctx.Request.Context(), userID)
	if err != nil {
		respondStoreError(ctx, err, "Could not list organizations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": orgs})
}

func (h *OrgsHandler) ListMembers(ctx *gin.Context) {
	members, err := h.orgs.ListMembers(ctx.Request.Context(), ctx.Param("orgId"))
	if err != nil {
		respondStoreError(ctx, err, "Could not list members")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": members})
}

func (h *OrgsHandler) AddMember(ctx *gin.Context) {
	var req organization.AddMemberRequest
	if !BindJSON(ctx, &req) {
		return
	}

	m := organization.NewMember(ctx.Param("orgId"), req.UserID, req.Role)

	if err := h.orgs.AddMember(ctx.Request.Context(), m); err != nil {
		respondStoreError(ctx, err, "Could not add member")
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

func (h *OrgsHandler) CreateTeam(ctx *gin.Context) {
	var req team.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t := team.New(ctx.Param("orgId"), req.Name)

	if err := h.teams.Create(ctx.Request.Context(), t); err != nil {
		respondStoreError(ctx, err, "Could not create team")
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

func (h *OrgsHandler) Delete(ctx *gin.Context) {
	rep, err := h.deleter.DeleteOrganization(ctx.Request.Context(), ctx.Param("orgId"))
	if err != nil {
		respondStoreError(ctx, err, "Could not delete organization")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": rep})
}
