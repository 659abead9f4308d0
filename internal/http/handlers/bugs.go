package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/gin-gonic/gin"
)

type BugStore interface {
	Create(ctx context.Context, b bug.Bug) error
	GetByID(ctx context.Context, id string) (bug.Bug, error)
	ListByTeam(ctx context.Context, teamID string) ([]bug.Bug, error)
	Assign(ctx context.Context, bugID, assigneeID string) (bug.Bug, error)
	UpdateStatus(ctx context.Context, bugID string, status int) (bug.Bug, error)
	UpdatePriority(ctx context.Context, bugID string, priority int) (bug.Bug, error)
	Delete(ctx context.Context, bugID string) error
}

// BugsHandler requires the caller to belong to the organization owning the bug's team.
type BugsHandler struct {
	bugs  BugStore
	teams TeamStore
	orgs  OrgRoleReader
}

func NewBugsHandler(bugs BugStore, teams TeamStore, orgs OrgRoleReader) *BugsHandler {
	return &BugsHandler{bugs: bugs, teams: teams, orgs: orgs}
}

func (h *BugsHandler) Create(ctx *gin.Context) {
	t, ok := authorizeTeam(ctx, h.teams, h.orgs, ctx.Param("teamId"), false)
	if !ok {
		return
	}

	var req bug.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	userID, _ := callerID(ctx)
	b := bug.NewFromCreateRequest(t.ID, userID, req)

	if err := h.bugs.Create(ctx.Request.Context(), b); err != nil {
		respondStoreError(ctx, err, "Could not create bug")
		return
	}

	ctx.JSON(http.StatusCreated, b)
}

func (h *BugsHandler) ListByTeam(ctx *gin.Context) {
	t, ok := authorizeTeam(ctx, h.teams, h.orgs, ctx.Param("teamId"), false)
	if !ok {
		return
	}

	bugs, err := h.bugs.ListByTeam(ctx.Request.Context(), t.ID)
	if err != nil {
		respondStoreError(ctx, err, "Could not list bugs")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": bugs})
}

// authorizeBug loads the bug and applies the team membership check to its team.
func (h *BugsHandler) authorizeBug(ctx *gin.Context) (bug.Bug, bool) {
	b, err := h.bugs.GetByID(ctx.Request.Context(), ctx.Param("bugId"))
	if err != nil {
		respondStoreError(ctx, err, "Could not load bug")
		return bug.Bug{}, false
	}

	if _, ok := authorizeTeam(ctx, h.teams, h.orgs, b.TeamID, false); !ok {
		return bug.Bug{}, false
	}

	return b, true
}

func (h *BugsHandler) Get(ctx *gin.Context) {
	b, ok := h.authorizeBug(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, b)
}

func (h *BugsHandler) Assign(ctx *gin.Context) {
	b, ok := h.authorizeBug(ctx)
	if !ok {
		return
	}

	var req bug.AssignRequest
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.bugs.Assign(ctx.Request.Context(), b.ID, req.AssigneeID)
	if err != nil {
		respondStoreError(ctx, err, "Could not assign bug")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *BugsHandler) SetStatus(ctx *gin.Context) {
	b, ok := h.authorizeBug(ctx)
	if !ok {
		return
	}

	var req bug.StatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.bugs.UpdateStatus(ctx.Request.Context(), b.ID, *req.Status)
	if err != nil {
		respondStoreError(ctx, err, "Could not update status")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *BugsHandler) SetPriority(ctx *gin.Context) {
	b, ok := h.authorizeBug(ctx)
	if !ok {
		return
	}

	var req bug.PriorityRequest
	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.bugs.UpdatePriority(ctx.Request.Context(), b.ID, *req.Priority)
	if err != nil {
		respondStoreError(ctx, err, "Could not update priority")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *BugsHandler) Delete(ctx *gin.Context) {
	b, ok := h.authorizeBug(ctx)
	if !ok {
		return
	}

	if err := h.bugs.Delete(ctx.Request.Context(), b.ID); err != nil {
		respondStoreError(ctx, err, "Could not delete bug")
		return
	}

	ctx.Status(http.StatusNoContent)
}
