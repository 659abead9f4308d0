package bug

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/google/uuid"
)

// Status values.
const (
	StatusOpen = iota
	StatusInProgress
	StatusResolved
	StatusClosed
)

const (
	MaxStatus   = StatusClosed
	MaxPriority = 4
)

var (
	ErrNotFound        = fmt.Errorf("bug %w", domain.ErrNotFound)
	ErrInvalidStatus   = errors.New("invalid bug status")
	ErrInvalidPriority = errors.New("invalid bug priority")
	// ErrAssigneeNotOnTeam is returned when assigning a bug to someone outside its team.
	ErrAssigneeNotOnTeam = errors.New("assignee is not a member of the bug's team")
)

type Bug struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"teamId"`
	ReporterID  string    `json:"reporterId,omitempty"` // empty once the reporter account is deleted
	AssigneeID  *string   `json:"assigneeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Status      int       `json:"status"`
	Priority    int       `json:"priority"`
}

type CreateRequest struct {
	Description string `json:"description" binding:"required,min=3,max=200"`
	Content     string `json:"content" binding:"omitempty,max=10000"`
	Priority    *int   `json:"priority" binding:"omitempty,min=0,max=4"`
}

type AssignRequest struct {
	AssigneeID string `json:"assigneeId" binding:"required,uuid"`
}

type StatusRequest struct {
	Status *int `json:"status" binding:"required,min=0,max=3"`
}

type PriorityRequest struct {
	Priority *int `json:"priority" binding:"required,min=0,max=4"`
}

func ValidateStatus(status int) error {
	if status < StatusOpen || status > MaxStatus {
		return ErrInvalidStatus
	}
	return nil
}

func ValidatePriority(priority int) error {
	if priority < 0 || priority > MaxPriority {
		return ErrInvalidPriority
	}
	return nil
}

// NewFromCreateRequest builds a Bug reported by reporterID on teamID.
func NewFromCreateRequest(teamID, reporterID string, req CreateRequest) Bug {
	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	}

	return Bug{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		ReporterID:  reporterID,
		CreatedAt:   time.Now().UTC(),
		Description: req.Description,
		Content:     req.Content,
		Status:      StatusOpen,
		Priority:    priority,
	}
}
