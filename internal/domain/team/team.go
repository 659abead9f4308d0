package team

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = fmt.Errorf("team %w", domain.ErrNotFound)
	ErrAlreadyMember = errors.New("user is already a member of this team")
	// ErrNotOrgMember is returned when adding someone to a team of an org they do not belong to.
	ErrNotOrgMember = errors.New("user is not a member of the team's organization")
)

type Team struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	ID     string `json:"id"`
	TeamID string `json:"teamId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type CreateRequest struct {
	Name string `json:"name" binding:"required,min=2,max=120"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,min=2,max=40"`
}

func New(orgID, name string) Team {
	return Team{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func NewMember(teamID, userID, role string) Member {
	return Member{
		ID:     uuid.NewString(),
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
}
