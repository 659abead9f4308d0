package organization

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrNotFound       = fmt.Errorf("organization %w", domain.ErrNotFound)
	ErrMemberNotFound = fmt.Errorf("organization member %w", domain.ErrNotFound)
	ErrAlreadyMember  = errors.New("user is already a member of this organization")
	ErrInvalidRole    = errors.New("role must be admin or user")
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	ID     string `json:"id"`
	OrgID  string `json:"orgId"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Summary is one entry of the organizations a user belongs to.
type Summary struct {
	OrgID   string `json:"orgId"`
	OrgName string `json:"orgName"`
	Role    string `json:"role"`
}

// MemberView joins a membership with the member's name.
type MemberView struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type CreateRequest struct {
	Name string `json:"name" binding:"required,min=2,max=120"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,oneof=admin user"`
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

func New(name string) Organization {
	return Organization{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func NewMember(orgID, userID, role string) Member {
	return Member{
		ID:     uuid.NewString(),
		OrgID:  orgID,
		UserID: userID,
		Role:   role,
	}
}
