package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("user %w", domain.ErrNotFound)

// ErrEmailTaken is returned by stores when the unique email index rejects an insert.
var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
}

func New(firstName, lastName, email, passwordHash string) User {
	return User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}
