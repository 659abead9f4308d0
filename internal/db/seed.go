package db

import (
	"context"
	"errors"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain/user"
)

type Registrar interface {
	Signup(ctx context.Context, in auth.SignupInput) (user.User, error)
}

// EnsureSeedUser registers the bootstrap account if it is configured and missing.
func EnsureSeedUser(ctx context.Context, reg Registrar, in auth.SignupInput) error {
	if in.Email == "" || in.Password == "" {
		return nil
	}

	_, err := reg.Signup(ctx, in)

	if errors.Is(err, auth.ErrEmailExists) {
		return nil
	}

	return err
}
