package auth

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every signup input error.
var ErrValidation = errors.New("validation failed")

var (
	ErrMissingName        = fmt.Errorf("%w: firstname and lastname are required for signing up", ErrValidation)
	ErrInvalidFormat      = fmt.Errorf("%w: invalid email/password format (password: minimum eight characters, at least one letter and one number)", ErrValidation)
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email/password combination")
)

var (
	ErrTokenMalformed = errors.New("token is malformed or has an invalid signature")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenRevoked   = errors.New("token has been revoked")
)
