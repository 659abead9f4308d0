package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/security"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u user.User) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// CredentialStore handles signup and login against the user store.
type CredentialStore struct {
	users  UserStore
	tokens TokenIssuer
	policy *security.Policy
	cost   int
	log    *slog.Logger

	// compared against when the email is unknown so both login failures cost one bcrypt run
	dummyHash string
}

func NewCredentialStore(users UserStore, tokens TokenIssuer, bcryptCost int, log *slog.Logger) (*CredentialStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	dummy, err := security.HashPasswordWithCost("not-a-real-password-0", bcryptCost)
	if err != nil {
		return nil, err
	}

	return &CredentialStore{
		users:     users,
		tokens:    tokens,
		policy:    security.NewPolicy(),
		cost:      bcryptCost,
		log:       log,
		dummyHash: dummy,
	}, nil
}

// Signup validates the input in order (names, format, uniqueness) and only then
// hashes the password and inserts the user.
func (s *CredentialStore) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := normalizeEmail(in.Email)

	if firstName == "" || lastName == "" {
		return user.User{}, ErrMissingName
	}

	if err := s.policy.Check(email, in.Password); err != nil {
		return user.User{}, ErrInvalidFormat
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		s.log.ErrorContext(ctx, "signup email lookup failed", "err", err)
		return user.User{}, domain.Storage("users.email_exists", err)
	}

	if exists {
		return user.User{}, ErrEmailExists
	}

	hash, err := security.HashPasswordWithCost(in.Password, s.cost)
	if err != nil {
		return user.User{}, err
	}

	u := user.New(firstName, lastName, email, hash)

	err = s.users.Create(ctx, u)
	if err != nil {
		// lost a race with a concurrent signup for the same address
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, ErrEmailExists
		}

		s.log.ErrorContext(ctx, "signup insert failed", "err", err)
		return user.User{}, domain.Storage("users.create", err)
	}

	s.log.InfoContext(ctx, "user signed up", "user_id", u.ID)
	return u, nil
}

// Login returns a signed token. Unknown email and wrong password produce the same error.
func (s *CredentialStore) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.log.ErrorContext(ctx, "login lookup failed", "err", err)
			return "", domain.Storage("users.get_by_email", err)
		}

		_ = security.CheckPassword(s.dummyHash, password)
		return "", ErrInvalidCredentials
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", err
	}

	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
