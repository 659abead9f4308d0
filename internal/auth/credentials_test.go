package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

// fakeUsers is a map-backed UserStore; the fn fields override behaviour per test.
type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]user.User
	inserts int

	existsFn func(ctx context.Context, email string) (bool, error)
	getFn    func(ctx context.Context, email string) (user.User, error)
	createFn func(ctx context.Context, u user.User) error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]user.User)}
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUsers) Create(ctx context.Context, u user.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	f.byEmail[u.Email] = u
	f.inserts++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCredentials(t *testing.T, users UserStore) (*CredentialStore, *TokenService) {
	t.Helper()

	tokens := NewTokenService(testSecret, DefaultTokenTTL, NewRevocationCache(cache.NewMemory(), time.Second))

	creds, err := NewCredentialStore(users, tokens, bcrypt.MinCost, discardLogger())
	if err != nil {
		t.Fatalf("new credential store: %v", err)
	}
	return creds, tokens
}

func TestSignupDuplicateEmail(t *testing.T) {
	users := newFakeUsers()
	creds, _ := newTestCredentials(t, users)
	ctx := context.Background()

	in := SignupInput{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Password: "secret12"}

	u, err := creds.Signup(ctx, in)
	if err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == in.Password {
		t.Fatalf("password must be stored hashed")
	}

	_, err = creds.Signup(ctx, in)
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("second signup = %v, want ErrEmailExists", err)
	}

	if users.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", users.inserts)
	}
}

func TestSignupValidationOrder(t *testing.T) {
	tests := []struct {
		name    string
		in      SignupInput
		wantErr error
	}{
		{
			name:    "missing_first_name",
			in:      SignupInput{FirstName: "", LastName: "Lee", Email: "ann@example.com", Password: "secret12"},
			wantErr: ErrMissingName,
		},
		{
			name:    "missing_last_name_beats_bad_format",
			in:      SignupInput{FirstName: "Ann", LastName: "  ", Email: "nope", Password: "short"},
			wantErr: ErrMissingName,
		},
		{
			name:    "bad_email",
			in:      SignupInput{FirstName: "Ann", LastName: "Lee", Email: "ann-at-example.com", Password: "secret12"},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "weak_password",
			in:      SignupInput{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Password: "secretsecret"},
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUsers()
			users.existsFn = func(ctx context.Context, email string) (bool, error) {
				t.Fatalf("email lookup must not run before input validation passes")
				return false, nil
			}
			creds, _ := newTestCredentials(t, users)

			_, err := creds.Signup(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("signup = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("signup error should match ErrValidation")
			}
			if users.inserts != 0 {
				t.Fatalf("no row should be inserted")
			}
		})
	}
}

func TestSignupStorageFailures(t *testing.T) {
	in := SignupInput{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Password: "secret12"}

	t.Run("lookup", func(t *testing.T) {
		users := newFakeUsers()
		users.existsFn = func(ctx context.Context, email string) (bool, error) {
			return false, context.DeadlineExceeded
		}
		creds, _ := newTestCredentials(t, users)

		_, err := creds.Signup(context.Background(), in)
		if !domain.IsStorage(err) {
			t.Fatalf("signup = %v, want storage error", err)
		}
	})

	t.Run("insert_race", func(t *testing.T) {
		users := newFakeUsers()
		users.createFn = func(ctx context.Context, u user.User) error {
			return user.ErrEmailTaken
		}
		creds, _ := newTestCredentials(t, users)

		_, err := creds.Signup(context.Background(), in)
		if !errors.Is(err, ErrEmailExists) {
			t.Fatalf("signup = %v, want ErrEmailExists", err)
		}
	})

	t.Run("insert", func(t *testing.T) {
		users := newFakeUsers()
		users.createFn = func(ctx context.Context, u user.User) error {
			return errors.New("connection reset by peer")
		}
		creds, _ := newTestCredentials(t, users)

		_, err := creds.Signup(context.Background(), in)
		if !domain.IsStorage(err) {
			t.Fatalf("signup = %v, want storage error", err)
		}
	})
}

func TestLoginUniformFailure(t *testing.T) {
	users := newFakeUsers()
	creds, _ := newTestCredentials(t, users)
	ctx := context.Background()

	_, err := creds.Signup(ctx, SignupInput{FirstName: "Real", LastName: "User", Email: "real@x.com", Password: "rightpass1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, errUnknown := creds.Login(ctx, "nouser@x.com", "whatever1")
	_, errWrong := creds.Login(ctx, "real@x.com", "wrongpass1")

	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("both failures must be ErrInvalidCredentials, got %v / %v", errUnknown, errWrong)
	}

	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown.Error(), errWrong.Error())
	}
}

func TestLoginStorageFailureIsNotInvalidCredentials(t *testing.T) {
	users := newFakeUsers()
	users.getFn = func(ctx context.Context, email string) (user.User, error) {
		return user.User{}, errors.New("connection refused")
	}
	creds, _ := newTestCredentials(t, users)

	_, err := creds.Login(context.Background(), "ann@example.com", "secret12")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("infrastructure failure must not look like bad credentials")
	}
	if !domain.IsStorage(err) {
		t.Fatalf("login = %v, want storage error", err)
	}
}

func TestLoginRevokeVerify(t *testing.T) {
	users := newFakeUsers()
	creds, tokens := newTestCredentials(t, users)
	ctx := context.Background()

	u, err := creds.Signup(ctx, SignupInput{FirstName: "Ann", LastName: "Lee", Email: "Ann@Example.com ", Password: "secret12"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, err := creds.Login(ctx, "ann@example.com", "secret12")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := tokens.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify fresh token: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("userId = %q, want %q", claims.UserID, u.ID)
	}

	if err := tokens.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := tokens.Verify(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("verify after logout = %v, want ErrTokenRevoked", err)
	}
}
