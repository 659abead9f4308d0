package memory

import (
	"context"
	"errors"

	"github.com/geocoder89/taskmaster/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == u.Email {
				return user.ErrEmailTaken
			}
		}
		st.users[u.ID] = u
		return nil
	})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == email {
				u = existing
				return nil
			}
		}
		return user.ErrNotFound
	})
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.s.read(ctx, func(st *state) error {
		found, ok := st.users[id]
		if !ok {
			return user.ErrNotFound
		}
		u = found
		return nil
	})
	return
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
