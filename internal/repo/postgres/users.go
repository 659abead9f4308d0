package postgres

import (
	"context"

	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, first_name, last_name, email, password_hash, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt,
		)
		return err
	})

	if IsUniqueViolation(err) && constraintOf(err) == "users_email_key" {
		return user.ErrEmailTaken
	}

	return err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, first_name, last_name, email, password_hash, created_at
			FROM users
			WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	})

	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}

	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, first_name, last_name, email, password_hash, created_at
			FROM users
			WHERE id = $1`,
			id,
		).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	})

	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}

	return
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (exists bool, err error) {
	err = r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
			email,
		).Scan(&exists)
	})
	return
}
