package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// base carries what every repo needs: the pool and optional DB metrics.
type base struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// observe runs fn under DB metrics. Failures to reach the database come back as
// *domain.StorageError; row-level outcomes (no rows, constraint codes) are left for
// the caller to map.
func (b base) observe(op string, fn func() error) error {
	var err error
	if b.prom != nil {
		err = b.prom.ObserveDB(op, fn)
	} else {
		err = fn()
	}

	if err == nil || isNoRows(err) || pgCode(err) != "" {
		return err
	}

	return domain.Storage(op, err)
}

// begin opens a transaction; a failure to start one is a storage error.
func (b base) begin(ctx context.Context, op string) (pgx.Tx, error) {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.Storage(op+".begin", err)
	}
	return tx, nil
}

func (b base) commit(ctx context.Context, op string, tx pgx.Tx) error {
	return b.observe(op+".commit", func() error {
		return tx.Commit(ctx)
	})
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// constraintOf returns the name of the constraint a Postgres error was raised for.
func constraintOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// isNoRows reports a lookup that matched nothing. An id that is not a valid uuid
// (22P02) cannot match a row either.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgCode(err) == "22P02"
}
