package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "no_rows", err: pgx.ErrNoRows, want: "no_rows"},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{name: "fk", err: &pgconn.PgError{Code: "23503"}, want: "foreign_key_violation"},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "conn", err: errors.New("failed to connect: connection refused"), want: "connection"},
		{name: "unknown", err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("classifyDBErr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDBCountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.create", func() error { return nil })
	err := p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })

	if err == nil {
		t.Fatalf("ObserveDB must return the wrapped fn error")
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation"))
	if got != 1 {
		t.Fatalf("errors_total = %v, want 1", got)
	}
}
