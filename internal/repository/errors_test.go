package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslatePgError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: ErrConflict},
		{name: "foreign key", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), want: ErrInvalidReference},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: ErrInvalidReference},
		{name: "malformed key", err: fmt.Errorf("select: %w", &pgconn.PgError{Code: "22P02"}), want: ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TranslatePgError(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Fatal("original pg error must stay reachable")
			}
		})
	}

	plain := errors.New("connection reset")
	if got := TranslatePgError(plain); got != plain {
		t.Fatalf("unclassified error should pass through, got %v", got)
	}
}
