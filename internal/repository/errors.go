package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrInvalidReference indicates a foreign key or check constraint rejected the write.
	ErrInvalidReference = errors.New("repository: invalid reference")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

// TranslatePgError maps PostgreSQL constraint violations onto repository sentinels.
// A key that cannot be parsed as its column type names no row and becomes ErrNotFound.
// Unclassified errors are returned unchanged.
func TranslatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Join(ErrConflict, err)
	case pgForeignKeyViolation, pgCheckViolation:
		return errors.Join(ErrInvalidReference, err)
	case pgInvalidText:
		return errors.Join(ErrNotFound, err)
	default:
		return err
	}
}
