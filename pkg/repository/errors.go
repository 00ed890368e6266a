package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// SQLSTATE classes that clear up on their own: connection exception,
// transaction rollback, insufficient resources, operator intervention.
var transientClasses = map[string]bool{"08": true, "40": true, "53": true, "57": true}

// MapError converts sql.ErrNoRows to notFound and a PostgreSQL unique
// violation to duplicate. Anything else is returned as is.
func MapError(err error, notFound, duplicate error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return duplicate
	}

	return err
}

// Transient reports whether a retry could succeed. Errors the server
// answered with are judged by SQLSTATE class. Anything else never reached
// the server and counts as transient.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && transientClasses[pgErr.Code[:2]]
	}
	return !errors.Is(err, sql.ErrNoRows)
}
