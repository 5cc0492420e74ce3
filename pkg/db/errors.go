package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation.
// With a constraint name the match narrows to that constraint; without one
// any unique violation matches. Falls back to message inspection for drivers
// that do not surface a typed error (sqlite in tests).
func IsUniqueViolation(err error, constraint ...string) bool {
	if err == nil {
		return false
	}

	name := ""
	if len(constraint) > 0 {
		name = constraint[0]
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == uniqueViolationCode {
		return name == "" || pgxErr.ConstraintName == name
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
		return name == "" || pqErr.Constraint == name
	}

	msg := err.Error()
	if name != "" {
		return strings.Contains(msg, name)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
