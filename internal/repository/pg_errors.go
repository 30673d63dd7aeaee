package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	studentIDConstraint  = "students_student_id_key"
	usernameConstraint   = "users_username_key"
	externalIDConstraint = "users_external_id_key"
)

// isUniqueViolation reports a PostgreSQL unique_violation (23505) on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
