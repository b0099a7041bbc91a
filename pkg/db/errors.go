package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// IsUniqueViolation reports whether err is a duplicate key failure. Postgres
// errors are matched on SQLSTATE; SQLite only exposes the message text.
// A non-empty constraintName narrows the match to that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		if pg.State != pkgerrors.SQLStateUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
