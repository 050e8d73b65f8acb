package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateDrop = errors.New("drop already recorded for this user, bin and day")
	ErrUnknownUser   = errors.New("user does not exist")
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// foreignKeyViolation is the Postgres SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// dropUserForeignKey is the default name Postgres gives the drop_events.user_id key.
const dropUserForeignKey = "drop_events_user_id_fkey"

func isForeignKeyViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation && pqErr.Constraint == constraint
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
