package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE values the screening store reacts to
const (
	sqlUniqueViolation     = "23505"
	sqlForeignKeyViolation = "23503"
	sqlNotNullViolation    = "23502"
	sqlCheckViolation      = "23514"
	sqlBadText             = "22P02"
	sqlSerialization       = "40001"
	sqlDeadlock            = "40P01"
	sqlLockNotAvailable    = "55P03" // lock_timeout
	sqlQueryCanceled       = "57014"
	sqlCannotConnectNow    = "57P03"
	sqlAdminShutdown       = "57P01"
)

// ExtractPgError finds a *pgconn.PgError anywhere in err's chain
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pg *pgconn.PgError
	ok := stderrs.As(err, &pg)
	return pg, ok
}

// IsDuplicateKey reports a unique constraint violation
func IsDuplicateKey(err error) bool {
	pg, ok := ExtractPgError(err)
	return ok && pg.Code == sqlUniqueViolation
}

func pgCode(pg *pgconn.PgError) ErrorCode {
	switch pg.Code {
	case sqlUniqueViolation:
		return ErrorCodeDuplicateKey
	case sqlForeignKeyViolation, sqlNotNullViolation, sqlCheckViolation, sqlBadText:
		return ErrorCodeValidation
	case sqlSerialization, sqlDeadlock, sqlLockNotAvailable:
		return ErrorCodeContention
	case sqlQueryCanceled, sqlCannotConnectNow, sqlAdminShutdown:
		return ErrorCodeUnavailable
	}
	return ErrorCodeDB
}

// FromPostgres wraps a database error with a code derived from its SQLSTATE.
// Errors already carrying a code keep it. nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsCode(err, ErrorCodeUnknown) {
		if pg, ok := ExtractPgError(err); ok {
			return Wrap(err, pgCode(pg), msg)
		}
		return Wrap(err, ErrorCodeDB, msg)
	}
	return Wrap(err, CodeOf(err), msg)
}

// transientDB reports database failures a caller may retry as is.
// Local cancellation never counts
func transientDB(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pg, ok := ExtractPgError(err); ok {
		switch pgCode(pg) {
		case ErrorCodeContention, ErrorCodeUnavailable:
			return true
		}
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "commit unexpectedly resulted in rollback")
}
