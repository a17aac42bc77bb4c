// Package sqlerr classifies PostgreSQL driver errors.
//
// Its main use is as a retry predicate: IsTransient reports errors that a
// later attempt of the same work can reasonably be expected to survive.
package sqlerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Code is a coarse category for a database error.
type Code string

const (
	Other                Code = "OTHER"
	SerializationFailure Code = "SERIALIZATION_FAILURE"
	DeadlockDetected     Code = "DEADLOCK_DETECTED"
	LockNotAvailable     Code = "LOCK_NOT_AVAILABLE"
	UniqueViolation      Code = "UNIQUE_VIOLATION"
	ForeignKeyViolation  Code = "FOREIGN_KEY_VIOLATION"
	NotNullViolation     Code = "NOT_NULL_VIOLATION"
	CheckViolation       Code = "CHECK_VIOLATION"
	UndefinedTable       Code = "UNDEFINED_TABLE"
	SyntaxError          Code = "SYNTAX_ERROR"
)

// Error is a categorised view of a *pgconn.PgError.
type Error struct {
	Code         Code
	DatabaseCode string
	Message      string
	TableName    string
	driverErr    error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the driver error.
func (e *Error) Unwrap() error {
	return e.driverErr
}

// MapCode maps a SQLSTATE to a Code.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "40001":
		return SerializationFailure
	case "40P01":
		return DeadlockDetected
	case "55P03":
		return LockNotAvailable
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	case "42P01":
		return UndefinedTable
	case "42601":
		return SyntaxError
	default:
		return Other
	}
}

// Convert wraps a driver error. It returns nil when err carries no
// *pgconn.PgError.
func Convert(err error) *Error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	return &Error{
		Code:         MapCode(pgErr.Code),
		DatabaseCode: pgErr.Code,
		Message:      pgErr.Message,
		TableName:    pgErr.TableName,
		driverErr:    pgErr,
	}
}

// ErrCode reports the Code for err, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	if e := Convert(err); e != nil {
		return e.Code
	}
	return Other
}

// IsTransient reports whether err is a serialization failure, a deadlock or
// a lock timeout.
func IsTransient(err error) bool {
	switch ErrCode(err) {
	case SerializationFailure, DeadlockDetected, LockNotAvailable:
		return true
	}
	return false
}
