package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Every error returned by the persistence and application layers
// wraps exactly one of these so transports can map them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrConflict marks a transaction that could not commit; callers may retry.
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service failure")
)

var (
	ErrSetlistNotFound = fmt.Errorf("setlist %w", ErrNotFound)
	ErrSongNotFound    = fmt.Errorf("song %w", ErrNotFound)
	ErrBlockNotFound   = fmt.Errorf("block %w", ErrNotFound)
	ErrEntryNotFound   = fmt.Errorf("setlist entry %w", ErrNotFound)
	ErrBandNotFound    = fmt.Errorf("band %w", ErrNotFound)

	ErrSongInUse = fmt.Errorf("song is referenced by a setlist: %w", ErrConflict)

	// ErrUserExists signals the username is already taken.
	ErrUserExists = fmt.Errorf("user already exists: %w", ErrConflict)
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized indicates an invalid or missing token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Invalid wraps a validation message as an ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Postgres SQLSTATE codes the store cares about.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// dbErr wraps a driver error with the operation name and, when the failure is
// one the caller can act on, the matching error kind.
func dbErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeForeignKeyViolation
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return false
}
