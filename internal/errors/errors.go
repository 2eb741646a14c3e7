package errors

import (
	"errors"
	"fmt"
)

// Error classes surfaced to the API layer. Every failure returned by the session,
// recovery, verification and ban services wraps exactly one of these.
var (
	// ErrNotFound covers absent users, sessions and bans. Revoked and expired sessions
	// are reported with this class too, so they are indistinguishable from missing ones.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation covers self-ban, self-unban, wrong or expired codes and reuse
	// of consumed codes.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAccessDenied is returned when a session or ban does not belong to the actor.
	ErrAccessDenied = errors.New("access denied")

	// ErrOperationFailed is returned when a persistence write was not acknowledged.
	ErrOperationFailed = errors.New("operation failed")

	// ErrInvalidCredentials is returned by login for an unknown identifier or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
