package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the core wraps exactly one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

var (
	// ErrJobNotFound is returned when a job id does not exist
	ErrJobNotFound = fmt.Errorf("job %w", ErrNotFound)

	// ErrPrincipalNotFound is returned when an actor or assignee id does not exist
	ErrPrincipalNotFound = fmt.Errorf("principal %w", ErrNotFound)

	// ErrNotificationNotFound is returned for unknown or foreign notification ids
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	// ErrInvalidStatus is returned for values outside the status enum
	ErrInvalidStatus = fmt.Errorf("%w: invalid job status", ErrInvalidArgument)

	// ErrInvalidLocation is returned for out-of-range coordinates
	ErrInvalidLocation = fmt.Errorf("%w: invalid location", ErrInvalidArgument)

	// ErrTransitionNotAllowed is returned when the transition policy rejects a change
	ErrTransitionNotAllowed = fmt.Errorf("%w: status transition not allowed", ErrConflict)
)

// Internal wraps a storage, transaction or directory failure so that both
// ErrInternal and the cause are reachable through errors.Is.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// InvalidArgument builds a validation error with a message
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IsKnownKind reports whether err carries one of the taxonomy kinds
func IsKnownKind(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInternal)
}
