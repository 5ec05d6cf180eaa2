package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid request")
	ErrJobInFlight     = errors.New("generation already in progress")
	ErrProviderFailure = errors.New("provider failure")
	ErrStorage         = errors.New("storage failure")
)

// ValidationError carries a client-facing message while still matching
// ErrValidation with errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}
