package service

import (
	"context"
	"errors"
	"fmt"

	"catastro-backend/repository"
)

// Typed errors returned by the engines. The API layer translates them into
// HTTP responses; the engines never retry on their own — in particular a
// Conflict means the caller lost a concurrent race and should re-read.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict: entity changed concurrently")
	ErrUnavailable       = errors.New("store unavailable")

	// Subcases of ErrInvalidTransition kept distinct for caller messaging.
	// errors.Is(err, ErrInvalidTransition) still matches both.
	ErrAlreadyAssigned = fmt.Errorf("%w: manager already assigned", ErrInvalidTransition)
	ErrAlreadyReviewed = fmt.Errorf("%w: proposal already reviewed", ErrInvalidTransition)
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translateStoreError maps storage-level sentinels onto the engine error
// taxonomy. Timeouts surface as retryable ErrUnavailable; anything else
// passes through untouched.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStateChanged):
		return ErrConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
