package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers distinguish them to decide whether to retry
// (transient), fix input (validation), or abandon (permanent,
// consistency). Wrapped with %w so errors.Is works through call chains.
var (
	ErrValidation       = errors.New("validation error")
	ErrTransientService = errors.New("transient service error")
	ErrPermanentService = errors.New("permanent service error")
	ErrConsistency      = errors.New("consistency error")
	ErrNotFound         = errors.New("not found")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Transientf wraps ErrTransientService with a formatted message.
func Transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransientService, fmt.Sprintf(format, args...))
}

// Permanentf wraps ErrPermanentService with a formatted message.
func Permanentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanentService, fmt.Sprintf(format, args...))
}

// Consistencyf wraps ErrConsistency with a formatted message.
func Consistencyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return errors.Is(err, ErrTransientService) }
