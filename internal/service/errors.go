package service

import (
	"errors"
	"fmt"

	"garagepro/internal/billing"
)

// Error kinds returned by the billing services. Callers match them with
// errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrValidation         = errors.New("validation failed")
	ErrSignature          = errors.New("webhook signature verification failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrProvider           = errors.New("payment provider error")
	ErrPersistence        = errors.New("persistence error")
	ErrMissingIdentity    = errors.New("cannot resolve user for billing event")
	ErrPaymentNotComplete = errors.New("payment not complete")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// providerError classifies a billing.Provider failure. Objects the provider
// reports as missing become ErrNotFound.
func providerError(err error) error {
	if errors.Is(err, billing.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}
