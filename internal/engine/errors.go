package engine

import (
	"errors"
	"fmt"

	"github.com/aminofabian/ichama-sub002/internal/calculator"
	"github.com/aminofabian/ichama-sub002/internal/ledger"
	"github.com/aminofabian/ichama-sub002/internal/models"
	"github.com/aminofabian/ichama-sub002/internal/storage"
)

// Error kinds. Every error returned by the engine wraps exactly one of these,
// or is an unexpected storage failure.
var (
	ErrValidation    = errors.New("validation error")
	ErrStateConflict = errors.New("state conflict")
	ErrUnauthorized  = errors.New("not authorized")
	ErrCapacity      = errors.New("insufficient guarantee capacity")
	ErrNotFound      = storage.ErrNotFound
)

// Specific conflicts callers may want to tell apart.
var (
	ErrPeriodNotClosed  = fmt.Errorf("%w: period not closed", ErrStateConflict)
	ErrAlreadyConfirmed = fmt.Errorf("%w: contribution already confirmed", ErrStateConflict)
	ErrAlreadyPaid      = fmt.Errorf("%w: payout already released", ErrStateConflict)
	ErrQuorumNotMet     = fmt.Errorf("%w: contribution quorum not met", ErrStateConflict)
	ErrCycleNotActive   = fmt.Errorf("%w: cycle is not active", ErrStateConflict)
	ErrInsufficientPool = fmt.Errorf("%w: pool balance below payout", ErrStateConflict)
	ErrTreasuryShort    = fmt.Errorf("%w: treasury balance below loan", ErrStateConflict)
)

// Outcome labels used in operation metrics.
const (
	outcomeOK           = "ok"
	outcomeValidation   = "validation"
	outcomeConflict     = "conflict"
	outcomeUnauthorized = "unauthorized"
	outcomeCapacity     = "capacity"
	outcomeNotFound     = "not_found"
	outcomeError        = "error"
)

// Outcome classifies err into a metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrValidation):
		return outcomeValidation
	case errors.Is(err, ErrStateConflict):
		return outcomeConflict
	case errors.Is(err, ErrUnauthorized):
		return outcomeUnauthorized
	case errors.Is(err, ErrCapacity):
		return outcomeCapacity
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

// classify folds errors from lower layers into the engine's kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, ledger.ErrInsufficientSavings):
		if errors.Is(err, ErrStateConflict) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStateConflict, err)
	case errors.Is(err, calculator.ErrInvalidSplit),
		errors.Is(err, ledger.ErrInvalidEntry):
		if errors.Is(err, ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
