// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrForbidden       = errors.New("forbidden")

	// Store errors. FetchFailure covers every failed store read: the caller
	// treats the cycle as "no data" and waits for the next user-triggered
	// refresh, never retrying on its own. WriteFailure is the counterpart
	// for failed inserts, updates and deletes; conflicts keep their own kind.
	ErrFetchFailure    = errors.New("store read failed")
	ErrWriteFailure    = errors.New("store write failed")
	ErrConflictOnWrite = errors.New("conflicting write")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "score", "battle", "leaderboard"
	Op      string // Operation that failed, e.g., "Challenge", "Resolve"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Battle domain errors
var (
	ErrBattleNotFound     = NewDomainError("battle", "Find", ErrNotFound, "battle not found")
	ErrDuplicateChallenge = NewDomainError("battle", "Challenge", ErrAlreadyExists, "a pending or active battle already exists between these users")
	ErrSelfChallenge      = NewDomainError("battle", "Challenge", ErrInvalidInput, "cannot challenge yourself")
	ErrInvalidDuration    = NewDomainError("battle", "Validate", ErrInvalidInput, "unknown battle duration")
	ErrNotOpponent        = NewDomainError("battle", "Accept", ErrForbidden, "only the challenged user may accept")
	ErrBattleNotPending   = NewDomainError("battle", "Accept", ErrStateTransition, "battle is not pending")
	ErrBattleFinished     = NewDomainError("battle", "Update", ErrInvalidState, "finished battle is immutable")
)

// Usage store errors
var (
	ErrDailyRecordNotFound = NewDomainError("usage", "ReadDailyRecord", ErrNotFound, "no usage record for this day")
	ErrAggregateNotFound   = NewDomainError("usage", "ReadMonthlyAggregate", ErrNotFound, "no monthly aggregate for this user")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue)
}

// IsFetchFailure checks if the error is a failed store read.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrFetchFailure)
}

// IsWriteFailure checks if the error is a failed store write.
func IsWriteFailure(err error) bool {
	return errors.Is(err, ErrWriteFailure)
}

// IsConflict checks if the error is a conflicting concurrent write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictOnWrite) || errors.Is(err, ErrAlreadyExists)
}
