// errors.go: structured error handling for scc container operations.
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error
// codes across every container in this module (spec.md §7).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package scc

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for scc container operations.
const (
	// Configuration errors (1xxx)
	ErrCodeInvalidConfig   errors.ErrorCode = "SCC_INVALID_CONFIG"
	ErrCodeInvalidCapacity errors.ErrorCode = "SCC_INVALID_CAPACITY"
	ErrCodeInvalidFanout   errors.ErrorCode = "SCC_INVALID_FANOUT"

	// Operation errors (2xxx) — spec.md §4.4 "Tie-breaks" and §7
	ErrCodeDuplicateKey       errors.ErrorCode = "SCC_DUPLICATE_KEY"
	ErrCodeKeyNotFound        errors.ErrorCode = "SCC_KEY_NOT_FOUND"
	ErrCodeEmptyKey           errors.ErrorCode = "SCC_EMPTY_KEY"
	ErrCodeAllocationFailed   errors.ErrorCode = "SCC_ALLOCATION_FAILED"
	ErrCodeOperationCancelled errors.ErrorCode = "SCC_OPERATION_CANCELLED"

	// Tree errors (3xxx) — spec.md §4.7
	ErrCodeTreeRetryExhausted errors.ErrorCode = "SCC_TREE_RETRY_EXHAUSTED"

	// Internal errors (5xxx)
	ErrCodeInternalError      errors.ErrorCode = "SCC_INTERNAL_ERROR"
	ErrCodeInvariantViolation errors.ErrorCode = "SCC_INVARIANT_VIOLATION"
	ErrCodePanicRecovered     errors.ErrorCode = "SCC_PANIC_RECOVERED"
)

// Common error messages.
const (
	msgInvalidCapacity    = "invalid capacity: must be greater than 0"
	msgInvalidFanout      = "invalid fan-out: must be at least 2"
	msgDuplicateKey       = "key already present"
	msgKeyNotFound        = "key not found"
	msgEmptyKey           = "key cannot be empty"
	msgAllocationFailed   = "allocation failed during insert or resize"
	msgOperationCancelled = "operation was cancelled"
	msgTreeRetryExhausted = "tree descent exceeded its retry budget"
	msgInternalError      = "internal container error"
	msgInvariantViolation = "internal invariant violated"
	msgPanicRecovered     = "panic recovered in container operation"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidCapacity creates an error for a non-positive capacity.
func NewErrInvalidCapacity(capacity int) error {
	return errors.NewWithContext(ErrCodeInvalidCapacity, msgInvalidCapacity, map[string]interface{}{
		"provided_capacity": capacity,
		"minimum_required":  1,
	})
}

// NewErrInvalidFanout creates an error for a B+ tree fan-out below 2.
func NewErrInvalidFanout(fanout int) error {
	return errors.NewWithContext(ErrCodeInvalidFanout, msgInvalidFanout, map[string]interface{}{
		"provided_fanout": fanout,
		"minimum_required": 2,
	})
}

// =============================================================================
// OPERATION ERRORS
// =============================================================================

// NewErrDuplicateKey creates an error when an insert finds its key already
// present (spec.md §4.4 "Tie-breaks": "the loser receives an already
// present error with its value handed back").
func NewErrDuplicateKey(key interface{}) error {
	return errors.NewWithContext(ErrCodeDuplicateKey, msgDuplicateKey, map[string]interface{}{
		"key": fmt.Sprintf("%v", key),
	})
}

// NewErrKeyNotFound creates an error when a key is absent.
func NewErrKeyNotFound(key interface{}) error {
	return errors.NewWithContext(ErrCodeKeyNotFound, msgKeyNotFound, map[string]interface{}{
		"key": fmt.Sprintf("%v", key),
	})
}

// NewErrEmptyKey creates an error for an operation given a zero-value key
// where the container requires a meaningful one.
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrAllocationFailed creates an error for a failed overflow-node or
// resize allocation (spec.md §4.4 "Failure semantics": "surfaces as a
// typed failure; container remains consistent; resize is simply retried
// later").
func NewErrAllocationFailed(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeAllocationFailed, msgAllocationFailed).
			WithContext("operation", operation).
			AsRetryable()
	}
	return errors.NewWithField(ErrCodeAllocationFailed, msgAllocationFailed, "operation", operation).
		AsRetryable()
}

// NewErrOperationCancelled creates an error when a caller-supplied context
// is cancelled mid-wait (spec.md §4.8 "Async waiter discipline").
func NewErrOperationCancelled(key interface{}, cause error) error {
	return errors.Wrap(cause, ErrCodeOperationCancelled, msgOperationCancelled).
		WithContext("key", fmt.Sprintf("%v", key))
}

// NewErrTreeRetryExhausted creates an error when a B+ tree descent keeps
// losing races to concurrent structural changes past its retry budget
// (spec.md §4.7 "version-counter-guarded descent with retry-from-safe-
// ancestor").
func NewErrTreeRetryExhausted(key interface{}, attempts int) error {
	return errors.NewWithContext(ErrCodeTreeRetryExhausted, msgTreeRetryExhausted, map[string]interface{}{
		"key":      fmt.Sprintf("%v", key),
		"attempts": attempts,
	}).AsRetryable()
}

// =============================================================================
// INTERNAL ERRORS
// =============================================================================

// NewErrInternal creates a generic internal error.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// NewErrInvariantViolation creates an error for a broken internal
// invariant (spec.md §8 "Testable properties"). internal/ebr and
// internal/cellarray raise the same error code directly (via
// internal/invariant, to avoid importing this package) and panic with it
// on the spot — there is no recovery path once one of these fires, only
// uniform logging of the structured error before the process goes down.
func NewErrInvariantViolation(invariant string, details map[string]interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["invariant"] = invariant
	return errors.NewWithContext(ErrCodeInvariantViolation, msgInvariantViolation, details).
		WithSeverity("critical")
}

// NewErrPanicRecovered creates an error when a panic is recovered from a
// caller-supplied projection or loader function.
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsDuplicateKey reports whether err is a duplicate-key error.
func IsDuplicateKey(err error) bool {
	return errors.HasCode(err, ErrCodeDuplicateKey)
}

// IsNotFound reports whether err is a key-not-found error.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeKeyNotFound)
}

// IsEmptyKey reports whether err is an empty-key error.
func IsEmptyKey(err error) bool {
	return errors.HasCode(err, ErrCodeEmptyKey)
}

// IsAllocationFailed reports whether err is an allocation-failure error.
func IsAllocationFailed(err error) bool {
	return errors.HasCode(err, ErrCodeAllocationFailed)
}

// IsInvariantViolation reports whether err is a broken-internal-invariant
// error, whether constructed by NewErrInvariantViolation directly or
// recovered from an internal/invariant.Violate panic (both share
// ErrCodeInvariantViolation's value).
func IsInvariantViolation(err error) bool {
	return errors.HasCode(err, ErrCodeInvariantViolation)
}

// IsRetryable reports whether err can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts structured context from an error.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var sccErr *errors.Error
	if goerrors.As(err, &sccErr) {
		return sccErr.Context
	}
	return nil
}
