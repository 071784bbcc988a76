/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a targeted record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRequest is returned when input validation fails
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternal is returned for invariant violations that require investigation
	ErrInternal = errors.New("internal error")

	// ErrDataCorruption is returned when a persisted record fails schema validation on load
	ErrDataCorruption = errors.New("data corruption detected")

	// ErrTransactionFailed is returned when a transactional write is rejected by the store
	ErrTransactionFailed = errors.New("transaction failed")
)

// NotFoundError represents an error when a targeted record is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidRequestError represents an input validation error
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InternalError represents an invariant violation. The boundary maps it to a
// generic response; the message is for logs only.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

// DataCorruptionError represents a persisted record whose shape does not match
// its declared type
type DataCorruptionError struct {
	RecordType string
	Key        string
	Message    string
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("corrupted %s record %q: %s", e.RecordType, e.Key, e.Message)
}

func (e *DataCorruptionError) Is(target error) bool {
	return target == ErrDataCorruption || target == ErrInternal
}

// TransactionFailedError represents a rejected transactional write
type TransactionFailedError struct {
	Operation string
	Cause     error
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Operation, e.Cause)
}

func (e *TransactionFailedError) Is(target error) bool {
	return target == ErrTransactionFailed
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Cause
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(recordType, key string) error {
	return &NotFoundError{Type: recordType, Key: key}
}

// NewInvalidRequestError creates a new InvalidRequestError
func NewInvalidRequestError(field, message string) error {
	return &InvalidRequestError{Field: field, Message: message}
}

// NewInternalError creates a new InternalError
func NewInternalError(format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// NewDataCorruptionError creates a new DataCorruptionError
func NewDataCorruptionError(recordType, key, message string) error {
	return &DataCorruptionError{RecordType: recordType, Key: key, Message: message}
}

// NewTransactionFailedError creates a new TransactionFailedError
func NewTransactionFailedError(operation string, cause error) error {
	return &TransactionFailedError{Operation: operation, Cause: cause}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidRequest checks if an error is an input validation error
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsInternal checks if an error is an invariant violation
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// IsDataCorruption checks if an error is a schema validation failure on load
func IsDataCorruption(err error) bool {
	return errors.Is(err, ErrDataCorruption)
}

// IsTransactionFailed checks if an error is a rejected transactional write
func IsTransactionFailed(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
