// internal/common/errors/errors.go

// Package errors provides standardized error handling for the loan
// management API and its services.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAllocationConflict ErrorCode = "ALLOCATION_CONFLICT"
	ErrCodeAllocationFailed   ErrorCode = "ALLOCATION_FAILED"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeCorruptedUpload  ErrorCode = "CORRUPTED_UPLOAD"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"

	ErrCodeRecordNotFound    ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeStoreReadFailed  ErrorCode = "STORE_READ_FAILED"

	ErrCodeMastersParentMissing ErrorCode = "MASTERS_PARENT_MISSING"

	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAllocationConflictError marks a transaction abort caused by a concurrent
// writer on the same sequence bucket; the allocator retries these itself.
func NewAllocationConflictError(bucket string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAllocationConflict,
		Message:   "Concurrent sequence allocation conflict",
		Details:   fmt.Sprintf("bucket: %s", bucket),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllocationFailedError is returned once the allocator's retry budget is
// exhausted; callers surface it to the user as a transient failure.
func NewAllocationFailedError(attempts int, err error) *StandardError {
	details := fmt.Sprintf("attempts: %d", attempts)
	if err != nil {
		details = fmt.Sprintf("attempts: %d, error: %s", attempts, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeAllocationFailed,
		Message:   "Failed to generate form number after retries",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable form validation error with
// per-field messages.
func NewValidationFailedError(fields map[string]interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application data validation failed",
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewCorruptedUploadError flags a document payload that failed the structural
// or content checks.
func NewCorruptedUploadError(slot, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCorruptedUpload,
		Message:   "Uploaded document payload is corrupted",
		Details:   fmt.Sprintf("slot: %s, %s", slot, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError rejects uploads over the inline-storage cap.
func NewFileTooLargeError(fileName string, size int64, maxBytes int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   "Uploaded file exceeds the size limit",
		Details:   fmt.Sprintf("file: %s, size: %d, max: %d", fileName, size, maxBytes),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordNotFoundError signals a lookup miss surfaced through the API; data
// layer misses use database.ErrNotFound instead.
func NewRecordNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError rejects a status change the transition table does
// not allow.
func NewInvalidTransitionError(from, event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Status transition not allowed",
		Details:   fmt.Sprintf("from: %s, event: %s", from, event),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteFailedError creates a retryable persistence error.
func NewStoreWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreWriteFailed,
		Message:   "Document store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreReadFailedError creates a retryable read error.
func NewStoreReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreReadFailed,
		Message:   "Document store read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMastersParentMissingError rejects a child master whose parent code does
// not resolve to an existing active record.
func NewMastersParentMissingError(kind, code string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMastersParentMissing,
		Message:   fmt.Sprintf("Referenced %s does not exist or is inactive", kind),
		Details:   fmt.Sprintf("%sCode: %s", kind, code),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(permission string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Insufficient permissions",
		Details:   fmt.Sprintf("permission: %s", permission),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError(resetMs int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Details:   fmt.Sprintf("retryAfterMs: %d", resetMs),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps error codes to the status the API layer responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeCorruptedUpload:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeMastersParentMissing:
		return http.StatusConflict
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRecordNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAllocationFailed, ErrCodeAllocationConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from err, or nil when the chain holds
// none.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return nil
}

// IsRetryable reports whether the error chain carries a retryable
// StandardError.
func IsRetryable(err error) bool {
	if stdErr := AsStandard(err); stdErr != nil {
		return stdErr.Retryable
	}
	return false
}
