// Package errors provides structured error handling for the turns service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeInvalidSessionID Code = "TURN_INVALID_SESSION_ID"
	CodeInvalidExpected  Code = "TURN_INVALID_EXPECTED_ENTRY_ID"
	CodeInvalidAction    Code = "TURN_INVALID_ACTION"
	CodeInvalidBody      Code = "TURN_INVALID_BODY"

	// Auth errors
	CodeSecretMismatch Code = "AUTH_SECRET_MISMATCH"

	// Transport errors
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"

	// State errors
	CodeQueueNotInitialized Code = "QUEUE_NOT_INITIALIZED"
	CodeAdvanceConflict     Code = "TURN_ADVANCE_CONFLICT"

	// Storage errors
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidSessionID,
		CodeInvalidExpected,
		CodeInvalidAction,
		CodeInvalidBody:
		return http.StatusBadRequest

	case CodeSecretMismatch:
		return http.StatusForbidden

	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed

	// Conflict - the caller's view of the queue is stale or the queue was
	// never initialized.
	case CodeQueueNotInitialized,
		CodeAdvanceConflict:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
