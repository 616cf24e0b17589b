package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeBadRequest    = "bad_request"
	ErrCodePublishFailed = "publish_failed"
	ErrCodeStorageError  = "storage_error"
	ErrCodeNotFound      = "not_found"
)

var (
	// ErrEmptyRoomID is returned when a publish names no room.
	ErrEmptyRoomID = errors.New("empty room id")
	// ErrEmptySenderID is returned when a publish names no sender.
	ErrEmptySenderID = errors.New("empty sender id")
	// ErrEmptyPayload is returned when a type-specific required field is missing.
	ErrEmptyPayload = errors.New("empty payload field")
	// ErrPublishRejected wraps transport-level rejection or timeout of a
	// publish. The event is not retried or queued; delivery is at-most-once.
	ErrPublishRejected = errors.New("publish rejected by transport")
)
