package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("resource conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// FeedFetchError reports a transport failure or malformed payload from
// the external feed. It aborts the current poll without mutating the
// watermark; the next scheduled trigger retries.
type FeedFetchError struct {
	URL string
	Err error
}

func (e FeedFetchError) Error() string {
	return fmt.Sprintf("feed fetch from %s failed: %v", e.URL, e.Err)
}

func (e FeedFetchError) Unwrap() error {
	return e.Err
}

// ExtractionServiceError reports the entity service being unavailable
// or returning an error for one post. Processing of the offending post
// stops; the rest of the batch continues.
type ExtractionServiceError struct {
	ReferenceID string
	Err         error
}

func (e ExtractionServiceError) Error() string {
	return fmt.Sprintf("entity extraction for post %s failed: %v", e.ReferenceID, e.Err)
}

func (e ExtractionServiceError) Unwrap() error {
	return e.Err
}

// NotificationDeliveryError reports a per-token push failure. It never
// aborts the rest of a match pass; dead tokens are pruned instead.
type NotificationDeliveryError struct {
	Token  string
	Reason string
}

func (e NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery to token %s failed: %s", e.Token, e.Reason)
}

// MalformedRecordError reports a raw post missing required fields. The
// single offending record is skipped and the batch continues.
type MalformedRecordError struct {
	ID    string
	Field string
}

func (e MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed record: missing %s", e.Field)
	}
	return fmt.Sprintf("malformed record %s: missing %s", e.ID, e.Field)
}

// IsFeedFetch reports whether err is a FeedFetchError.
func IsFeedFetch(err error) bool {
	var e FeedFetchError
	return errors.As(err, &e)
}

// IsExtraction reports whether err is an ExtractionServiceError.
func IsExtraction(err error) bool {
	var e ExtractionServiceError
	return errors.As(err, &e)
}

// IsMalformed reports whether err is a MalformedRecordError.
func IsMalformed(err error) bool {
	var e MalformedRecordError
	return errors.As(err, &e)
}
