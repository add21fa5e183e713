// ABOUTME: Error taxonomy for the record store
// ABOUTME: Sentinels plus ValidationError, SaveError and FormatError types

package store

import (
	"errors"
	"fmt"

	"github.com/2389/nexus-tracker/internal/kv"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// ErrUnknownCollection is returned for collection names outside the fixed set.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrNotConfirmed is returned by destructive operations called without
// confirmation. Nothing is changed.
var ErrNotConfirmed = errors.New("operation not confirmed")

// ValidationError reports a user-correctable problem with a candidate record.
type ValidationError struct {
	Collection Collection
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Collection == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s record: %s", e.Collection, e.Reason)
}

// SaveReason distinguishes why a write to the backend failed.
type SaveReason int

const (
	ReasonUnknown SaveReason = iota
	ReasonQuotaExceeded
	ReasonUnavailable
)

func (r SaveReason) String() string {
	switch r {
	case ReasonQuotaExceeded:
		return "QuotaExceeded"
	case ReasonUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// SaveError is returned when collections could not be persisted.
// It unwraps to the backend error, so errors.Is(err, kv.ErrQuotaExceeded) works.
type SaveError struct {
	Reason SaveReason
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving collections (%s): %v", e.Reason, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func newSaveError(err error) *SaveError {
	reason := ReasonUnknown
	switch {
	case errors.Is(err, kv.ErrQuotaExceeded):
		reason = ReasonQuotaExceeded
	case errors.Is(err, kv.ErrUnavailable):
		reason = ReasonUnavailable
	}
	return &SaveError{Reason: reason, Err: err}
}

// FormatError is returned when an import document is malformed.
type FormatError struct {
	Key    string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Key == "" {
		return "invalid import document: " + e.Reason
	}
	return fmt.Sprintf("invalid import document: %q %s", e.Key, e.Reason)
}
