// ABOUTME: Backend interface and sentinel errors for durable key-value storage
// ABOUTME: Every persisted document (collections, stats, game state, backups) goes through a Backend

package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable is returned when the underlying storage cannot be used at all
// (file cannot be opened, database closed, locked by another process, read-only).
var ErrUnavailable = errors.New("storage unavailable")

// ErrQuotaExceeded is returned when a write would exceed the storage budget.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a durable string-keyed document store.
//
// Implementations must treat SetMany as all-or-nothing: either every entry is
// written or none is.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, entries map[string][]byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	// Ping reports whether the backend is currently usable.
	Ping(ctx context.Context) error
	Close() error
}

// Has reports whether key is present in b.
func Has(ctx context.Context, b Backend, key string) (bool, error) {
	_, err := b.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
