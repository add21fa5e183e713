// ABOUTME: Byte-budget wrapper around a Backend
// ABOUTME: Rejects writes that would push the total stored size past the limit

package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultQuotaBytes is the default storage budget (5 MiB).
const DefaultQuotaBytes = 5 << 20

// Quota wraps a Backend and enforces a total size limit, counted as the sum of
// len(key)+len(value) over all stored entries.
type Quota struct {
	Backend

	max int64

	mu     sync.Mutex
	sizes  map[string]int64
	total  int64
	loaded bool
}

// WithQuota wraps b with a byte budget. maxBytes <= 0 disables the limit and
// returns b unchanged.
func WithQuota(b Backend, maxBytes int64) Backend {
	if maxBytes <= 0 {
		return b
	}
	return &Quota{Backend: b, max: maxBytes}
}

// Used returns the number of bytes currently counted against the budget.
func (q *Quota) Used(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.load(ctx); err != nil {
		return 0, err
	}
	return q.total, nil
}

// load sizes every existing entry once, on first use.
func (q *Quota) load(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	keys, err := q.Backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("sizing existing keys: %w", err)
	}
	q.sizes = make(map[string]int64, len(keys))
	q.total = 0
	for _, k := range keys {
		v, err := q.Backend.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("sizing key %q: %w", k, err)
		}
		n := int64(len(k) + len(v))
		q.sizes[k] = n
		q.total += n
	}
	q.loaded = true
	return nil
}

// Set stores value if the budget allows it.
func (q *Quota) Set(ctx context.Context, key string, value []byte) error {
	return q.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany stores all entries if their combined effect fits the budget.
func (q *Quota) SetMany(ctx context.Context, entries map[string][]byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(ctx); err != nil {
		return err
	}

	next := q.total
	for k, v := range entries {
		next += int64(len(k)+len(v)) - q.sizes[k]
	}
	if next > q.max {
		return fmt.Errorf("%w: %d bytes needed, limit is %d", ErrQuotaExceeded, next, q.max)
	}

	if err := q.Backend.SetMany(ctx, entries); err != nil {
		return err
	}
	for k, v := range entries {
		q.sizes[k] = int64(len(k) + len(v))
	}
	q.total = next
	return nil
}

// Delete removes key and releases its bytes.
func (q *Quota) Delete(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.Backend.Delete(ctx, key); err != nil {
		return err
	}
	if q.loaded {
		q.total -= q.sizes[key]
		delete(q.sizes, key)
	}
	return nil
}
