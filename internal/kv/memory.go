// ABOUTME: In-memory Backend implementation for tests and degraded sessions
// ABOUTME: Supports injected write failures and simulated outages

package kv

import (
	"context"
	"sort"
	"sync"
)

// Memory is a map-backed Backend. It never persists anything.
type Memory struct {
	mu          sync.RWMutex
	data        map[string][]byte
	writeErr    error
	unavailable bool
	closed      bool
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// FailWrites makes every subsequent Set, SetMany and Delete return err.
// Pass nil to clear the fault.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetAvailable toggles a simulated outage. While unavailable every call
// returns ErrUnavailable.
func (m *Memory) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !ok
}

func (m *Memory) readCheck() error {
	if m.closed || m.unavailable {
		return ErrUnavailable
	}
	return nil
}

func (m *Memory) writeCheck() error {
	if err := m.readCheck(); err != nil {
		return err
	}
	return m.writeErr
}

// Get returns a copy of the stored value.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.readCheck(); err != nil {
		return nil, err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	return m.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany stores every entry, or none if a fault is injected.
func (m *Memory) SetMany(ctx context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeCheck(); err != nil {
		return err
	}
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeCheck(); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

// Keys lists stored keys in ascending order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.readCheck(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping returns ErrUnavailable during a simulated outage or after Close.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readCheck()
}

// Close marks the backend closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
