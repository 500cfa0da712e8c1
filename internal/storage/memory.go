package storage

import (
	"errors"
	"sync"
)

// Memory is a map-backed KV used by tests that need to inject failures or
// inspect writes without opening Badger.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
	writes map[string]int

	// SetErr, when non-nil, is returned by every Set call.
	SetErr error
	// GetErr, when non-nil, is returned by every Get call.
	GetErr error
}

var _ KV = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}, writes: map[string]int{}}
}

// Get implements KV.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements KV.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = append([]byte(nil), value...)
	m.writes[key]++
	return nil
}

// Delete implements KV.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Writes returns how many successful Set calls hit key.
func (m *Memory) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

// ErrInjected is a convenience error for failure-path tests.
var ErrInjected = errors.New("injected storage failure")
