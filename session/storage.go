package session

import (
	"context"
	"sync"
)

// Storage is the key-value contract the session persists credentials
// through.  Implementations choose durability: the host application injects
// a durable backend (keychain, encrypted file, browser storage bridge) or
// accepts the process-lifetime Memory fallback.  All methods must be safe
// for concurrent use.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error

	// Remove deletes the value for key.  Removing an absent key is not an
	// error.
	Remove(ctx context.Context, key string) error
}

// Memory is a process-lifetime Storage implementation.  Credentials stored
// in it do not survive a process restart.  The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// ensure that Memory implements the Storage interface.
var _ Storage = (*Memory)(nil)

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{
		values: map[string]string{},
	}
}

// Get implements Storage.Get.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Storage.Set.
func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

// Remove implements Storage.Remove.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
