package credentials

import (
	"os"
	"sync"
)

// Settings is the process-wide configuration store the resolver writes
// exporter settings into.
type Settings interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// Environ backs Settings with the process environment.
type Environ struct{}

func (Environ) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (Environ) Set(key, value string) error {
	return os.Setenv(key, value)
}

// MemorySettings is an in-process Settings implementation.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySettings returns a MemorySettings seeded with values.
func NewMemorySettings(values map[string]string) *MemorySettings {
	m := &MemorySettings{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemorySettings) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemorySettings) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// setIfAbsent writes value only when key is unset or empty and reports the
// value that is in effect afterwards.
func setIfAbsent(s Settings, key, value string) (string, error) {
	if current, ok := s.Lookup(key); ok && current != "" {
		return current, nil
	}
	if err := s.Set(key, value); err != nil {
		return "", err
	}
	return value, nil
}
