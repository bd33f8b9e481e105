package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is the read-only configuration lookup the gate consults. ok is
// false when the key is absent or does not hold a boolean value.
type Store interface {
	Lookup(key string) (value bool, ok bool)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(key string) (bool, bool)

// Lookup implements Store.
func (f StoreFunc) Lookup(key string) (bool, bool) {
	if f == nil {
		return false, false
	}
	return f(key)
}

// MapStore is an in-memory Store. Values are coerced with the same rules as
// the settings file.
type MapStore map[string]any

// Lookup implements Store.
func (m MapStore) Lookup(key string) (bool, bool) {
	raw, ok := m[strings.TrimSpace(key)]
	if !ok {
		return false, false
	}
	return boolValue(raw)
}

// Layered consults each store in order and returns the first known value.
type Layered []Store

// Lookup implements Store.
func (l Layered) Lookup(key string) (bool, bool) {
	for _, store := range l {
		if store == nil {
			continue
		}
		if value, ok := store.Lookup(key); ok {
			return value, true
		}
	}
	return false, false
}

// FileStore serves flattened keys from a YAML settings file. Nested maps
// become dotted keys ("roll: {enabled: true}" is "roll.enabled").
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]any
}

// LoadFile reads the settings file at path. A missing file yields an empty
// store so every gated component fails closed.
func LoadFile(path string) (*FileStore, error) {
	store := &FileStore{path: filepath.Clean(path), values: map[string]any{}}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Reload re-reads the settings file, replacing all values at once.
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.swap(map[string]any{})
			return nil
		}
		return fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	values := map[string]any{}
	flatten("", raw, values)
	s.swap(values)
	return nil
}

func (s *FileStore) swap(values map[string]any) {
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
}

// Lookup implements Store.
func (s *FileStore) Lookup(key string) (bool, bool) {
	s.mu.RLock()
	raw, ok := s.values[strings.TrimSpace(key)]
	s.mu.RUnlock()
	if !ok {
		return false, false
	}
	return boolValue(raw)
}

// Keys returns the number of flattened keys currently loaded.
func (s *FileStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for key, value := range in {
		full := strings.TrimSpace(key)
		if prefix != "" {
			full = prefix + "." + full
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(full, nested, out)
			continue
		}
		out[full] = value
	}
}

func boolValue(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes", "enabled":
			return true, true
		case "off", "no", "disabled":
			return false, true
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}
