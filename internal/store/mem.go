package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Mem is an in-memory Store for tests.
type Mem struct {
	mu    sync.RWMutex
	name  string
	files map[string][]byte
}

// NewMem returns an empty Mem. name only appears in Path results.
func NewMem(name string) *Mem {
	return &Mem{name: name, files: make(map[string][]byte)}
}

func (m *Mem) List(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for n := range m.files {
		ok, err := matches(pattern, n)
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mem) Has(_ context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *Mem) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("store: open %s: %w", name, ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Mem) Put(_ context.Context, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	m.mu.Lock()
	m.files[name] = data
	m.mu.Unlock()
	return nil
}

func (m *Mem) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return fmt.Errorf("store: delete %s: %w", name, ErrNotExist)
	}
	delete(m.files, name)
	return nil
}

func (m *Mem) Path(name string) string {
	return "mem://" + m.name + "/" + name
}

// PutString is a test convenience around Put.
func (m *Mem) PutString(name, content string) {
	m.mu.Lock()
	m.files[name] = []byte(content)
	m.mu.Unlock()
}
