package ledger

import (
	"context"
	"slices"
	"sync"
)

// Memory is a process-local ledger for development and tests.
type Memory struct {
	mu   sync.RWMutex
	sets map[string][]int
}

func NewMemory() *Memory {
	return &Memory{sets: make(map[string][]int)}
}

func (m *Memory) IDs(_ context.Context, subject string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sets[subject]), nil
}

func (m *Memory) Add(_ context.Context, subject string, id int) error {
	if err := validSubject(subject); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.sets[subject], id) {
		m.sets[subject] = append(m.sets[subject], id)
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, subject string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.sets[subject]
	if i := slices.Index(ids, id); i >= 0 {
		m.sets[subject] = slices.Delete(ids, i, i+1)
	}
	return nil
}
