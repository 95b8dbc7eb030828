package store

import (
	"context"
	"sync"
)

// Memory keeps slots in a process-local map. Used by tests and by the
// CLI's throwaway demo mode; contents do not survive the process.
type Memory struct {
	mu    sync.Mutex
	slots map[slotKey][]byte
}

type slotKey struct {
	kind     string
	identity string
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[slotKey][]byte)}
}

func (m *Memory) Load(_ context.Context, kind, identity string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.slots[slotKey{kind, identity}]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (m *Memory) Save(_ context.Context, kind, identity string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw := make([]byte, len(value))
	copy(raw, value)
	m.slots[slotKey{kind, identity}] = raw
	return nil
}

func (m *Memory) Delete(_ context.Context, kind, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slotKey{kind, identity})
	return nil
}
