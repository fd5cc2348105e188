package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process store. Every subscriber sees every write, which
// makes it a stand-in for several instances sharing one store.
type Memory struct {
	write  sync.Mutex
	mu     sync.Mutex
	values map[string]json.RawMessage
	closed bool
	hub    hub
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return pick(m.values, keys), nil
}

func (m *Memory) Set(ctx context.Context, origin string, values map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.write.Lock()
	defer m.write.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	deltas := apply(m.values, values)
	m.mu.Unlock()

	m.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: deltas})
	return nil
}

func (m *Memory) Subscribe(fn func(Change)) func() {
	return m.hub.subscribe(fn)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.hub.reset()
	return nil
}
