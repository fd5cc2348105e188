// Package store is the persistent key-value store shared by every running
// instance. Values are raw JSON documents grouped by storage area, and every
// write is broadcast to subscribers with its old and new values.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// AreaLocal is the only storage area in use.
const AreaLocal = "local"

var (
	ErrClosed      = errors.New("store: closed")
	ErrUnsupported = errors.New("store: unsupported backend")
	ErrInvalidDSN  = errors.New("store: invalid dsn")
)

// Delta is the change of one key. A nil New means the key was removed.
type Delta struct {
	Old json.RawMessage
	New json.RawMessage
}

// Change is one broadcast write. Origin identifies the writer.
type Change struct {
	Area   string
	Origin string
	Keys   map[string]Delta
}

type Store interface {
	// Get returns the current values of keys. Missing keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set writes values on behalf of origin. A nil value removes the key.
	Set(ctx context.Context, origin string, values map[string]json.RawMessage) error
	// Subscribe registers fn for every change, including the caller's own.
	// fn runs on a store goroutine.
	Subscribe(fn func(Change)) (cancel func())
	Close() error
}

type hub struct {
	mu   sync.Mutex
	subs map[int]func(Change)
	next int
}

func (h *hub) subscribe(fn func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(Change))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(c Change) {
	if len(c.Keys) == 0 {
		return
	}
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}

func (h *hub) reset() {
	h.mu.Lock()
	h.subs = nil
	h.mu.Unlock()
}

// apply writes values into current and returns the deltas of keys whose
// value actually changed.
func apply(current map[string]json.RawMessage, values map[string]json.RawMessage) map[string]Delta {
	deltas := make(map[string]Delta)
	for key, next := range values {
		prev, had := current[key]
		if next == nil {
			if had {
				deltas[key] = Delta{Old: clone(prev)}
				delete(current, key)
			}
			continue
		}
		if had && equalJSON(prev, next) {
			continue
		}
		deltas[key] = Delta{Old: clone(prev), New: clone(next)}
		current[key] = clone(next)
	}
	return deltas
}

// diff compares two full snapshots.
func diff(prev, next map[string]json.RawMessage) map[string]Delta {
	deltas := make(map[string]Delta)
	for key, value := range next {
		old, had := prev[key]
		if had && equalJSON(old, value) {
			continue
		}
		deltas[key] = Delta{Old: clone(old), New: clone(value)}
	}
	for key, old := range prev {
		if _, ok := next[key]; !ok {
			deltas[key] = Delta{Old: clone(old)}
		}
	}
	return deltas
}

func equalJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func clone(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}

func cloneValues(values map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		out[k] = clone(v)
	}
	return out
}

func pick(values map[string]json.RawMessage, keys []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if v, ok := values[key]; ok {
			out[key] = clone(v)
		}
	}
	return out
}

func discardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
