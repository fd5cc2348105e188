package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func collect(s Store) (<-chan Change, func()) {
	ch := make(chan Change, 16)
	cancel := s.Subscribe(func(c Change) { ch <- c })
	return ch, cancel
}

func waitChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a change")
		return Change{}
	}
}

func expectNoChange(t *testing.T, ch <-chan Change, wait time.Duration) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(wait):
	}
}

func TestApplyReportsOnlyRealChanges(t *testing.T) {
	current := map[string]json.RawMessage{"a": raw(`{"1":"x"}`), "b": raw(`{}`)}

	deltas := apply(current, map[string]json.RawMessage{
		"a": raw(`{ "1" : "x" }`),
		"b": nil,
		"c": raw(`{"2":true}`),
	})

	if _, ok := deltas["a"]; ok {
		t.Fatalf("expected equivalent JSON to be unchanged")
	}
	if d, ok := deltas["b"]; !ok || d.New != nil || string(d.Old) != `{}` {
		t.Fatalf("expected removal delta for b, got %+v", d)
	}
	if d, ok := deltas["c"]; !ok || d.Old != nil || string(d.New) != `{"2":true}` {
		t.Fatalf("expected insert delta for c, got %+v", d)
	}
	if _, ok := current["b"]; ok {
		t.Fatalf("expected b to be removed")
	}
}

func TestMemoryBroadcastsToEverySubscriber(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	first, cancelFirst := collect(m)
	defer cancelFirst()
	second, cancelSecond := collect(m)
	defer cancelSecond()

	if err := m.Set(ctx, "tab-1", map[string]json.RawMessage{"notes": raw(`{"555":"Ping seller"}`)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	for _, ch := range []<-chan Change{first, second} {
		c := waitChange(t, ch)
		if c.Origin != "tab-1" || c.Area != AreaLocal {
			t.Fatalf("unexpected change metadata %+v", c)
		}
		if string(c.Keys["notes"].New) != `{"555":"Ping seller"}` {
			t.Fatalf("unexpected new value %s", c.Keys["notes"].New)
		}
	}

	got, err := m.Get(ctx, "notes", "missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, ok := got["missing"]; ok || len(got) != 1 {
		t.Fatalf("expected only the stored key, got %v", got)
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	_ = m.Close()
	if err := m.Set(context.Background(), "x", map[string]json.RawMessage{"a": raw(`1`)}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
