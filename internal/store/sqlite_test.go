package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteDetectsOtherConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")
	opts := Options{PollInterval: 10 * time.Millisecond}

	writer, err := OpenSQLite(ctx, path, opts)
	if err != nil {
		t.Fatalf("open writer failed: %v", err)
	}
	defer writer.Close()

	reader, err := OpenSQLite(ctx, path, opts)
	if err != nil {
		t.Fatalf("open reader failed: %v", err)
	}
	defer reader.Close()

	changes, cancel := collect(reader)
	defer cancel()

	if err := writer.Set(ctx, "w", map[string]json.RawMessage{"notes": raw(`{"1":"x"}`)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	c := waitChange(t, changes)
	if c.Origin != "w" || string(c.Keys["notes"].New) != `{"1":"x"}` {
		t.Fatalf("unexpected change %+v", c)
	}

	if err := writer.Set(ctx, "w", map[string]json.RawMessage{"notes": nil}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	c = waitChange(t, changes)
	if d := c.Keys["notes"]; d.New != nil {
		t.Fatalf("expected removal, got %+v", d)
	}
}

func TestSQLiteOwnWritesAreNotRepublished(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "store.db"), Options{PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer s.Close()

	changes, cancel := collect(s)
	defer cancel()

	if err := s.Set(ctx, "me", map[string]json.RawMessage{"messaged": raw(`{"2":true}`)}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	waitChange(t, changes)
	expectNoChange(t, changes, 100*time.Millisecond)

	got, err := s.Get(ctx, "messaged")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got["messaged"]) != `{"2":true}` {
		t.Fatalf("unexpected value %s", got["messaged"])
	}
}
