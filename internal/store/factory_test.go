package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenBuiltinSchemes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		dsn  string
		want string
	}{
		{"memory://", "*store.Memory"},
		{filepath.Join(dir, "plain.json"), "*store.File"},
		{"file://" + filepath.Join(dir, "url.json"), "*store.File"},
		{"sqlite://" + filepath.Join(dir, "store.db"), "*store.SQLite"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			s, err := Open(ctx, tt.dsn, Options{})
			if err != nil {
				t.Fatalf("open %q failed: %v", tt.dsn, err)
			}
			defer s.Close()

			switch s.(type) {
			case *Memory:
				if tt.want != "*store.Memory" {
					t.Fatalf("unexpected backend for %q", tt.dsn)
				}
			case *File:
				if tt.want != "*store.File" {
					t.Fatalf("unexpected backend for %q", tt.dsn)
				}
			case *SQLite:
				if tt.want != "*store.SQLite" {
					t.Fatalf("unexpected backend for %q", tt.dsn)
				}
			default:
				t.Fatalf("unexpected backend %T", s)
			}
		})
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	if _, err := Open(context.Background(), "redis://localhost", Options{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := Open(context.Background(), "  ", Options{}); !errors.Is(err, ErrInvalidDSN) {
		t.Fatalf("expected ErrInvalidDSN, got %v", err)
	}
}

func TestRegisterFactoryTakesPrecedence(t *testing.T) {
	scheme := "storetestcustom"
	mem := NewMemory()
	RegisterFactory(scheme, func(ctx context.Context, dsn string, opts Options) (Store, error) {
		return mem, nil
	})

	s, err := Open(context.Background(), scheme+"://example", Options{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if s != Store(mem) {
		t.Fatalf("expected registered factory to be used")
	}
}
