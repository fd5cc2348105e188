// Package statetest builds throwaway states for command tests.
package statetest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/Paintersrp/listingnotes/internal/config"
	"github.com/Paintersrp/listingnotes/internal/state"
)

// New returns a state rooted in a temp home whose config points at dsn.
// An empty dsn leaves the config uninitialised.
func New(t *testing.T, dsn string) *state.State {
	t.Helper()
	home := t.TempDir()
	path := config.GetConfigPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create config directory: %v", err)
	}
	body := ""
	if dsn != "" {
		body = "store:\n  dsn: " + dsn + "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	s, err := state.NewStateAt(home, io.Discard)
	if err != nil {
		t.Fatalf("NewStateAt returned error: %v", err)
	}
	t.Cleanup(func() {
		viper.Set(state.StoreOverrideKey, "")
		viper.Set(state.LogLevelOverrideKey, "")
		_ = s.Close()
	})
	return s
}

// FileDSN returns a file store DSN inside a fresh temp dir.
func FileDSN(t *testing.T) string {
	t.Helper()
	return "file://" + filepath.ToSlash(filepath.Join(t.TempDir(), "store.json"))
}
