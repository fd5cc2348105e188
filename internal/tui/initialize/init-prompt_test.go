package initialize

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Paintersrp/listingnotes/internal/config"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Dir(config.GetConfigPath(home)), 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(config.GetConfigPath(home), nil, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := config.Load(home)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return cfg
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestSubmitWithDefaults(t *testing.T) {
	cfg := loadConfig(t)
	var m tea.Model = InitialPrompt(cfg, "sqlite")

	m = press(m, "tab", "tab", "tab", "enter")
	if !m.(InitPromptModel).Saved() {
		t.Fatalf("expected the form to be saved, err: %v", m.(InitPromptModel).err)
	}
	if want := DefaultDSN("sqlite", cfg.Home()); cfg.Store.DSN != want {
		t.Fatalf("expected dsn %q, got %q", want, cfg.Store.DSN)
	}

	reloaded, err := config.Load(cfg.Home())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if reloaded.Store.DSN != cfg.Store.DSN {
		t.Fatalf("expected saved dsn %q, got %q", cfg.Store.DSN, reloaded.Store.DSN)
	}
}

func TestSubmitTypedValues(t *testing.T) {
	cfg := loadConfig(t)
	var m tea.Model = InitialPrompt(cfg, "file")

	m = press(m, "memory://", "tab", "https://example.com/", "tab", "debug", "tab", "enter")
	if !m.(InitPromptModel).Saved() {
		t.Fatalf("expected the form to be saved, err: %v", m.(InitPromptModel).err)
	}
	if cfg.Store.DSN != "memory://" {
		t.Fatalf("expected typed dsn, got %q", cfg.Store.DSN)
	}
	if cfg.Engine.BaseOrigin != "https://example.com" {
		t.Fatalf("expected trimmed origin, got %q", cfg.Engine.BaseOrigin)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Log.Level)
	}
}

func TestSubmitRejectsBadLevel(t *testing.T) {
	cfg := loadConfig(t)
	var m tea.Model = InitialPrompt(cfg, "file")

	m = press(m, "tab", "tab", "loud", "tab", "enter")
	got := m.(InitPromptModel)
	if got.Saved() || got.err == nil {
		t.Fatalf("expected an invalid level to block saving")
	}
	if cfg.Store.DSN != "" {
		t.Fatalf("expected the store to stay unset, got %q", cfg.Store.DSN)
	}
}

func TestDefaultDSN(t *testing.T) {
	if got := DefaultDSN("memory", "/home/x"); got != "memory://" {
		t.Fatalf("unexpected memory dsn %q", got)
	}
	if got := DefaultDSN("file", "/home/x"); got != config.DefaultStoreDSN("/home/x") {
		t.Fatalf("unexpected file dsn %q", got)
	}
}
