package fzf

import (
	"errors"
	"testing"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/Paintersrp/listingnotes/internal/mirror"
)

func TestRunReturnsSelectedEntry(t *testing.T) {
	entries := []mirror.Entry{{ID: "1", Note: "first\nmore"}, {ID: "2", Messaged: true}}
	f := NewFuzzyFinder(entries, "pick")

	var labels []string
	f.find = func(slice any, itemFunc func(int) string, opts ...fuzzyfinder.Option) (int, error) {
		for i := range entries {
			labels = append(labels, itemFunc(i))
		}
		return 1, nil
	}

	got, err := f.Run()
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got.ID != "2" {
		t.Fatalf("expected second entry, got %+v", got)
	}
	if labels[0] != "1 first more" || labels[1] != "2 [messaged] " {
		t.Fatalf("unexpected labels %q", labels)
	}
}

func TestRunAbort(t *testing.T) {
	f := NewFuzzyFinder([]mirror.Entry{{ID: "1"}}, "")
	f.find = func(any, func(int) string, ...fuzzyfinder.Option) (int, error) {
		return -1, fuzzyfinder.ErrAbort
	}
	if _, err := f.Run(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestRunWithoutEntries(t *testing.T) {
	if _, err := NewFuzzyFinder(nil, "").Run(); err == nil {
		t.Fatalf("expected an error without entries")
	}
}

func TestPreviewIsCached(t *testing.T) {
	f := NewFuzzyFinder([]mirror.Entry{{ID: "1", Note: "Lamp"}}, "")

	first := f.renderPreview(0, 40, 10)
	if first == "" {
		t.Fatalf("expected a rendered preview")
	}
	if f.previews.Len() != 1 {
		t.Fatalf("expected the preview to be cached")
	}
	if second := f.renderPreview(0, 40, 10); second != first {
		t.Fatalf("expected the cached preview to be reused")
	}
	f.renderPreview(0, 60, 10)
	if f.previews.Len() != 2 {
		t.Fatalf("expected a new width to render again")
	}
	if f.renderPreview(5, 40, 10) != "" {
		t.Fatalf("expected an empty preview out of range")
	}
}
