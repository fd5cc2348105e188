package fzf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/Paintersrp/listingnotes/internal/cache"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/render"
)

// ErrNoSelection is returned when the finder is dismissed.
var ErrNoSelection = errors.New("no listing selected")

type findFunc func(slice any, itemFunc func(int) string, opts ...fuzzyfinder.Option) (int, error)

const previewCacheSize = 64

type previewKey struct {
	index, width int
}

// FuzzyFinder picks one annotated listing.
type FuzzyFinder struct {
	Header  string
	entries []mirror.Entry
	find    findFunc

	mu       sync.Mutex
	previews *cache.LRUCache[previewKey, string]
}

func NewFuzzyFinder(entries []mirror.Entry, header string) *FuzzyFinder {
	return &FuzzyFinder{
		Header:   header,
		entries:  entries,
		find:     fuzzyfinder.Find,
		previews: cache.NewLRUCache[previewKey, string](previewCacheSize),
	}
}

func (f *FuzzyFinder) Run() (mirror.Entry, error) {
	return f.RunWithQuery("")
}

func (f *FuzzyFinder) RunWithQuery(query string) (mirror.Entry, error) {
	if len(f.entries) == 0 {
		return mirror.Entry{}, fmt.Errorf("no annotated listings")
	}

	options := []fuzzyfinder.Option{
		fuzzyfinder.WithPreviewWindow(f.renderPreview),
	}
	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}
	if f.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(f.Header))
	}

	idx, err := f.find(f.entries, f.label, options...)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return mirror.Entry{}, ErrNoSelection
		}
		return mirror.Entry{}, fmt.Errorf("error selecting listing: %w", err)
	}
	if idx < 0 || idx >= len(f.entries) {
		return mirror.Entry{}, ErrNoSelection
	}
	return f.entries[idx], nil
}

func (f *FuzzyFinder) label(i int) string {
	e := f.entries[i]
	first := render.Summary(e.Note)
	if e.Messaged {
		return fmt.Sprintf("%s [messaged] %s", e.ID, first)
	}
	return fmt.Sprintf("%s %s", e.ID, first)
}

func (f *FuzzyFinder) renderPreview(i, w, h int) string {
	if i < 0 || i >= len(f.entries) {
		return ""
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := previewKey{index: i, width: w}
	if out, ok := f.previews.Get(key); ok {
		return out
	}
	out, err := render.Entry(f.entries[i], w)
	if err != nil {
		return "Error rendering note"
	}
	f.previews.Put(key, out)
	return out
}
