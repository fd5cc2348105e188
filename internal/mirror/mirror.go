// Package mirror holds the in-memory copy of the notes and messaged
// mappings, writes them through to the store and replaces them when another
// instance changes the store.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Paintersrp/listingnotes/internal/store"
)

// Storage keys of the two mappings.
const (
	NotesKey    = "fbMarketplaceNotesV1"
	MessagedKey = "fbMarketplaceMessagedV1"
)

// Patch is a partial write for one identifier. Nil fields are left alone.
type Patch struct {
	Note     *string
	Messaged *bool
}

func SetNote(note string) Patch { return Patch{Note: &note} }

func SetMessaged(on bool) Patch { return Patch{Messaged: &on} }

// Poster runs functions on the goroutine that owns the mirror.
type Poster interface {
	Post(fn func())
}

type immediate struct{}

func (immediate) Post(fn func()) { fn() }

type Options struct {
	// Origin identifies this instance in store changes. Defaults to a new
	// random UUID.
	Origin string
	// Poster delivers store changes. Defaults to running them inline.
	Poster Poster
	Logger *slog.Logger
	Retry  Retry
	// OnPersistError is called from the persist worker when a write could
	// not be stored after retrying.
	OnPersistError func(keys []string, err error)
}

// Entry is one identifier with a note or a messaged flag.
type Entry struct {
	ID       string
	Note     string
	Messaged bool
}

// Mirror is not safe for concurrent use. Every method except Flush and
// Close must be called from the goroutine its Poster runs on.
type Mirror struct {
	store     store.Store
	origin    string
	poster    Poster
	logger    *slog.Logger
	validator *validator
	persister *persister

	notes     map[string]string
	messaged  map[string]bool
	renderers []func()

	cancelWatch func()
}

func New(st store.Store, opts Options) (*Mirror, error) {
	if st == nil {
		return nil, fmt.Errorf("mirror: nil store")
	}
	origin := strings.TrimSpace(opts.Origin)
	if origin == "" {
		origin = uuid.NewString()
	}
	poster := opts.Poster
	if poster == nil {
		poster = immediate{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	m := &Mirror{
		store:     st,
		origin:    origin,
		poster:    poster,
		logger:    logger,
		validator: v,
		notes:     make(map[string]string),
		messaged:  make(map[string]bool),
	}
	m.persister = newPersister(st, origin, opts.Retry, logger, opts.OnPersistError)
	return m, nil
}

func (m *Mirror) Origin() string { return m.origin }

// Init seeds both mappings from the store.
func (m *Mirror) Init(ctx context.Context) error {
	values, err := m.store.Get(ctx, NotesKey, MessagedKey)
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}
	m.notes = m.validator.notes(values[NotesKey], m.logger)
	m.messaged = m.validator.messaged(values[MessagedKey], m.logger)
	m.logger.Debug("mirror initialized", "notes", len(m.notes), "messaged", len(m.messaged))
	return nil
}

// Get returns the note and messaged flag for id.
func (m *Mirror) Get(id string) (note string, messaged bool) {
	return m.notes[id], m.messaged[id]
}

// Write applies p to id. The mirror is updated and renderers run before
// Write returns; the affected mappings are persisted in the background.
// A note that is empty after trimming removes the record, as does a false
// messaged flag.
func (m *Mirror) Write(id string, p Patch) {
	values := make(map[string]json.RawMessage, 2)

	if p.Note != nil {
		if strings.TrimSpace(*p.Note) == "" {
			delete(m.notes, id)
		} else {
			m.notes[id] = *p.Note
		}
		values[NotesKey] = encode(m.notes)
	}

	if p.Messaged != nil {
		if *p.Messaged {
			m.messaged[id] = true
		} else {
			delete(m.messaged, id)
		}
		values[MessagedKey] = encode(m.messaged)
	}

	if len(values) == 0 {
		return
	}
	m.persister.enqueue(values)
	m.render()
}

func encode[V any](mapping map[string]V) json.RawMessage {
	data, err := json.Marshal(mapping)
	if err != nil {
		// string and bool maps always marshal
		panic(err)
	}
	return data
}

// OnExternalChange replaces the mappings named in c wholesale. Changes
// this mirror wrote itself, or changes to another area, are ignored.
func (m *Mirror) OnExternalChange(c store.Change) {
	if c.Area != store.AreaLocal || c.Origin == m.origin {
		return
	}

	changed := false
	if d, ok := c.Keys[NotesKey]; ok {
		m.notes = m.validator.notes(d.New, m.logger)
		changed = true
	}
	if d, ok := c.Keys[MessagedKey]; ok {
		m.messaged = m.validator.messaged(d.New, m.logger)
		changed = true
	}
	if !changed {
		return
	}

	m.logger.Debug("mirror replaced", "origin", c.Origin, "notes", len(m.notes), "messaged", len(m.messaged))
	m.render()
}

// OnChange registers fn to run after every mirror change.
func (m *Mirror) OnChange(fn func()) {
	m.renderers = append(m.renderers, fn)
}

func (m *Mirror) render() {
	for _, fn := range m.renderers {
		fn()
	}
}

// Watch subscribes to store changes, delivering them through the Poster.
func (m *Mirror) Watch() {
	if m.cancelWatch != nil {
		return
	}
	m.cancelWatch = m.store.Subscribe(func(c store.Change) {
		m.poster.Post(func() { m.OnExternalChange(c) })
	})
}

// Flush waits until every queued persist has finished.
func (m *Mirror) Flush(ctx context.Context) error {
	return m.persister.flush(ctx)
}

// Close stops watching and waits for queued persists.
func (m *Mirror) Close() error {
	if m.cancelWatch != nil {
		m.cancelWatch()
		m.cancelWatch = nil
	}
	m.persister.close()
	return nil
}

// Notes returns a copy of the notes mapping.
func (m *Mirror) Notes() map[string]string {
	out := make(map[string]string, len(m.notes))
	for k, v := range m.notes {
		out[k] = v
	}
	return out
}

// Messaged returns a copy of the messaged mapping.
func (m *Mirror) Messaged() map[string]bool {
	out := make(map[string]bool, len(m.messaged))
	for k, v := range m.messaged {
		out[k] = v
	}
	return out
}

// Entries lists every identifier with a note or flag, ordered numerically.
func (m *Mirror) Entries() []Entry {
	byID := make(map[string]*Entry)
	for id, note := range m.notes {
		byID[id] = &Entry{ID: id, Note: note}
	}
	for id := range m.messaged {
		if e, ok := byID[id]; ok {
			e.Messaged = true
			continue
		}
		byID[id] = &Entry{ID: id, Messaged: true}
	}

	out := make([]Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return out
}
