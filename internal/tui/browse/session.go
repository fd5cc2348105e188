package browse

import (
	"sync"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/engine"
	"github.com/Paintersrp/listingnotes/internal/scan"
	"github.com/Paintersrp/listingnotes/internal/widget"
)

// Snapshot is the widget state published after the loop goes idle.
type Snapshot struct {
	Views     []widget.View
	Stats     scan.Stats
	Activated string
}

// Session bridges a terminal UI and an engine. Actions are posted to the
// engine's loop; the UI only ever reads snapshots.
type Session struct {
	engine *engine.Engine

	mu        sync.Mutex
	latest    Snapshot
	activated string
	updates   chan struct{}
}

func NewSession(e *engine.Engine) *Session {
	s := &Session{
		engine:  e,
		updates: make(chan struct{}, 1),
	}
	e.Loop().OnIdle(s.publish)
	e.Loop().Post(func() { e.Document().OnActivate(s.activate) })
	return s
}

func (s *Session) activate(el *dom.Element) {
	s.mu.Lock()
	s.activated = el.AttrOr("href", "")
	s.mu.Unlock()
}

func (s *Session) publish() {
	snap := Snapshot{
		Views: s.engine.Views(),
		Stats: s.engine.Stats(),
	}

	s.mu.Lock()
	snap.Activated = s.activated
	s.activated = ""
	s.latest = snap
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Latest returns the most recent snapshot.
func (s *Session) Latest() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Updates signals when a new snapshot is available.
func (s *Session) Updates() <-chan struct{} { return s.updates }

func (s *Session) post(fn func()) { s.engine.Loop().Post(fn) }

func (s *Session) TogglePanel(w *widget.Widget) {
	s.post(func() { w.Element(widget.PartChip).Click() })
}

// Submit types text into the widget's input and presses enter.
func (s *Session) Submit(w *widget.Widget, text string) {
	s.post(func() {
		input := w.Element(widget.PartInput)
		input.SetValue(text)
		input.KeyDown("Enter", false, false)
	})
}

// Draft stores text in the widget's input without saving it.
func (s *Session) Draft(w *widget.Widget, text string) {
	s.post(func() { w.Element(widget.PartInput).SetValue(text) })
}

func (s *Session) Clear(w *widget.Widget) {
	s.post(func() { w.Element(widget.PartClear).Click() })
}

func (s *Session) ToggleMessaged(w *widget.Widget) {
	s.post(func() { w.Element(widget.PartMessaged).Click() })
}

// Follow clicks the card itself, which activates its link.
func (s *Session) Follow(w *widget.Widget) {
	s.post(func() { w.Host().Click() })
}
