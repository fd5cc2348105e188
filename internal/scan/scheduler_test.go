package scan

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/Paintersrp/listingnotes/internal/dom"
)

type fakeFrames struct {
	pending []func()
}

func (f *fakeFrames) RequestFrame(fn func()) { f.pending = append(f.pending, fn) }

func (f *fakeFrames) tick() {
	callbacks := f.pending
	f.pending = nil
	for _, fn := range callbacks {
		fn()
	}
}

func TestBurstIsAbsorbedIntoOneScan(t *testing.T) {
	frames := &fakeFrames{}
	scans := 0
	s := NewScheduler(frames, func() { scans++ }, Options{})

	for i := 0; i < 50; i++ {
		s.Queue()
	}

	if len(frames.pending) != 1 {
		t.Fatalf("expected one frame request, got %d", len(frames.pending))
	}
	if scans != 0 {
		t.Fatalf("expected scan to wait for the frame")
	}

	frames.tick()

	if scans != 1 {
		t.Fatalf("expected exactly one scan, got %d", scans)
	}
	stats := s.Stats()
	if stats.Notifications != 50 || stats.Absorbed != 49 || stats.Scans != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSchedulerReturnsToIdle(t *testing.T) {
	frames := &fakeFrames{}
	scans := 0
	s := NewScheduler(frames, func() { scans++ }, Options{})

	s.Queue()
	frames.tick()
	if s.Pending() {
		t.Fatalf("expected scheduler to be idle after the scan")
	}

	s.Queue()
	if !s.Pending() || len(frames.pending) != 1 {
		t.Fatalf("expected a new notification to schedule again")
	}
	frames.tick()

	if scans != 2 {
		t.Fatalf("expected two scans, got %d", scans)
	}
}

func TestNotificationDuringScanSchedulesNextFrame(t *testing.T) {
	frames := &fakeFrames{}
	var s *Scheduler
	scans := 0
	s = NewScheduler(frames, func() {
		scans++
		if scans == 1 {
			s.Queue()
		}
	}, Options{})

	s.Queue()
	frames.tick()
	if scans != 1 || len(frames.pending) != 1 {
		t.Fatalf("expected a follow-up frame, scans=%d pending=%d", scans, len(frames.pending))
	}
	frames.tick()
	if scans != 2 {
		t.Fatalf("expected follow-up scan, got %d", scans)
	}
}

func TestObserveIgnoresRemovalOnlyBatches(t *testing.T) {
	frames := &fakeFrames{}
	s := NewScheduler(frames, func() {}, Options{})

	s.Observe([]dom.MutationRecord{{RemovedNodes: []*html.Node{{Type: html.TextNode}}}})
	if s.Pending() {
		t.Fatalf("expected removal-only batch to be ignored")
	}

	s.Observe([]dom.MutationRecord{
		{RemovedNodes: []*html.Node{{Type: html.TextNode}}},
		{AddedNodes: []*html.Node{{Type: html.ElementNode, Data: "div"}}},
	})
	if !s.Pending() {
		t.Fatalf("expected insertion to queue a scan")
	}
}
