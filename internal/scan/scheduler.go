// Package scan coalesces bursts of structural change notifications into at
// most one deferred scan per frame.
package scan

import (
	"log/slog"

	"github.com/Paintersrp/listingnotes/internal/dom"
)

// Frames defers a callback to the next frame boundary.
type Frames interface {
	RequestFrame(fn func())
}

type Stats struct {
	Notifications int
	Absorbed      int
	Scans         int
}

type Options struct {
	Logger *slog.Logger
}

type Scheduler struct {
	frames Frames
	scan   func()
	logger *slog.Logger

	queued bool
	stats  Stats
}

func NewScheduler(frames Frames, scan func(), opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{frames: frames, scan: scan, logger: logger}
}

// Queue schedules a scan for the next frame unless one is already queued.
func (s *Scheduler) Queue() {
	s.stats.Notifications++
	if s.queued {
		s.stats.Absorbed++
		return
	}
	s.queued = true
	s.frames.RequestFrame(s.run)
}

// Observe is a mutation observer callback. Only batches that insert nodes
// queue a scan.
func (s *Scheduler) Observe(records []dom.MutationRecord) {
	if !dom.HasAdditions(records) {
		return
	}
	s.Queue()
}

// Pending reports whether a scan is waiting for its frame.
func (s *Scheduler) Pending() bool { return s.queued }

func (s *Scheduler) Stats() Stats { return s.stats }

func (s *Scheduler) run() {
	s.queued = false
	s.stats.Scans++
	s.logger.Debug("scan", "notifications", s.stats.Notifications, "absorbed", s.stats.Absorbed, "scans", s.stats.Scans)
	s.scan()
}
