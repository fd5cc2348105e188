// Package engine wires the document, scheduler, mirror and widget controller
// for one page.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/Paintersrp/listingnotes/internal/classify"
	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/loop"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/scan"
	"github.com/Paintersrp/listingnotes/internal/styles"
	"github.com/Paintersrp/listingnotes/internal/widget"
)

// DefaultAnchorSelector matches links to listing pages.
const DefaultAnchorSelector = `a[href*="/marketplace/item/"]`

type Options struct {
	// Origin resolves relative links. Defaults to listing.DefaultOrigin.
	Origin         string
	AnchorSelector string
	Classifier     widget.Classifier
	Logger         *slog.Logger
}

// Engine must be driven from the goroutine running its loop.
type Engine struct {
	doc    *dom.Document
	loop   *loop.Loop
	mirror *mirror.Mirror
	logger *slog.Logger

	anchors   dom.Selector
	ctrl      *widget.Controller
	scheduler *scan.Scheduler

	started       bool
	stopObserving func()
}

func New(doc *dom.Document, lp *loop.Loop, m *mirror.Mirror, opts Options) (*Engine, error) {
	if doc == nil || lp == nil || m == nil {
		return nil, fmt.Errorf("engine: document, loop and mirror are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	selector := opts.AnchorSelector
	if selector == "" {
		selector = DefaultAnchorSelector
	}
	anchors, err := dom.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("anchor selector: %w", err)
	}

	var classifier widget.Classifier = classify.Default()
	if opts.Classifier != nil {
		classifier = opts.Classifier
	}

	origin := opts.Origin
	if origin == "" {
		origin = listing.DefaultOrigin
	}

	doc.SetPoster(lp)

	e := &Engine{
		doc:     doc,
		loop:    lp,
		mirror:  m,
		logger:  logger,
		anchors: anchors,
	}
	e.ctrl = widget.NewController(doc, m, classifier, listing.NewExtractor(origin), widget.Options{Logger: logger})
	e.scheduler = scan.NewScheduler(lp, e.Scan, scan.Options{Logger: logger})
	return e, nil
}

// Start loads the mirror and subscribes to store changes, then posts the
// bootstrap to the loop: styles, a first scan, and mutation observation.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return nil
	}
	if err := e.mirror.Init(ctx); err != nil {
		return err
	}
	e.started = true

	e.mirror.OnChange(e.ctrl.Refresh)
	e.mirror.Watch()

	e.loop.Post(func() {
		styles.Ensure(e.doc)
		e.scheduler.Queue()
		e.stopObserving = e.doc.Observe(e.observe)
	})
	return nil
}

// observe forwards insertions under the body to the scheduler, leaving out
// nodes the widgets themselves added.
func (e *Engine) observe(records []dom.MutationRecord) {
	body := e.doc.Body()
	if body == nil {
		return
	}
	var relevant []dom.MutationRecord
	for _, rec := range records {
		if rec.Target == nil || !body.Contains(rec.Target) {
			continue
		}
		var added []*html.Node
		for _, n := range rec.AddedNodes {
			if !e.ctrl.Owns(n) {
				added = append(added, n)
			}
		}
		if len(added) > 0 {
			relevant = append(relevant, dom.MutationRecord{Target: rec.Target, AddedNodes: added, RemovedNodes: rec.RemovedNodes})
		}
	}
	e.scheduler.Observe(relevant)
}

// Scan attaches widgets to every unattached card in the document.
func (e *Engine) Scan() {
	pruned := e.ctrl.Prune()
	attached := 0
	for _, el := range e.doc.QuerySelectorAll(e.anchors) {
		if e.ctrl.Attach(el) {
			attached++
		}
	}
	e.logger.Debug("scan complete", "attached", attached, "pruned", pruned, "widgets", len(e.ctrl.Widgets()))
}

// Stop ends mutation observation. The mirror is left to its owner.
func (e *Engine) Stop() {
	if e.stopObserving != nil {
		e.stopObserving()
		e.stopObserving = nil
	}
}

func (e *Engine) Document() *dom.Document { return e.doc }

func (e *Engine) Loop() *loop.Loop { return e.loop }

func (e *Engine) Mirror() *mirror.Mirror { return e.mirror }

func (e *Engine) Controller() *widget.Controller { return e.ctrl }

func (e *Engine) Stats() scan.Stats { return e.scheduler.Stats() }

func (e *Engine) Views() []widget.View { return e.ctrl.Views() }
