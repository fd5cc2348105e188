// Package widget attaches note overlays to listing cards and keeps them in
// sync with the mirror.
package widget

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/listing"
	"github.com/Paintersrp/listingnotes/internal/mirror"
)

// Mirror is the state a widget renders and writes.
type Mirror interface {
	Get(id string) (note string, messaged bool)
	Write(id string, p mirror.Patch)
}

// Classifier decides whether an element is a card worth annotating.
type Classifier interface {
	IsCandidate(el *dom.Element) bool
}

type Options struct {
	Logger *slog.Logger
}

type Controller struct {
	doc        *dom.Document
	mirror     Mirror
	classifier Classifier
	extractor  *listing.Extractor
	logger     *slog.Logger

	// widgets is the attachment record, keyed by element identity. The
	// marker attribute on the host is informational only.
	widgets    map[*dom.Element]*Widget
	containers map[*dom.Element]*Widget
	nodes      map[*html.Node]bool
	order      []*Widget
}

func NewController(doc *dom.Document, m Mirror, c Classifier, e *listing.Extractor, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctrl := &Controller{
		doc:        doc,
		mirror:     m,
		classifier: c,
		extractor:  e,
		logger:     logger,
		widgets:    make(map[*dom.Element]*Widget),
		containers: make(map[*dom.Element]*Widget),
		nodes:      make(map[*html.Node]bool),
	}
	doc.Intercept(ctrl.owner)
	return ctrl
}

// owner returns the widget container target belongs to, if any.
func (c *Controller) owner(target *dom.Element) *dom.Element {
	for el := target; el != nil; el = el.Parent() {
		if _, ok := c.containers[el]; ok {
			return el
		}
	}
	return nil
}

// Owns reports whether n is part of a widget.
func (c *Controller) Owns(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if c.nodes[n] {
			return true
		}
	}
	return false
}

// Attach builds a widget on el when it is an unattached listing card and
// reports whether it did.
func (c *Controller) Attach(el *dom.Element) bool {
	if el == nil {
		return false
	}
	if _, seen := c.widgets[el]; seen {
		return false
	}

	id, ok := c.extractor.ID(el.AttrOr("href", ""))
	if !ok {
		return false
	}
	if !c.classifier.IsCandidate(el) {
		return false
	}

	el.SetAttr(MarkerAttr, "1")
	if dom.ComputedPosition(el) == "static" {
		el.SetStyle("position", "relative")
	}

	w := build(c.doc, el, id)
	note, _ := c.mirror.Get(id)
	w.input.SetValue(note)
	w.bind(c.mirror)

	c.widgets[el] = w
	c.containers[w.container] = w
	c.nodes[w.overlay.Node()] = true
	c.nodes[w.container.Node()] = true
	c.order = append(c.order, w)

	el.AppendChild(w.overlay)
	el.AppendChild(w.container)
	w.render(c.mirror)

	c.logger.Debug("widget attached", "id", id)
	return true
}

// Refresh re-renders every attached widget from the mirror, re-deriving each
// identifier from the host's current link.
func (c *Controller) Refresh() {
	for _, w := range c.order {
		if !w.host.IsConnected() {
			continue
		}
		id, ok := c.extractor.ID(w.host.AttrOr("href", ""))
		if !ok {
			continue
		}
		w.id = id
		w.render(c.mirror)
	}
}

// Prune forgets widgets whose host left the document.
func (c *Controller) Prune() int {
	kept := c.order[:0]
	pruned := 0
	for _, w := range c.order {
		if w.host.IsConnected() {
			kept = append(kept, w)
			continue
		}
		delete(c.widgets, w.host)
		delete(c.containers, w.container)
		delete(c.nodes, w.overlay.Node())
		delete(c.nodes, w.container.Node())
		pruned++
	}
	for i := len(kept); i < len(c.order); i++ {
		c.order[i] = nil
	}
	c.order = kept
	return pruned
}

// Widget returns the widget attached to el.
func (c *Controller) Widget(el *dom.Element) (*Widget, bool) {
	w, ok := c.widgets[el]
	return w, ok
}

// Widgets returns attached widgets in attachment order.
func (c *Controller) Widgets() []*Widget {
	return append([]*Widget(nil), c.order...)
}

// View is a read-only snapshot of one widget.
type View struct {
	ID            string
	Href          string
	Title         string
	Note          string
	Messaged      bool
	PanelOpen     bool
	Input         string
	ChipLabel     string
	MessagedLabel string
	Widget        *Widget
}

func (v View) HasNote() bool { return strings.TrimSpace(v.Note) != "" }

// Views snapshots every connected widget.
func (c *Controller) Views() []View {
	views := make([]View, 0, len(c.order))
	for _, w := range c.order {
		if !w.host.IsConnected() {
			continue
		}
		note, messaged := c.mirror.Get(w.id)
		views = append(views, View{
			ID:            w.id,
			Href:          w.host.AttrOr("href", ""),
			Title:         hostText(w),
			Note:          note,
			Messaged:      messaged,
			PanelOpen:     w.PanelOpen(),
			Input:         w.input.Value(),
			ChipLabel:     w.chip.TextContent(),
			MessagedLabel: w.messaged.TextContent(),
			Widget:        w,
		})
	}
	return views
}

// hostText is the host's text without the widget's own labels.
func hostText(w *Widget) string {
	skip := map[*html.Node]bool{
		w.overlay.Node():   true,
		w.container.Node(): true,
	}
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if skip[n] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(w.host.Node())
	return strings.Join(strings.Fields(b.String()), " ")
}
