// Package dom is a small live document model over golang.org/x/net/html.
// It provides stable element handles, selector queries, inline style and
// geometry access, batched mutation observation and event dispatch with
// ownership interception.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Poster schedules a function to run later on the owner's event queue.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

func (f PosterFunc) Post(fn func()) { f(fn) }

// Immediate runs posted functions synchronously.
var Immediate Poster = PosterFunc(func(fn func()) { fn() })

type Options struct {
	// Poster delivers batched mutation records. Defaults to Immediate.
	Poster Poster
	// OnActivate is called when a click reaches a link without its default
	// action being prevented.
	OnActivate func(*Element)
}

type Document struct {
	root  *html.Node
	elems map[*html.Node]*Element

	poster      Poster
	observers   map[int]func([]MutationRecord)
	nextObs     int
	pending     []MutationRecord
	flushQueued bool

	interceptors []func(*Element) *Element
	onActivate   func(*Element)
	active       *Element
}

// Parse reads a full HTML document from r.
func Parse(r io.Reader, opts Options) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return newDocument(root, opts), nil
}

// ParseString is Parse over an in-memory string.
func ParseString(s string, opts Options) (*Document, error) {
	return Parse(strings.NewReader(s), opts)
}

func newDocument(root *html.Node, opts Options) *Document {
	d := &Document{
		root:       root,
		elems:      make(map[*html.Node]*Element),
		poster:     opts.Poster,
		observers:  make(map[int]func([]MutationRecord)),
		onActivate: opts.OnActivate,
	}
	if d.poster == nil {
		d.poster = Immediate
	}
	return d
}

// SetPoster replaces the poster used to deliver mutation records.
func (d *Document) SetPoster(p Poster) {
	if p == nil {
		p = Immediate
	}
	d.poster = p
}

// OnActivate registers the handler for default link activation.
func (d *Document) OnActivate(fn func(*Element)) {
	d.onActivate = fn
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elems[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elems[n] = el
	return el
}

func (d *Document) forget(n *html.Node) {
	walk(n, func(c *html.Node) {
		if el, ok := d.elems[c]; ok {
			if d.active == el {
				d.active = nil
			}
			delete(d.elems, c)
		}
	})
}

// CreateElement returns a detached element with the given tag name.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n)
}

func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

func (d *Document) Head() *Element {
	return d.firstByAtom(atom.Head)
}

func (d *Document) Body() *Element {
	return d.firstByAtom(atom.Body)
}

func (d *Document) firstByAtom(a atom.Atom) *Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.DataAtom == a {
			found = n
		}
	})
	return d.wrap(found)
}

// GetElementByID returns the first element whose id attribute equals id.
func (d *Document) GetElementByID(id string) *Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) {
		if found != nil || n.Type != html.ElementNode {
			return
		}
		if v, ok := attr(n, "id"); ok && v == id {
			found = n
		}
	})
	return d.wrap(found)
}

// QuerySelectorAll returns every element in document order matching sel.
func (d *Document) QuerySelectorAll(sel Selector) []*Element {
	return d.wrapAll(sel.queryAll(d.root))
}

func (d *Document) QuerySelector(sel Selector) *Element {
	return d.wrap(sel.query(d.root))
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := d.wrap(n); el != nil {
			out = append(out, el)
		}
	}
	return out
}

// AppendHTML parses a fragment in the context of parent and appends the
// resulting nodes to it.
func (d *Document) AppendHTML(parent *Element, r io.Reader) error {
	if parent == nil {
		return fmt.Errorf("append fragment: nil parent")
	}
	nodes, err := html.ParseFragment(r, parent.node)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		parent.node.AppendChild(n)
	}
	d.record(MutationRecord{Target: parent, AddedNodes: nodes})
	return nil
}

// ReplaceBody swaps the children of the body for the body of the document
// read from r.
func (d *Document) ReplaceBody(r io.Reader) error {
	next, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	body := d.Body()
	if body == nil {
		return fmt.Errorf("replace body: document has no body")
	}

	var nextBody *html.Node
	walk(next, func(n *html.Node) {
		if nextBody == nil && n.Type == html.ElementNode && n.DataAtom == atom.Body {
			nextBody = n
		}
	})

	var removed []*html.Node
	for c := body.node.FirstChild; c != nil; {
		following := c.NextSibling
		body.node.RemoveChild(c)
		d.forget(c)
		removed = append(removed, c)
		c = following
	}

	var added []*html.Node
	if nextBody != nil {
		for c := nextBody.FirstChild; c != nil; {
			following := c.NextSibling
			nextBody.RemoveChild(c)
			body.node.AppendChild(c)
			added = append(added, c)
			c = following
		}
	}

	if len(removed) > 0 || len(added) > 0 {
		d.record(MutationRecord{Target: body, AddedNodes: added, RemovedNodes: removed})
	}
	return nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// ActiveElement returns the focused element, if any.
func (d *Document) ActiveElement() *Element {
	if d.active != nil && !d.active.IsConnected() {
		return nil
	}
	return d.active
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
