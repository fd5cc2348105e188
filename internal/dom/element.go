package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a stable handle for an element node. The same node always
// yields the same *Element while it belongs to its document.
type Element struct {
	doc       *Document
	node      *html.Node
	listeners map[string][]func(*Event)

	value    string
	hasValue bool
}

func (e *Element) Document() *Document { return e.doc }

// Node exposes the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) TagName() string { return e.node.Data }

func (e *Element) Attr(name string) (string, bool) {
	return attr(e.node, name)
}

// AttrOr returns the attribute value or def when it is absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

func (e *Element) Classes() []string {
	return strings.Fields(e.AttrOr("class", ""))
}

func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.Classes(), name), " "))
}

func (e *Element) RemoveClass(name string) {
	if !e.HasClass(name) {
		return
	}
	kept := make([]string, 0, len(e.Classes()))
	for _, c := range e.Classes() {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds name when on is true and removes it otherwise.
func (e *Element) ToggleClass(name string, on bool) {
	if on {
		e.AddClass(name)
		return
	}
	e.RemoveClass(name)
}

// Parent returns the nearest element ancestor.
func (e *Element) Parent() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.wrap(p)
		}
	}
	return nil
}

func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Matches reports whether the element itself matches sel.
func (e *Element) Matches(sel Selector) bool {
	return sel.match(e.node)
}

// Closest returns the element or its nearest ancestor matching sel.
func (e *Element) Closest(sel Selector) *Element {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// QuerySelector returns the first descendant matching sel.
func (e *Element) QuerySelector(sel Selector) *Element {
	return e.doc.wrap(sel.query(e.node))
}

// QuerySelectorAll returns every descendant matching sel.
func (e *Element) QuerySelectorAll(sel Selector) []*Element {
	return e.doc.wrapAll(sel.queryAll(e.node))
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// IsConnected reports whether the element is attached to its document.
func (e *Element) IsConnected() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	if child == nil || child.doc != e.doc {
		return
	}
	if old := child.node.Parent; old != nil {
		old.RemoveChild(child.node)
		if p := e.doc.wrap(old); p != nil {
			e.doc.record(MutationRecord{Target: p, RemovedNodes: []*html.Node{child.node}})
		}
	}
	e.node.AppendChild(child.node)
	e.doc.record(MutationRecord{Target: e, AddedNodes: []*html.Node{child.node}})
}

// TextContent concatenates every descendant text node.
func (e *Element) TextContent() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

// SetTextContent replaces the children of e with a single text node.
func (e *Element) SetTextContent(text string) {
	if e.onlyText() && e.TextContent() == text {
		return
	}

	var removed []*html.Node
	for c := e.node.FirstChild; c != nil; {
		following := c.NextSibling
		e.node.RemoveChild(c)
		e.doc.forget(c)
		removed = append(removed, c)
		c = following
	}

	var added []*html.Node
	if text != "" {
		tn := &html.Node{Type: html.TextNode, Data: text}
		e.node.AppendChild(tn)
		added = append(added, tn)
	}

	if len(removed) > 0 || len(added) > 0 {
		e.doc.record(MutationRecord{Target: e, AddedNodes: added, RemovedNodes: removed})
	}
}

func (e *Element) onlyText() bool {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			return false
		}
	}
	return true
}

// Value returns the current value of a form control. A textarea whose value
// was never set reports its text content.
func (e *Element) Value() string {
	if e.hasValue {
		return e.value
	}
	if e.node.DataAtom == atom.Textarea {
		return e.TextContent()
	}
	return e.AttrOr("value", "")
}

// SetValue sets the live value of a form control. The value is not
// reflected into the markup.
func (e *Element) SetValue(v string) {
	e.value = v
	e.hasValue = true
}

// Focus makes e the document's active element.
func (e *Element) Focus() {
	e.doc.active = e
}

// Style returns an inline style property.
func (e *Element) Style(prop string) string {
	return parseStyle(e.AttrOr("style", "")).get(prop)
}

// SetStyle sets an inline style property, keeping the others.
func (e *Element) SetStyle(prop, value string) {
	decls := parseStyle(e.AttrOr("style", ""))
	decls = decls.set(prop, value)
	e.SetAttr("style", decls.String())
}
