package dom

import "golang.org/x/net/html/atom"

// Event is a synthetic UI event dispatched through the document.
type Event struct {
	Type          string
	Target        *Element
	CurrentTarget *Element

	Key         string
	ShiftKey    bool
	IsComposing bool

	defaultPrevented bool
	stopped          bool
}

func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

func (ev *Event) StopPropagation() { ev.stopped = true }

func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// DispatchResult reports what a dispatch did beyond running listeners.
type DispatchResult struct {
	// Activated is the link whose default action ran, if any.
	Activated *Element
	// Owned is true when an interceptor claimed the event.
	Owned bool
}

// AddEventListener registers fn for events of type typ targeted at e or its
// descendants.
func (e *Element) AddEventListener(typ string, fn func(*Event)) {
	if e.listeners == nil {
		e.listeners = make(map[string][]func(*Event))
	}
	e.listeners[typ] = append(e.listeners[typ], fn)
}

// Intercept registers an ownership check run before every dispatch. When fn
// returns a non-nil owner for the event target, the event's default action
// is prevented and propagation stops at the owner.
func (d *Document) Intercept(fn func(target *Element) (owner *Element)) {
	d.interceptors = append(d.interceptors, fn)
}

// Dispatch delivers ev from its target up through its ancestors.
func (d *Document) Dispatch(ev *Event) DispatchResult {
	var res DispatchResult
	if ev == nil || ev.Target == nil || ev.Target.doc != d {
		return res
	}

	var owner *Element
	for _, fn := range d.interceptors {
		if owner = fn(ev.Target); owner != nil {
			break
		}
	}
	if owner != nil {
		res.Owned = true
		ev.PreventDefault()
	}

	for el := ev.Target; el != nil; el = el.Parent() {
		ev.CurrentTarget = el
		handlers := append([]func(*Event){}, el.listeners[ev.Type]...)
		for _, fn := range handlers {
			fn(ev)
		}
		if ev.stopped || el == owner {
			break
		}
	}
	ev.CurrentTarget = nil

	if ev.Type == "click" && !ev.defaultPrevented {
		if link := ev.Target.closestLink(); link != nil {
			res.Activated = link
			if d.onActivate != nil {
				d.onActivate(link)
			}
		}
	}
	return res
}

func (e *Element) closestLink() *Element {
	for el := e; el != nil; el = el.Parent() {
		if el.node.DataAtom != atom.A {
			continue
		}
		if _, ok := el.Attr("href"); ok {
			return el
		}
	}
	return nil
}

// Click dispatches a click targeted at e.
func (e *Element) Click() DispatchResult {
	return e.doc.Dispatch(&Event{Type: "click", Target: e})
}

// KeyDown dispatches a keydown targeted at e.
func (e *Element) KeyDown(key string, shift, composing bool) DispatchResult {
	return e.doc.Dispatch(&Event{Type: "keydown", Target: e, Key: key, ShiftKey: shift, IsComposing: composing})
}
