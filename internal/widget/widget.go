package widget

import (
	"strings"

	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/mirror"
)

// Class names and labels shared with the injected styles.
const (
	MarkerAttr = "data-fm-notes-attached"

	ClassHostMessaged = "fm-messaged-listing"
	ClassOverlay      = "fm-messaged-overlay"
	ClassContainer    = "fm-notes-container"
	ClassChip         = "fm-notes-chip"
	ClassPreview      = "fm-notes-preview"
	ClassPanel        = "fm-notes-panel"
	ClassInput        = "fm-notes-input"
	ClassActions      = "fm-notes-actions"
	ClassSave         = "fm-notes-save"
	ClassClear        = "fm-notes-clear"
	ClassMessaged     = "fm-notes-messaged"

	ClassActive  = "is-active"
	ClassOpen    = "is-open"
	ClassHasNote = "has-note"

	LabelAddNote     = "+ Note"
	LabelEditNote    = "Edit Note"
	LabelMark        = "Mark Messaged"
	LabelUnmark      = "Unmark Messaged"
	InputPlaceholder = "Add a quick private note"
)

// Part names an element of a widget.
type Part int

const (
	PartHost Part = iota
	PartOverlay
	PartContainer
	PartChip
	PartPreview
	PartPanel
	PartInput
	PartSave
	PartClear
	PartMessaged
)

// Widget is the overlay attached to one listing card.
type Widget struct {
	id   string
	host *dom.Element

	overlay   *dom.Element
	container *dom.Element
	chip      *dom.Element
	preview   *dom.Element
	panel     *dom.Element
	input     *dom.Element
	actions   *dom.Element
	save      *dom.Element
	clear     *dom.Element
	messaged  *dom.Element
}

func (w *Widget) ID() string { return w.id }

func (w *Widget) Host() *dom.Element { return w.host }

func (w *Widget) Element(p Part) *dom.Element {
	switch p {
	case PartHost:
		return w.host
	case PartOverlay:
		return w.overlay
	case PartContainer:
		return w.container
	case PartChip:
		return w.chip
	case PartPreview:
		return w.preview
	case PartPanel:
		return w.panel
	case PartInput:
		return w.input
	case PartSave:
		return w.save
	case PartClear:
		return w.clear
	case PartMessaged:
		return w.messaged
	}
	return nil
}

func (w *Widget) PanelOpen() bool { return w.panel.HasClass(ClassOpen) }

func build(doc *dom.Document, host *dom.Element, id string) *Widget {
	w := &Widget{id: id, host: host}

	w.overlay = div(doc, ClassOverlay)
	w.container = div(doc, ClassContainer)
	w.chip = button(doc, ClassChip, "")
	w.preview = div(doc, ClassPreview)
	w.panel = div(doc, ClassPanel)

	w.input = doc.CreateElement("textarea")
	w.input.SetAttr("class", ClassInput)
	w.input.SetAttr("placeholder", InputPlaceholder)

	w.actions = div(doc, ClassActions)
	w.save = button(doc, ClassSave, "Save")
	w.clear = button(doc, ClassClear, "Clear")
	w.messaged = button(doc, ClassMessaged, "")

	w.actions.AppendChild(w.messaged)
	w.actions.AppendChild(w.save)
	w.actions.AppendChild(w.clear)
	w.panel.AppendChild(w.input)
	w.panel.AppendChild(w.actions)
	w.container.AppendChild(w.chip)
	w.container.AppendChild(w.preview)
	w.container.AppendChild(w.panel)

	return w
}

func div(doc *dom.Document, class string) *dom.Element {
	el := doc.CreateElement("div")
	el.SetAttr("class", class)
	return el
}

func button(doc *dom.Document, class, label string) *dom.Element {
	el := doc.CreateElement("button")
	el.SetAttr("type", "button")
	el.SetAttr("class", class)
	if label != "" {
		el.SetTextContent(label)
	}
	return el
}

func (w *Widget) renderNote(note string) {
	if strings.TrimSpace(note) != "" {
		w.chip.SetTextContent(LabelEditNote)
		w.chip.AddClass(ClassHasNote)
		w.preview.SetTextContent(note)
		w.preview.AddClass(ClassHasNote)
		return
	}
	w.chip.SetTextContent(LabelAddNote)
	w.chip.RemoveClass(ClassHasNote)
	w.preview.SetTextContent("")
	w.preview.RemoveClass(ClassHasNote)
}

func (w *Widget) renderMessaged(on bool) {
	w.host.ToggleClass(ClassHostMessaged, on)
	w.overlay.ToggleClass(ClassActive, on)
	if on {
		w.messaged.SetTextContent(LabelUnmark)
	} else {
		w.messaged.SetTextContent(LabelMark)
	}
	w.messaged.ToggleClass(ClassActive, on)
}

func (w *Widget) render(m Mirror) {
	note, messaged := m.Get(w.id)
	w.renderNote(note)
	w.renderMessaged(messaged)
}

func (w *Widget) bind(m Mirror) {
	w.chip.AddEventListener("click", func(ev *dom.Event) {
		ev.PreventDefault()
		ev.StopPropagation()
		open := !w.PanelOpen()
		w.panel.ToggleClass(ClassOpen, open)
		if open {
			w.input.Focus()
		}
	})

	w.save.AddEventListener("click", func(ev *dom.Event) {
		ev.PreventDefault()
		ev.StopPropagation()
		next := strings.TrimSpace(w.input.Value())
		m.Write(w.id, mirror.SetNote(next))
		w.renderNote(next)
		w.panel.RemoveClass(ClassOpen)
	})

	w.clear.AddEventListener("click", func(ev *dom.Event) {
		ev.PreventDefault()
		ev.StopPropagation()
		w.input.SetValue("")
		empty, off := "", false
		m.Write(w.id, mirror.Patch{Note: &empty, Messaged: &off})
		w.render(m)
		w.panel.RemoveClass(ClassOpen)
	})

	w.messaged.AddEventListener("click", func(ev *dom.Event) {
		ev.PreventDefault()
		ev.StopPropagation()
		_, on := m.Get(w.id)
		m.Write(w.id, mirror.SetMessaged(!on))
		w.render(m)
	})

	w.input.AddEventListener("keydown", func(ev *dom.Event) {
		if ev.Key == "Enter" && !ev.ShiftKey && !ev.IsComposing {
			ev.PreventDefault()
			w.save.Click()
		}
	})
}
