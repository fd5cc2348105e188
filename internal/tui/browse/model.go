// Package browse is a terminal surface over the widgets of one page.
package browse

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Paintersrp/listingnotes/internal/engine"
	"github.com/Paintersrp/listingnotes/internal/render"
	"github.com/Paintersrp/listingnotes/internal/widget"
)

var (
	defaultWriteClipboard = clipboard.WriteAll
	writeClipboard        = defaultWriteClipboard
)

type snapshotMsg Snapshot

type listItem struct {
	view widget.View
}

func (i listItem) Title() string {
	title := i.view.Title
	if title == "" {
		title = "Listing " + i.view.ID
	}
	if i.view.Messaged {
		return messagedStyle.Render("●") + " " + title
	}
	return title
}

func (i listItem) Description() string {
	if !i.view.HasNote() {
		return i.view.ID
	}
	return i.view.ID + " | " + truncate.StringWithTail(render.Summary(i.view.Note), 48, "…")
}

func (i listItem) FilterValue() string {
	return strings.Join([]string{i.view.ID, i.view.Title, i.view.Note}, " ")
}

type Model struct {
	session *Session
	list    list.Model
	input   textarea.Model
	keys    keyMap
	views   []widget.View
	editing *widget.Widget
	status  string
	width   int
	height  int
}

func NewModel(s *Session) *Model {
	delegate := list.NewDefaultDelegate()
	lm := list.New(nil, delegate, 0, 0)
	lm.Title = "Listings"
	lm.Styles.Title = titleStyle
	lm.DisableQuitKeybindings()

	input := textarea.New()
	input.Placeholder = widget.InputPlaceholder
	input.ShowLineNumbers = false
	input.SetHeight(4)

	m := &Model{
		session: s,
		list:    lm,
		input:   input,
		keys:    newKeyMap(),
	}
	m.setViews(s.Latest().Views)
	return m
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		<-m.session.Updates()
		return snapshotMsg(m.session.Latest())
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-9, 3))
		m.input.SetWidth(max(msg.Width-4, 10))
		return m, nil
	case snapshotMsg:
		m.setViews(msg.Views)
		if msg.Activated != "" {
			m.status = "followed " + msg.Activated
		}
		return m, m.waitForSnapshot()
	case tea.KeyMsg:
		if m.editing != nil {
			return m.updateEditing(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.edit):
			return m.handleEdit()
		case key.Matches(msg, m.keys.messaged):
			return m.withSelected(func(v widget.View) {
				m.session.ToggleMessaged(v.Widget)
				if v.Messaged {
					m.status = "unmarked " + v.ID
				} else {
					m.status = "marked " + v.ID + " messaged"
				}
			})
		case key.Matches(msg, m.keys.clear):
			return m.withSelected(func(v widget.View) {
				m.session.Clear(v.Widget)
				m.status = "cleared " + v.ID
			})
		case key.Matches(msg, m.keys.copy):
			return m.withSelected(m.handleCopy)
		case key.Matches(msg, m.keys.follow):
			return m.withSelected(func(v widget.View) {
				m.session.Follow(v.Widget)
			})
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := m.editing
	switch {
	case key.Matches(msg, m.keys.newline):
		m.input.InsertString("\n")
		return m, nil
	case key.Matches(msg, m.keys.save):
		m.session.Submit(w, m.input.Value())
		m.stopEditing()
		m.status = "saved"
		return m, nil
	case key.Matches(msg, m.keys.clear):
		m.session.Clear(w)
		m.stopEditing()
		m.status = "cleared"
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		m.session.Draft(w, m.input.Value())
		m.session.TogglePanel(w)
		m.stopEditing()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEdit() (tea.Model, tea.Cmd) {
	v, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !v.PanelOpen {
		m.session.TogglePanel(v.Widget)
	}
	m.editing = v.Widget
	m.input.SetValue(v.Input)
	m.status = ""
	return m, m.input.Focus()
}

func (m *Model) handleCopy(v widget.View) {
	if !v.HasNote() {
		m.status = "no note to copy"
		return
	}
	if err := writeClipboard(v.Note); err != nil {
		m.status = fmt.Sprintf("copy failed: %v", err)
		return
	}
	m.status = "copied note for " + v.ID
}

func (m *Model) stopEditing() {
	m.editing = nil
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) withSelected(fn func(widget.View)) (tea.Model, tea.Cmd) {
	if v, ok := m.selected(); ok {
		fn(v)
	}
	return m, nil
}

func (m *Model) selected() (widget.View, bool) {
	item, ok := m.list.SelectedItem().(listItem)
	if !ok || item.view.Widget == nil {
		return widget.View{}, false
	}
	return item.view, true
}

func (m *Model) setViews(views []widget.View) {
	m.views = views
	items := make([]list.Item, 0, len(views))
	for _, v := range views {
		items = append(items, listItem{view: v})
	}
	m.list.SetItems(items)
}

func (m *Model) View() string {
	sections := []string{m.list.View(), m.detailView()}
	if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) detailView() string {
	if m.editing != nil {
		return panelStyle.Render(m.input.View())
	}

	v, ok := m.selected()
	if !ok {
		return dimStyle.Render("No listings attached yet.")
	}

	width := m.width - 4
	if width <= 0 {
		width = 60
	}

	var b strings.Builder
	b.WriteString(v.ChipLabel)
	b.WriteString("  ")
	if v.Messaged {
		b.WriteString(messagedStyle.Render(v.MessagedLabel))
	} else {
		b.WriteString(dimStyle.Render(v.MessagedLabel))
	}
	b.WriteString("\n")
	if v.HasNote() {
		b.WriteString(wordwrap.String(v.Note, width))
	} else {
		b.WriteString(dimStyle.Render("No note."))
	}
	return panelStyle.Render(b.String())
}

// Run drives the terminal UI until the user quits. The engine's loop must
// already be running.
func Run(e *engine.Engine, opts ...tea.ProgramOption) error {
	s := NewSession(e)
	p := tea.NewProgram(NewModel(s), opts...)
	_, err := p.Run()
	return err
}
