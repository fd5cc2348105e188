// Package textarea is a full screen editor for a single note.
package textarea

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

var readClipboard = clipboard.ReadAll

type model struct {
	title    string
	textarea textarea.Model
	saved    bool
}

func initialModel(title, content string) model {
	ti := textarea.New()
	ti.Placeholder = "..."
	ti.SetHeight(12)
	ti.CharLimit = 0
	ti.SetWidth(80)
	ti.ShowLineNumbers = false
	ti.SetValue(content)
	ti.Focus()

	return model{
		title:    title,
		textarea: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.textarea.SetWidth(msg.Width)
		if msg.Height > 8 {
			m.textarea.SetHeight(msg.Height - 6)
		}
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			if m.textarea.Focused() {
				m.textarea.Blur()
				return m, nil
			}
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlS:
			m.saved = true
			return m, tea.Quit
		default:
			if !m.textarea.Focused() {
				cmd = m.textarea.Focus()
				cmds = append(cmds, cmd)
			}
		}
	}

	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	return fmt.Sprintf(
		"%s\n\n%s\n\n%s\n%s",
		m.title,
		m.textarea.View(),
		"(ctrl+c to quit)",
		"(ctrl+s to save note)",
	) + "\n\n"
}

// Run edits content and returns the new value. saved is false when the
// editor was closed without saving. With yank the editor starts from the
// clipboard instead of content.
func Run(title, content string, yank bool) (value string, saved bool, err error) {
	if yank {
		content, err = readClipboard()
		if err != nil {
			return "", false, fmt.Errorf("failed to read clipboard: %w", err)
		}
	}

	final, err := tea.NewProgram(initialModel(title, content)).Run()
	if err != nil {
		return "", false, err
	}
	m, ok := final.(model)
	if !ok || !m.saved {
		return "", false, nil
	}
	return m.textarea.Value(), true, nil
}
