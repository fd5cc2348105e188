package initialize

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Paintersrp/listingnotes/internal/config"
)

var (
	focusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cba6f7"))
	focusedDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#585b70"))
	blurredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cba6f7"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f38ba8"))
	cursorStyle         = focusedStyle.Copy()
	noStyle             = lipgloss.NewStyle()
	helpStyle           = blurredStyle.Copy()
	cursorModeHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#cba6f7"))

	focusedButton = focusedStyle.Copy().Render("[ Submit ]")
	blurredButton = fmt.Sprintf(
		"[ %s ]",
		blurredStyle.Render("Submit"),
	)
)

const (
	inputDSN = iota
	inputOrigin
	inputLogLevel
	inputCount
)

type InitPromptModel struct {
	cfg        *config.Config
	inputs     []textinput.Model
	defaults   []string
	focusIndex int
	cursorMode cursor.Mode
	err        error
	saved      bool
}

// InitialPrompt builds the setup form for cfg, suggesting the DSN of
// backend.
func InitialPrompt(cfg *config.Config, backend string) InitPromptModel {
	m := InitPromptModel{
		cfg:    cfg,
		inputs: make([]textinput.Model, inputCount),
		defaults: []string{
			DefaultDSN(backend, cfg.Home()),
			cfg.Engine.BaseOrigin,
			cfg.Log.Level,
		},
	}

	var t textinput.Model
	for i := range m.inputs {
		t = textinput.New()
		t.Cursor.Style = cursorStyle
		t.CharLimit = 256
		t.Placeholder = m.defaults[i]
		t.PlaceholderStyle = focusedDimStyle

		switch i {
		case inputDSN:
			t.Prompt = "Store DSN: "
			t.Focus()
			t.PromptStyle = focusedStyle
			t.TextStyle = focusedStyle
		case inputOrigin:
			t.Prompt = "Marketplace Origin: "
			t.PromptStyle = noStyle
		case inputLogLevel:
			t.Prompt = "Log Level: "
			t.CharLimit = 8
			t.PromptStyle = noStyle
		}

		m.inputs[i] = t
	}

	return m
}

func (m InitPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

// Saved reports whether the form was submitted and written.
func (m InitPromptModel) Saved() bool { return m.saved }

func (m InitPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+r":
			m.cursorMode++
			if m.cursorMode > cursor.CursorHide {
				m.cursorMode = cursor.CursorBlink
			}
			cmds := make([]tea.Cmd, len(m.inputs))
			for i := range m.inputs {
				cmds[i] = m.inputs[i].Cursor.SetMode(m.cursorMode)
			}
			return m, tea.Batch(cmds...)

		case "tab", "shift+tab", "enter", "up", "down":
			s := msg.String()

			if s == "enter" && m.focusIndex == len(m.inputs) {
				if err := m.submit(); err != nil {
					m.err = err
					return m, nil
				}
				m.saved = true
				return m, tea.Quit
			}

			if s == "up" || s == "shift+tab" {
				m.focusIndex--
			} else {
				m.focusIndex++
			}

			if m.focusIndex > len(m.inputs) {
				m.focusIndex = 0
			} else if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs)
			}

			return m, m.focus()
		}
	}

	cmd := m.updateInputs(msg)

	return m, cmd
}

func (m *InitPromptModel) focus() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		if i == m.focusIndex {
			cmds[i] = m.inputs[i].Focus()
			m.inputs[i].PromptStyle = focusedStyle
			m.inputs[i].TextStyle = focusedStyle
			continue
		}
		m.inputs[i].Blur()
		m.inputs[i].PromptStyle = noStyle
		m.inputs[i].TextStyle = noStyle
	}
	return tea.Batch(cmds...)
}

// value returns input i, or its default when left blank.
func (m InitPromptModel) value(i int) string {
	if v := strings.TrimSpace(m.inputs[i].Value()); v != "" {
		return v
	}
	return m.defaults[i]
}

func (m InitPromptModel) submit() error {
	level := m.value(inputLogLevel)
	if err := config.ValidateLogLevel(level); err != nil {
		return err
	}
	m.cfg.Engine.BaseOrigin = m.value(inputOrigin)
	m.cfg.Log.Level = strings.ToLower(level)
	return m.cfg.ChangeStore(m.value(inputDSN))
}

func (m *InitPromptModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))

	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}

	return tea.Batch(cmds...)
}

func (m InitPromptModel) View() string {
	var b strings.Builder

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		if i < len(m.inputs)-1 {
			b.WriteRune('\n')
		}
	}

	button := &blurredButton
	if m.focusIndex == len(m.inputs) {
		button = &focusedButton
	}
	fmt.Fprintf(&b, "\n\n%s\n\n", *button)

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("cursor mode is "))
	b.WriteString(cursorModeHelpStyle.Render(m.cursorMode.String()))
	b.WriteString(helpStyle.Render(" (ctrl+r to change style)"))
	b.WriteString(
		helpStyle.Render("\n(Leave inputs blank for default values)"),
	)

	return b.String()
}

// Run shows the form and reports whether the config was saved.
func Run(cfg *config.Config, backend string) (bool, error) {
	final, err := tea.NewProgram(InitialPrompt(cfg, backend)).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(InitPromptModel)
	return ok && m.Saved(), nil
}
