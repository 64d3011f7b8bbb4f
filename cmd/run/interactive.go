package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	nifruntime "github.com/wippyai/nif-runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	flagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	sess     *session
	result   string
	funcs    []funcInfo
	input    textinput.Model
	bindAs   textinput.Model
	selected int
	state    modelState
}

type funcInfo struct {
	module string
	fn     nifruntime.Func
}

func (f funcInfo) expr(args string) string {
	return f.module + ":" + f.fn.Name + "(" + args + ")"
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(sess *session) *interactiveModel {
	m := &interactiveModel{sess: sess, state: stateSelectFunc}
	for _, name := range sess.rt.Modules() {
		mod, _ := sess.rt.Module(name)
		for _, f := range mod.Funcs() {
			m.funcs = append(m.funcs, funcInfo{module: name, fn: f})
		}
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if m.funcs[m.selected].fn.Arity == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs {
				if m.input.Focused() {
					m.input.Blur()
					m.bindAs.Focus()
				} else {
					m.bindAs.Blur()
					m.input.Focus()
				}
			}

		case "esc":
			switch m.state {
			case stateInputArgs, stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd1, cmd2 tea.Cmd
		m.input, cmd1 = m.input.Update(msg)
		m.bindAs, cmd2 = m.bindAs.Update(msg)
		return m, tea.Batch(cmd1, cmd2)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]

	m.input = textinput.New()
	m.input.Placeholder = fmt.Sprintf("%d comma separated terms, $name for bound results", f.fn.Arity)
	m.input.Prompt = "args: "
	m.input.Width = 60
	m.input.Focus()

	m.bindAs = textinput.New()
	m.bindAs.Placeholder = "optional variable name"
	m.bindAs.Prompt = "as:   "
	m.bindAs.Width = 30
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	expr := f.expr(m.input.Value())
	res, err := m.sess.run(context.Background(), expr)
	if err == nil {
		if name := strings.TrimSpace(m.bindAs.Value()); name != "" {
			m.sess.bind(name, res)
		}
	}
	return callResultMsg{err: err, result: formatResult(res, err)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NIF Runner"))
	b.WriteString(" ")
	b.WriteString(m.sess.rt.Config().Node)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatFunc(f)))
			} else {
				b.WriteString("  " + formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.module+":"+f.fn.Name)))
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.bindAs.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.module+":"+f.fn.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatFunc(f funcInfo) string {
	s := funcStyle.Render(fmt.Sprintf("%s:%s/%d", f.module, f.fn.Name, f.fn.Arity))
	if f.fn.Flags.Dirty() {
		s += " " + flagStyle.Render(f.fn.Flags.String())
	}
	return s
}

func runInteractive(sess *session) error {
	p := tea.NewProgram(newInteractiveModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
