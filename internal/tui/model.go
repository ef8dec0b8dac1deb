// Package tui is a terminal front end over the sync state machine.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yungbote/employee-directory/internal/client/form"
	"github.com/yungbote/employee-directory/internal/client/syncstate"
	types "github.com/yungbote/employee-directory/internal/domain"
)

// DefaultThreshold is the aggregate at which the sum line is shown.
const DefaultThreshold int64 = 11171

type Config struct {
	Threshold int64
}

type resultMsg struct{ msg syncstate.Msg }

type invalidatedMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	notReadyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type Model struct {
	ctx     context.Context
	backend syncstate.Backend
	events  <-chan struct{}
	cfg     Config

	state   syncstate.State
	initCmd syncstate.Cmd

	cursor  int
	adding  bool
	inputs  []textinput.Model
	focus   int
	formErr string
}

// New builds the model. events, when non-nil, carries server change
// notifications; each one invalidates the cached view.
func New(ctx context.Context, backend syncstate.Backend, events <-chan struct{}, cfg Config) Model {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	state, cmd := syncstate.Step(syncstate.New(), syncstate.RefreshRequested{})
	return Model{
		ctx:     ctx,
		backend: backend,
		events:  events,
		cfg:     cfg,
		state:   state,
		initCmd: cmd,
		inputs:  newInputs(),
	}
}

func newInputs() []textinput.Model {
	name := textinput.New()
	name.Placeholder = "Name"
	name.CharLimit = 64
	value := textinput.New()
	value.Placeholder = "Value"
	value.CharLimit = 12
	return []textinput.Model{name, value}
}

// State exposes the current sync state.
func (m Model) State() syncstate.State { return m.state }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.initCmd), m.waitEvent())
}

func (m Model) run(cmd syncstate.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return resultMsg{msg: syncstate.Exec(ctx, backend, cmd)}
	}
}

func (m Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return invalidatedMsg{}
	}
}

func (m Model) apply(msg syncstate.Msg) (Model, tea.Cmd) {
	next, cmd := syncstate.Step(m.state, msg)
	m.state = next
	if m.cursor >= len(m.state.Records) {
		m.cursor = max(0, len(m.state.Records)-1)
	}
	return m, m.run(cmd)
}

func (m Model) editing() bool { return m.state.EditingKey != nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		return m.apply(msg.msg)
	case invalidatedMsg:
		next, cmd := m.apply(syncstate.Invalidated{})
		return next, tea.Batch(cmd, next.waitEvent())
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.adding || m.editing() {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Records)-1 {
			m.cursor++
		}
	case "a":
		m.adding = true
		m.openForm(types.Employee{})
		return m, textinput.Blink
	case "e", "enter":
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.state.Err = nil
		next, cmd := m.apply(syncstate.BeginEdit{Key: rec.Key()})
		next.openForm(rec)
		return next, tea.Batch(cmd, textinput.Blink)
	case "d":
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.state.Err = nil
		return m.apply(syncstate.Delete{Key: rec.Key()})
	case "i":
		m.state.Err = nil
		return m.apply(syncstate.IncrementAll{})
	case "r":
		return m.apply(syncstate.RefreshRequested{})
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.formErr = ""
		return m.apply(syncstate.CancelEdit{})
	case "tab", "shift+tab", "up", "down":
		m.focus = (m.focus + 1) % len(m.inputs)
		m.focusInputs()
		return m, nil
	case "enter":
		return m.submit()
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.state.Err = nil
	res := form.Submit(form.Input{Name: m.inputs[0].Value(), Value: m.inputs[1].Value()}, func(rec types.Employee) string {
		var intent syncstate.Msg = syncstate.Add{Record: rec}
		if m.editing() {
			intent = syncstate.Update{Key: *m.state.EditingKey, Record: rec}
		}
		m, cmd = m.apply(intent)
		return form.ErrorString(m.state.Err)
	})
	if len(res.Violations) > 0 {
		msgs := make([]string, 0, len(res.Violations))
		for _, v := range res.Violations {
			msgs = append(msgs, v.Message)
		}
		m.formErr = strings.Join(msgs, "; ")
		return m, nil
	}
	if res.Error != "" {
		m.formErr = res.Error
		return m, cmd
	}
	m.formErr = ""
	m.adding = false
	return m, cmd
}

func (m *Model) openForm(rec types.Employee) {
	m.inputs = newInputs()
	if rec.Name != "" {
		m.inputs[0].SetValue(rec.Name)
		m.inputs[1].SetValue(fmt.Sprint(rec.Value))
	}
	m.focus = 0
	m.formErr = ""
	m.focusInputs()
}

func (m *Model) focusInputs() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m Model) selected() (types.Employee, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Records) {
		return types.Employee{}, false
	}
	return m.state.Records[m.cursor], true
}

// Connectivity is "OK (n)" once records are loaded and nothing is in
// flight, otherwise "NOT READY".
func (m Model) Connectivity() string {
	if m.state.Ready() {
		return fmt.Sprintf("OK (%d)", len(m.state.Records))
	}
	return "NOT READY"
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Employee Directory"))
	b.WriteString("\n")
	if m.state.Ready() {
		b.WriteString(okStyle.Render(m.Connectivity()))
	} else {
		b.WriteString(notReadyStyle.Render(m.Connectivity()))
	}
	b.WriteString("\n")
	if m.state.Loaded && m.state.Aggregate >= m.cfg.Threshold {
		fmt.Fprintf(&b, "Sum of A, B and C values: %d\n", m.state.Aggregate)
	}
	b.WriteString("\n")

	for i, rec := range m.state.Records {
		line := fmt.Sprintf("%-50s %10d", rec.Name, rec.Value)
		if m.state.Editing(rec.Key()) {
			line += "  (editing)"
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(m.state.Records) == 0 && m.state.Loaded {
		b.WriteString(helpStyle.Render("  no employees"))
		b.WriteString("\n")
	}

	if m.adding || m.editing() {
		b.WriteString("\n")
		if m.editing() {
			fmt.Fprintf(&b, "Edit %q\n", m.state.EditingKey.String())
		} else {
			b.WriteString("Add employee\n")
		}
		for _, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		if m.formErr != "" {
			b.WriteString(errorStyle.Render(m.formErr))
			b.WriteString("\n")
		}
	}

	if m.state.Err != nil {
		b.WriteString(errorStyle.Render(m.state.Err.Error()))
		b.WriteString("\n")
	}
	if m.state.RefreshErr != nil {
		b.WriteString(errorStyle.Render("refresh failed: " + m.state.RefreshErr.Error() + " (r to retry)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.adding || m.editing() {
		b.WriteString(helpStyle.Render("tab switch field • enter save • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("a add • e edit • d delete • i increment values • r refresh • q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
