package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igdl/pkg/instagram"
	"igdl/pkg/scraper"
)

// EventMsg carries one task event into the update loop
type EventMsg scraper.Event

// TaskClosedMsg is sent once the task's event stream has ended
type TaskClosedMsg struct{}

// waitForEvent reads the next event from the task
func waitForEvent(t Job) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-t.Events()
		if !ok {
			return TaskClosedMsg{}
		}
		return EventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 16; w > 10 {
			m.progress.Width = min(w, 60)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.phase != phaseRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		if m.task == nil {
			return m, nil
		}
		m.handleEvent(scraper.Event(msg))
		return m, waitForEvent(m.task)

	case TaskClosedMsg:
		if m.phase == phaseRunning {
			m.phase = phaseDone
			m.finished = time.Now()
		}
		return m, nil
	}

	if m.phase == phaseForm {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m *Model) handleEvent(ev scraper.Event) {
	switch ev.Type {
	case scraper.EventItem:
		if r := ev.Result; r != nil {
			switch {
			case r.Skipped:
				m.skipped++
			case r.Success:
				m.downloaded++
			default:
				m.failed++
			}
		}
	case scraper.EventDone:
		m.summary = ev.Summary
		m.err = ev.Err
		m.phase = phaseDone
		m.finished = time.Now()
		if ev.Err == nil && ev.Summary != nil {
			m.addLog(string(scraper.LevelSuccess), fmt.Sprintf("Successfully downloaded %d files", ev.Summary.Succeeded()))
		}
	}
	m.addLog(string(ev.Level), ev.Message)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.task != nil {
			m.task.Cancel()
		}
		return m, tea.Quit
	}

	switch m.phase {
	case phaseRunning:
		switch msg.String() {
		case "esc", "q":
			m.task.Cancel()
			m.addLog(string(scraper.LevelWarn), "Cancelling...")
		}
		return m, nil

	case phaseDone:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter", "n":
			m.phase = phaseForm
			m.task = nil
			m.setFocus(fieldURL)
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return m, nil
	case "enter":
		if m.focus == fieldMode {
			return m.submit()
		}
		m.setFocus(m.focus + 1)
		return m, nil
	case "ctrl+s":
		return m.submit()
	}

	if m.focus == fieldMode {
		switch msg.String() {
		case " ", "left", "right", "h", "l":
			m.profile = !m.profile
		}
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	req, err := m.request()
	if err != nil {
		m.formErr = err.Error()
		return m, nil
	}

	m.formErr = ""
	m.phase = phaseRunning
	m.downloaded, m.skipped, m.failed = 0, 0, 0
	m.summary, m.err = nil, nil
	m.limit = instagram.NoLimit
	if req.Profile || !instagram.IsPostURL(req.URL) {
		m.limit = *req.MaxPosts
	}
	m.started = time.Now()
	m.task = m.start(m.ctx, req)

	return m, tea.Batch(m.spinner.Tick, waitForEvent(m.task))
}
