package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igdl/pkg/ui"
)

const logo = `╦╔═╗╔╦╗╦
║║ ╦ ║║║
╩╚═╝═╩╝╩═╝`

func (m Model) View() string {
	sections := []string{logoStyle.Render(logo)}

	switch m.phase {
	case phaseForm:
		sections = append(sections, m.renderForm())
	default:
		sections = append(sections, m.renderRun())
	}

	sections = append(sections, m.renderLogs(), helpStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) panelWidth() int {
	if m.width > 8 {
		return m.width - 4
	}
	return 76
}

func (m Model) renderForm() string {
	labels := []string{"Username", "Password", "URL", "Max posts"}

	var rows []string
	for i, in := range m.inputs {
		label := labelStyle
		if i == m.focus {
			label = focusedLabelStyle
		}
		rows = append(rows, label.Render(labels[i])+" "+in.View())
	}

	mode := "post"
	if m.profile {
		mode = "profile"
	}
	label := labelStyle
	if m.focus == fieldMode {
		label = focusedLabelStyle
	}
	rows = append(rows, label.Render("Mode")+" "+valueStyle.Render("< "+mode+" >")+dimStyle.Render("  (profile is also used for non-post URLs)"))

	if m.outputDir != "" {
		rows = append(rows, labelStyle.Render("Output")+" "+dimStyle.Render(m.outputDir))
	}
	if m.formErr != "" {
		rows = append(rows, "", errorStyle.Render(m.formErr))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" DOWNLOAD "), body),
	)
}

func (m Model) renderRun() string {
	var status string
	switch {
	case m.phase == phaseRunning:
		status = m.spinner.View() + " Downloading " + valueStyle.Render(m.inputs[fieldURL].Value())
	case m.err != nil:
		status = errorStyle.Render("✗ " + m.err.Error())
	case m.summary != nil && m.summary.Err() != nil:
		status = warningStyle.Render("⚠ " + m.summary.Err().Error())
	default:
		status = successStyle.Render("✓ Done")
	}

	elapsed := time.Since(m.started)
	if m.phase == phaseDone && !m.finished.IsZero() {
		elapsed = m.finished.Sub(m.started)
	}

	stats := fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		labelStyle.UnsetWidth().Render("Downloaded"), valueStyle.Render(fmt.Sprint(m.downloaded)),
		labelStyle.UnsetWidth().Render("Skipped"), valueStyle.Render(fmt.Sprint(m.skipped)),
		labelStyle.UnsetWidth().Render("Failed"), valueStyle.Render(fmt.Sprint(m.failed)),
		labelStyle.UnsetWidth().Render("Elapsed"), valueStyle.Render(ui.FormatDuration(elapsed)),
	)

	rows := []string{status, stats}
	if f := m.fraction(); f >= 0 {
		rows = append(rows, m.progress.ViewAs(f))
	}
	if m.summary != nil && m.phase == phaseDone {
		rows = append(rows, dimStyle.Render(m.summary.String()))
	}

	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" PROGRESS "), lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (m Model) renderLogs() string {
	n := 10
	if m.height > 0 {
		n = max(3, m.height-22)
	}
	start := max(0, len(m.logs)-n)

	var lines []string
	for _, l := range m.logs[start:] {
		if l.Message == "" {
			continue
		}
		lines = append(lines, logTimestampStyle.Render(l.Time.Format("15:04:05"))+" "+
			lipgloss.NewStyle().Foreground(levelColor(l.Level)).Render(l.Message))
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("No activity yet"))
	}

	return panelStyle.Width(m.panelWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOG "), strings.Join(lines, "\n")),
	)
}

func (m Model) help() string {
	switch m.phase {
	case phaseRunning:
		return "esc/q cancel • ctrl+c quit"
	case phaseDone:
		return "enter new download • q quit"
	default:
		return "tab/↑↓ move • space toggle mode • enter next/start • ctrl+s start • esc quit"
	}
}
