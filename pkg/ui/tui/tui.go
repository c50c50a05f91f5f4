package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the downloader window until the user quits. Jobs are started
// through start and their events rendered as they arrive.
func Run(ctx context.Context, start StartFunc, d Defaults) error {
	p := tea.NewProgram(NewModel(ctx, start, d), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
