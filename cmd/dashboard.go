package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

// Dashboard launches the interactive terminal UI for monitoring and
// controlling download tasks.
func (r *Runner) Dashboard(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}
	if r.taskLog == nil {
		return fmt.Errorf("%w: task log not initialized", shared.ErrServiceUnavailable)
	}

	fileLogger, err := shared.NewFileLogger("./tmp/spindle-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	model := ui.NewModel(ctx, r.scheduler, r.scheduler, r.taskLog)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}
	return nil
}
