package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/scheduler"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
)

// TaskSubmit accepts a track/album/playlist/artist URL for download.
func (r *Runner) TaskSubmit(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}

	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url argument is required", shared.ErrMissingArgument)
	}

	kind := models.Kind(cmd.String("kind"))
	if !kind.Valid() {
		return fmt.Errorf("%w: kind must be track, album, playlist, or artist", shared.ErrInvalidArgument)
	}

	req := scheduler.SubmitRequest{
		Kind:      kind,
		SourceURL: url,
		Display: models.Display{
			Name:   cmd.String("name"),
			Artist: cmd.String("artist"),
		},
		Submitter: "cli",
	}

	taskID, err := r.scheduler.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"task_id": taskID}, true)
	}
	return r.writePlainln("✓ Submitted %s: %s", kind, taskID)
}

// TaskList prints every known task's current status.
func (r *Runner) TaskList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}

	tasks, err := r.scheduler.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tasks, cmd.Bool("pretty"))
	}

	if len(tasks) == 0 {
		return r.writePlainln("No tasks found.")
	}

	for _, t := range tasks {
		name := t.Display.Name
		if t.Display.Artist != "" {
			name = fmt.Sprintf("%s - %s", t.Display.Artist, name)
		}
		if err := r.writePlainln("%s  %-10s  %-8s  %s", t.TaskID, t.Status, t.Kind, name); err != nil {
			return err
		}
	}
	return nil
}

// TaskCancel cancels a queued or running task.
func (r *Runner) TaskCancel(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}

	taskID := cmd.StringArg("task_id")
	if taskID == "" {
		return fmt.Errorf("%w: task_id argument is required", shared.ErrMissingArgument)
	}

	if err := r.scheduler.Cancel(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}
	return r.writePlainln("✓ Cancelled %s", taskID)
}

// TaskRetry resubmits a task that ended in error.
func (r *Runner) TaskRetry(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}

	taskID := cmd.StringArg("task_id")
	if taskID == "" {
		return fmt.Errorf("%w: task_id argument is required", shared.ErrMissingArgument)
	}

	newID, err := r.scheduler.Retry(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to retry task: %w", err)
	}
	return r.writePlainln("✓ Retrying as %s", newID)
}

// TaskLog prints a task's full append-only status history.
func (r *Runner) TaskLog(ctx context.Context, cmd *cli.Command) error {
	if r.taskLog == nil {
		return fmt.Errorf("%w: task log not initialized", shared.ErrServiceUnavailable)
	}

	taskID := cmd.StringArg("task_id")
	if taskID == "" {
		return fmt.Errorf("%w: task_id argument is required", shared.ErrMissingArgument)
	}

	entries, err := r.taskLog.Log(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to read task log: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	for _, e := range entries {
		if err := r.writePlainln("%s  %-12s  %s", e.Timestamp.Format("15:04:05"), e.Status, e.Message); err != nil {
			return err
		}
	}
	return nil
}
