package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/scheduler"
)

var (
	_ list.Item = taskItem{}
	_ list.Item = statusItem{}
)

// taskItem wraps [scheduler.TaskSummary] to implement [list.Item].
type taskItem struct {
	summary scheduler.TaskSummary
}

func (i taskItem) FilterValue() string { return i.summary.Display.Name }

func (i taskItem) Title() string {
	return fmt.Sprintf("%s  %s", statusStyle(i.summary.Status).Render(string(i.summary.Status)), i.summary.Display.Name)
}

func (i taskItem) Description() string {
	desc := fmt.Sprintf("%s · %s", i.summary.Kind, i.summary.TaskID)
	if i.summary.Display.Artist != "" {
		desc = fmt.Sprintf("%s · %s", i.summary.Display.Artist, desc)
	}
	return desc
}

// statusItem wraps one [models.TaskStatus] log entry to implement [list.Item].
type statusItem struct {
	status models.TaskStatus
}

func (i statusItem) FilterValue() string { return string(i.status.Status) }

func (i statusItem) Title() string {
	return fmt.Sprintf("%s  %s", statusStyle(i.status.Status).Render(string(i.status.Status)), i.status.Timestamp.Format("15:04:05"))
}

func (i statusItem) Description() string {
	if i.status.Message == "" {
		return "—"
	}
	return i.status.Message
}
