package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/scheduler"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the dashboard (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTasksFetched MsgKind = iota
	MsgTaskLogFetched
	MsgActionComplete
	MsgTick
)

// tasksFetchedMsg is the constructor for [MsgTasksFetched]
func tasksFetchedMsg(tasks []scheduler.TaskSummary, err error) Msg {
	return Msg{
		kind: MsgTasksFetched,
		data: struct {
			tasks []scheduler.TaskSummary
			err   error
		}{tasks, err},
	}
}

// taskLogFetchedMsg is the constructor for [MsgTaskLogFetched]
func taskLogFetchedMsg(taskID string, log []models.TaskStatus, err error) Msg {
	return Msg{
		kind: MsgTaskLogFetched,
		data: struct {
			taskID string
			log    []models.TaskStatus
			err    error
		}{taskID, log, err},
	}
}

// actionCompleteMsg is the constructor for [MsgActionComplete], emitted
// after a cancel or retry request returns.
func actionCompleteMsg(action, taskID string, err error) Msg {
	return Msg{
		kind: MsgActionComplete,
		data: struct {
			action string
			taskID string
			err    error
		}{action, taskID, err},
	}
}

// tickMsg is the constructor for [MsgTick], fired by the refresh timer.
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}
