// Package ui implements an interactive terminal dashboard using
// bubbletea's Elm architecture.
//
// The dashboard polls the scheduler for the current task list and
// renders it as a navigable [list.Model]:
//  1. [TaskListView] : browse queued/active/finished tasks
//  2. [TaskDetailView] : inspect one task's full status log
//  3. [ConfirmCancelView] : confirm cancelling a running task
//  4. [ErrorView] : surface an action failure
//
// The (view) [Model] implements bubbletea/Elm's standard
// Init/Update/View pattern, receiving messages via the Msg union type.
// A background tea.Tick drives periodic refreshes so the list reflects
// scheduler state without the user pressing anything.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, r, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
