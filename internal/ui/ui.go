package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/scheduler"
)

// refreshInterval governs how often the dashboard re-polls the
// scheduler for its task list, independent of any user action.
const refreshInterval = 2 * time.Second

// ViewState represents the current view in the dashboard.
type ViewState int

const (
	TaskListView ViewState = iota
	TaskDetailView
	ConfirmCancelView
	ErrorView
)

// TaskLister is the narrow slice of [scheduler.Manager] the dashboard
// polls for its task list.
type TaskLister interface {
	List(ctx context.Context) ([]scheduler.TaskSummary, error)
}

// TaskController is the narrow slice of [scheduler.Manager] the
// dashboard uses to act on a selected task.
type TaskController interface {
	Cancel(ctx context.Context, taskID string) error
	Retry(ctx context.Context, taskID string) (string, error)
}

// TaskLogReader is the narrow slice of [taskstore.TaskLog] the
// dashboard uses to render a task's full status history.
type TaskLogReader interface {
	Log(ctx context.Context, taskID string) ([]models.TaskStatus, error)
}

// Model represents the dashboard's application state.
type Model struct {
	ctx   context.Context
	view  ViewState
	tasks TaskLister
	ctrl  TaskController
	logs  TaskLogReader

	width  int
	height int

	taskList      list.Model
	taskSummaries []scheduler.TaskSummary

	logList        list.Model
	selectedTaskID string

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a new dashboard [Model] with the provided dependencies.
func NewModel(ctx context.Context, tasks TaskLister, ctrl TaskController, logs TaskLogReader) *Model {
	taskList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	taskList.Title = "Download Tasks"

	logList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		ctx:      ctx,
		view:     TaskListView,
		tasks:    tasks,
		ctrl:     ctrl,
		logs:     logs,
		taskList: taskList,
		logList:  logList,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the dashboard by fetching the current task list and
// scheduling the first refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchTasks(), m.tickCmd())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if appMsg, ok := msg.(Msg); ok {
		switch appMsg.kind {
		case MsgTasksFetched:
			return m.handleTasksFetched(appMsg)
		case MsgTaskLogFetched:
			return m.handleTaskLogFetched(appMsg)
		case MsgActionComplete:
			return m.handleActionComplete(appMsg)
		case MsgTick:
			return m, tea.Batch(m.fetchTasks(), m.tickCmd())
		}
	}

	return m.updateLists(msg)
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.taskList.SetSize(msg.Width-4, msg.Height-8)
	m.logList.SetSize(msg.Width-4, msg.Height-8)
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case TaskListView:
		return m.handleTaskListKeys(msg)
	case TaskDetailView:
		return m.handleTaskDetailKeys(msg)
	case ConfirmCancelView:
		return m.handleConfirmKeys(msg)
	case ErrorView:
		return m.handleErrorKeys(msg)
	}
	return m, nil
}

func (m *Model) handleTasksFetched(msg Msg) (tea.Model, tea.Cmd) {
	data := msg.data.(struct {
		tasks []scheduler.TaskSummary
		err   error
	})

	if data.err != nil {
		m.err = data.err
		return m, nil
	}

	m.taskSummaries = data.tasks
	items := make([]list.Item, len(data.tasks))
	for i, t := range data.tasks {
		items[i] = taskItem{summary: t}
	}
	m.taskList.SetItems(items)
	return m, nil
}

func (m *Model) handleTaskLogFetched(msg Msg) (tea.Model, tea.Cmd) {
	data := msg.data.(struct {
		taskID string
		log    []models.TaskStatus
		err    error
	})

	if data.err != nil {
		m.err = data.err
		m.view = ErrorView
		return m, nil
	}

	items := make([]list.Item, len(data.log))
	for i, s := range data.log {
		items[i] = statusItem{status: s}
	}
	m.logList.SetItems(items)
	m.logList.Title = fmt.Sprintf("Status log: %s", data.taskID)
	m.view = TaskDetailView
	return m, nil
}

func (m *Model) handleActionComplete(msg Msg) (tea.Model, tea.Cmd) {
	data := msg.data.(struct {
		action string
		taskID string
		err    error
	})

	if data.err != nil {
		m.err = fmt.Errorf("%s %s: %w", data.action, data.taskID, data.err)
		m.view = ErrorView
		return m, nil
	}

	m.view = TaskListView
	return m, m.fetchTasks()
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ErrorView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TaskListView:
		return m.renderTaskList()
	case TaskDetailView:
		return m.renderTaskDetail()
	case ConfirmCancelView:
		return m.renderConfirmCancel()
	case ErrorView:
		return m.renderError()
	default:
		return ""
	}
}

func (m *Model) handleTaskListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "R":
		return m, m.fetchTasks()
	case "enter":
		if t, ok := m.selectedTask(); ok {
			m.selectedTaskID = t.TaskID
			return m, m.fetchTaskLog(t.TaskID)
		}
	case "c":
		if t, ok := m.selectedTask(); ok {
			m.selectedTaskID = t.TaskID
			m.view = ConfirmCancelView
			return m, nil
		}
	case "r":
		if t, ok := m.selectedTask(); ok {
			return m, m.retryTask(t.TaskID)
		}
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleTaskDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TaskListView
		return m, nil
	}

	var cmd tea.Cmd
	m.logList, cmd = m.logList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = TaskListView
		return m, nil
	case "y":
		return m, m.cancelTask(m.selectedTaskID)
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.err = nil
		m.view = TaskListView
		return m, m.fetchTasks()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TaskListView:
		m.taskList, cmd = m.taskList.Update(msg)
	case TaskDetailView:
		m.logList, cmd = m.logList.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedTask() (scheduler.TaskSummary, bool) {
	selected := m.taskList.SelectedItem()
	if selected == nil {
		return scheduler.TaskSummary{}, false
	}
	ti, ok := selected.(taskItem)
	if !ok {
		return scheduler.TaskSummary{}, false
	}
	return ti.summary, true
}

func (m *Model) fetchTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.tasks.List(m.ctx)
		return tasksFetchedMsg(tasks, err)
	}
}

func (m *Model) fetchTaskLog(taskID string) tea.Cmd {
	return func() tea.Msg {
		log, err := m.logs.Log(m.ctx, taskID)
		return taskLogFetchedMsg(taskID, log, err)
	}
}

func (m *Model) cancelTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.Cancel(m.ctx, taskID)
		return actionCompleteMsg("cancel", taskID, err)
	}
}

func (m *Model) retryTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.Retry(m.ctx, taskID)
		return actionCompleteMsg("retry", taskID, err)
	}
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg() })
}

func (m *Model) renderTaskList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.cancel, m.keys.retry, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.taskList.View(), helpView)
}

func (m *Model) renderTaskDetail() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.logList.View(), helpView)
}

func (m *Model) renderConfirmCancel() string {
	title := styles.title.Render(fmt.Sprintf("Cancel task %s?", m.selectedTaskID))
	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", title, helpView)
}

func (m *Model) renderError() string {
	title := styles.err.Render("⚠ Action Failed")
	message := fmt.Sprintf("\n%v\n", m.err)
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s", title, message, helpView)
}
