package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/models"
)

// TaskInfoTTL is the TTL applied to task:{id}:info records (spec.md §4.1
// step 4).
const TaskInfoTTL = 7 * 24 * time.Hour

func infoKey(taskID string) string      { return fmt.Sprintf("task:%s:info", taskID) }
func statusKey(taskID string) string    { return fmt.Sprintf("task:%s:status", taskID) }
func nextIDKey(taskID string) string    { return fmt.Sprintf("task:%s:status:next_id", taskID) }
func updatesChannel(taskID string) string { return fmt.Sprintf("task_updates:%s", taskID) }

// TaskLog is a thin, typed façade over [Store] implementing the per-task
// key shapes named in SPEC_FULL.md §6: task:{id}:info (single writer:
// SQM), task:{id}:status (append-only), task:{id}:status:next_id (monotonic
// counter), and task_updates:{id} (pub/sub).
type TaskLog struct {
	store Store
}

// NewTaskLog wraps a coordination store with the task-shaped operations SQM
// and WR need.
func NewTaskLog(store Store) *TaskLog {
	return &TaskLog{store: store}
}

// PutInfo writes (or overwrites) a task's info record with the standard TTL.
func (l *TaskLog) PutInfo(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("taskstore: marshal task info: %w", err)
	}
	return l.store.Set(ctx, infoKey(task.TaskID), data, TaskInfoTTL)
}

// GetInfo reads a task's info record.
func (l *TaskLog) GetInfo(ctx context.Context, taskID string) (*models.Task, error) {
	data, err := l.store.Get(ctx, infoKey(taskID))
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("taskstore: unmarshal task info: %w", err)
	}
	return &task, nil
}

// ListTaskIDs enumerates all live task-info keys (spec.md §4.1 List).
func (l *TaskLog) ListTaskIDs(ctx context.Context) ([]string, error) {
	keys, err := l.store.Keys(ctx, "task:")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := taskIDFromInfoKey(k); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func taskIDFromInfoKey(key string) string {
	const prefix, suffix = "task:", ":info"
	if len(key) <= len(prefix)+len(suffix) {
		return ""
	}
	if key[len(key)-len(suffix):] != suffix {
		return ""
	}
	return key[len(prefix) : len(key)-len(suffix)]
}

// Append appends a new status entry to the task's status log, assigning it
// the next dense, strictly-increasing status_id, and publishes notification
// of the new entry on the task's update channel. When the latest entry is
// terminal, every further append other than RETRYING is rejected.
func (l *TaskLog) Append(ctx context.Context, taskID string, status models.Status, message string, payload map[string]any) (*models.TaskStatus, error) {
	last, err := l.Last(ctx, taskID)
	if err == nil && last != nil && last.Status.Terminal() && status != models.StatusRetrying {
		return nil, fmt.Errorf("taskstore: task %s already terminal (%s)", taskID, last.Status)
	}

	id, err := l.store.Incr(ctx, nextIDKey(taskID))
	if err != nil {
		return nil, fmt.Errorf("taskstore: increment status id: %w", err)
	}

	entry := models.TaskStatus{
		StatusID:  int(id),
		TaskID:    taskID,
		Status:    status,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := entry.Encode()
	if err != nil {
		return nil, fmt.Errorf("taskstore: encode status: %w", err)
	}
	if err := l.store.ListAppend(ctx, statusKey(taskID), data); err != nil {
		return nil, fmt.Errorf("taskstore: append status: %w", err)
	}

	notify, _ := json.Marshal(map[string]any{"task_id": taskID, "status_id": entry.StatusID})
	l.store.Publish(ctx, updatesChannel(taskID), notify)
	return &entry, nil
}

// Log returns the full status log for a task, in append order.
func (l *TaskLog) Log(ctx context.Context, taskID string) ([]models.TaskStatus, error) {
	raw, err := l.store.ListRange(ctx, statusKey(taskID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskStatus, 0, len(raw))
	for _, b := range raw {
		var s models.TaskStatus
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("taskstore: decode status entry: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Last returns the most recently appended status entry, or nil if the task
// has no entries yet.
func (l *TaskLog) Last(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	n, err := l.store.ListLen(ctx, statusKey(taskID))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	raw, err := l.store.ListRange(ctx, statusKey(taskID), n-1, n-1)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var s models.TaskStatus
	if err := json.Unmarshal(raw[0], &s); err != nil {
		return nil, fmt.Errorf("taskstore: decode status entry: %w", err)
	}
	return &s, nil
}

// Subscribe returns a channel of raw {task_id,status_id} notifications for
// the given task, for SSE consumers (spec.md §2 data flow).
func (l *TaskLog) Subscribe(ctx context.Context, taskID string) (<-chan []byte, func()) {
	return l.store.Subscribe(ctx, updatesChannel(taskID))
}
