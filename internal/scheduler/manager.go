package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

// Executor runs one accepted job end to end. The worker runtime
// (internal/worker) implements this; it owns appending PROCESSING through
// COMPLETE/ERROR and writing the terminal history row, per spec.md §4.2 —
// Manager's job is only to decide whether, when, and on which pool a task
// runs.
type Executor interface {
	Execute(ctx context.Context, task *models.Task) error
}

// SubmitRequest is the caller-supplied half of a Task, per spec.md §4.1's
// submit contract.
type SubmitRequest struct {
	Kind       models.Kind
	SourceURL  string
	Display    models.Display
	Parameters map[string]any
	Submitter  string
	FromWatch  bool
}

// TaskSummary is one row of Manager.List's output.
type TaskSummary struct {
	TaskID    string
	Kind      models.Kind
	Display   models.Display
	Status    models.Status
	Timestamp time.Time
}

// Manager is SQM: it accepts submissions, deduplicates by fingerprint,
// allocates ids, merges default parameters, and dispatches onto the
// downloads or utility pool, grounded on
// original_source/routes/utils/queue.py's DownloadQueueManager.
type Manager struct {
	log   *log.Logger
	tasks *taskstore.TaskLog
	cfg   shared.SchedulerConfig

	downloads *pool
	utility   *pool
	executor  Executor

	paused   atomic.Bool
	deferred struct {
		mu   sync.Mutex
		jobs []job
	}

	running struct {
		mu      sync.Mutex
		cancels map[string]context.CancelFunc
	}
}

// New constructs a Manager with its two named pools sized from cfg, per
// spec.md §5 (downloads = MaxConcurrentDownloads, utility = fixed small
// concurrency).
func New(store taskstore.Store, cfg shared.SchedulerConfig, executor Executor, logger *log.Logger) *Manager {
	utilityConcurrency := cfg.UtilityPoolConcurrency
	if utilityConcurrency <= 0 {
		utilityConcurrency = 3
	}
	m := &Manager{
		log:       logger,
		tasks:     taskstore.NewTaskLog(store),
		cfg:       cfg,
		downloads: newPool("downloads", cfg.MaxConcurrentDownloads, logger),
		utility:   newPool("utility", utilityConcurrency, logger),
		executor:  executor,
	}
	m.running.cancels = make(map[string]context.CancelFunc)
	return m
}

// Resize changes the downloads pool's concurrency in place, per spec.md
// §5's "auxiliary process ... restarts ONLY the downloads pool" clause.
// The utility pool is untouched.
func (m *Manager) Resize(maxConcurrentDownloads int) {
	m.downloads.Resize(maxConcurrentDownloads)
}

// Pause sets the process-wide pause flag (spec.md §4.1): jobs submitted
// while paused are held in memory rather than dispatched to a pool.
func (m *Manager) Pause() {
	m.paused.Store(true)
}

// Resume clears the pause flag and immediately dispatches every job that
// had accumulated while paused.
func (m *Manager) Resume() {
	m.paused.Store(false)

	m.deferred.mu.Lock()
	pending := m.deferred.jobs
	m.deferred.jobs = nil
	m.deferred.mu.Unlock()

	for _, j := range pending {
		m.downloads.Submit(j, 0)
	}
}

// Submit accepts a new download request, deduplicating on fingerprint,
// merging configured defaults, and enqueuing onto the downloads pool for
// track/album/playlist kinds. Artist kinds never enqueue a worker job
// directly (spec.md §4.7's fan-out is the caller's responsibility, driven
// through Submit once per matching album).
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if !req.Kind.Valid() {
		return "", fmt.Errorf("%w: invalid kind %q", shared.ErrInvalidArgument, req.Kind)
	}
	if req.SourceURL == "" {
		return "", fmt.Errorf("%w: missing source url", shared.ErrInvalidArgument)
	}

	fingerprint := shared.Fingerprint(string(req.Kind), req.SourceURL)
	if existingID, dup := m.findActiveDuplicate(ctx, fingerprint); dup {
		return existingID, fmt.Errorf("%w: task %s", shared.ErrDuplicateDownload, existingID)
	}

	task := &models.Task{
		TaskID:      shared.GenerateID(),
		Kind:        req.Kind,
		SourceURL:   req.SourceURL,
		Display:     req.Display,
		Parameters:  m.mergeDefaults(req.Parameters),
		Fingerprint: fingerprint,
		FromWatch:   req.FromWatch,
		Submitter:   req.Submitter,
		CreatedAt:   time.Now(),
	}
	return task.TaskID, m.admit(ctx, task, 0)
}

// Retry re-submits the predecessor's parameters as a new task, per
// spec.md §4.1's retry contract: the previous status must be ERROR and
// retry_count must be under the configured ceiling. The new job is
// deferred by initial_delay + retry_count*delay_increase.
func (m *Manager) Retry(ctx context.Context, taskID string) (string, error) {
	last, err := m.tasks.Last(ctx, taskID)
	if err != nil {
		return "", err
	}
	if last == nil || last.Status != models.StatusError {
		return "", fmt.Errorf("%w: task %s is not in ERROR", shared.ErrNotRetryable, taskID)
	}

	old, err := m.tasks.GetInfo(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrUnknownTask, taskID)
	}
	maxRetries := m.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if old.RetryCount >= maxRetries {
		return "", fmt.Errorf("%w: task %s", shared.ErrMaxRetriesReached, taskID)
	}

	next := *old
	next.TaskID = shared.GenerateID()
	next.RetryOf = taskID
	next.RetryCount = old.RetryCount + 1
	next.CreatedAt = time.Now()

	delay := time.Duration(m.cfg.RetryDelaySeconds)*time.Second +
		time.Duration(old.RetryCount)*time.Duration(m.cfg.RetryDelayIncrease)*time.Second

	return next.TaskID, m.admit(ctx, &next, delay)
}

// Cancel appends a CANCELLED status and, if the task is currently
// executing, cancels its context so the worker runtime aborts the
// in-flight job. A no-op on unknown or already-terminal task ids.
func (m *Manager) Cancel(ctx context.Context, taskID string) error {
	last, err := m.tasks.Last(ctx, taskID)
	if err != nil || last == nil || last.Status.Terminal() {
		return nil
	}

	if _, err := m.tasks.Append(ctx, taskID, models.StatusCancelled, "cancelled by caller", nil); err != nil {
		return fmt.Errorf("scheduler: append cancelled status: %w", err)
	}

	m.running.mu.Lock()
	cancel, ok := m.running.cancels[taskID]
	m.running.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// List enumerates every live task, each paired with its most recent
// status entry, per spec.md §4.1.
func (m *Manager) List(ctx context.Context) ([]TaskSummary, error) {
	ids, err := m.tasks.ListTaskIDs(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]TaskSummary, 0, len(ids))
	for _, id := range ids {
		task, err := m.tasks.GetInfo(ctx, id)
		if err != nil {
			continue
		}
		last, err := m.tasks.Last(ctx, id)
		if err != nil || last == nil {
			continue
		}
		summaries = append(summaries, TaskSummary{
			TaskID: id, Kind: task.Kind, Display: task.Display,
			Status: last.Status, Timestamp: last.Timestamp,
		})
	}
	return summaries, nil
}

// admit persists task, appends its initial QUEUED status, and dispatches
// it (or defers it, while paused) onto the downloads pool.
func (m *Manager) admit(ctx context.Context, task *models.Task, delay time.Duration) error {
	if err := m.tasks.PutInfo(ctx, task); err != nil {
		return fmt.Errorf("scheduler: persist task info: %w", err)
	}

	ids, err := m.tasks.ListTaskIDs(ctx)
	queuePosition := 1
	if err == nil {
		queuePosition = len(ids) + 1
	}
	if _, err := m.tasks.Append(ctx, task.TaskID, models.StatusQueued,
		"", map[string]any{"queue_position": queuePosition}); err != nil {
		return fmt.Errorf("scheduler: append queued status: %w", err)
	}

	if task.Kind == models.KindArtist {
		return nil
	}

	j := job{taskID: task.TaskID, run: func(ctx context.Context) { m.runJob(ctx, task.TaskID) }}

	if m.paused.Load() {
		m.deferred.mu.Lock()
		m.deferred.jobs = append(m.deferred.jobs, j)
		m.deferred.mu.Unlock()
		return nil
	}
	m.downloads.Submit(j, delay)
	return nil
}

// runJob executes task through the configured Executor, skipping it
// outright if it was cancelled before a worker picked it up.
func (m *Manager) runJob(ctx context.Context, taskID string) {
	last, err := m.tasks.Last(ctx, taskID)
	if err == nil && last != nil && last.Status == models.StatusCancelled {
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	m.running.mu.Lock()
	m.running.cancels[taskID] = cancel
	m.running.mu.Unlock()
	defer func() {
		cancel()
		m.running.mu.Lock()
		delete(m.running.cancels, taskID)
		m.running.mu.Unlock()
	}()

	if m.executor == nil {
		return
	}
	task, err := m.tasks.GetInfo(jobCtx, taskID)
	if err != nil {
		m.log.Error("scheduler: task info vanished before execution", "task_id", taskID, "err", err)
		return
	}
	if err := m.executor.Execute(jobCtx, task); err != nil {
		m.log.Warn("scheduler: job execution returned an error", "task_id", taskID, "err", err)
	}
}

// findActiveDuplicate scans live tasks for a non-terminal entry sharing
// fingerprint, per spec.md §4.1 step 1.
func (m *Manager) findActiveDuplicate(ctx context.Context, fingerprint string) (string, bool) {
	ids, err := m.tasks.ListTaskIDs(ctx)
	if err != nil {
		return "", false
	}
	for _, id := range ids {
		task, err := m.tasks.GetInfo(ctx, id)
		if err != nil || task.Fingerprint != fingerprint {
			continue
		}
		last, err := m.tasks.Last(ctx, id)
		if err != nil || last == nil || last.Status.Terminal() {
			continue
		}
		return id, true
	}
	return "", false
}

// mergeDefaults fills in any parameter the caller omitted from
// configuration (account/service selection, quality, pacing, conversion,
// formatting), per spec.md §4.1 step 3.
func (m *Manager) mergeDefaults(params map[string]any) map[string]any {
	merged := map[string]any{
		"service":             m.cfg.Service,
		"fallback":            m.cfg.Fallback,
		"spotify_quality":     m.cfg.SpotifyQuality,
		"deezer_quality":      m.cfg.DeezerQuality,
		"real_time":           m.cfg.RealTime,
		"custom_dir_format":   m.cfg.CustomDirFormat,
		"custom_track_format": m.cfg.CustomTrackFormat,
		"tracknum_padding":    m.cfg.TracknumPadding,
		"pad_number_width":    m.cfg.PadNumberWidth,
		"convert_to":          m.cfg.ConvertTo,
		"bitrate":             m.cfg.Bitrate,
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// Stop shuts down both worker pools, waiting for in-flight jobs to
// return.
func (m *Manager) Stop() {
	m.downloads.Stop()
	m.utility.Stop()
}
