package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/history"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

// Worker implements scheduler.Executor: one instance is shared across
// every job a pool dispatches to it, mirroring internal/tasks.tasks.go's
// stateless-engine-over-a-shared-client shape generalized from
// playlist-transfer operations to the download state machine of
// spec.md §4.5–§4.6.
type Worker struct {
	tasks   *taskstore.TaskLog
	history *history.Store
	fetch   FetchLibrary
	cfg     shared.SchedulerConfig
	log     *log.Logger
}

// New constructs a Worker wired to the shared task log, history store,
// and fetch library.
func New(store taskstore.Store, historyStore *history.Store, fetch FetchLibrary, cfg shared.SchedulerConfig, logger *log.Logger) *Worker {
	return &Worker{
		tasks:   taskstore.NewTaskLog(store),
		history: historyStore,
		fetch:   fetch,
		cfg:     cfg,
		log:     logger,
	}
}

// Execute drives task through the state machine in spec.md §4.2's
// execution contract.
func (w *Worker) Execute(ctx context.Context, task *models.Task) error {
	if _, err := w.tasks.Append(ctx, task.TaskID, models.StatusProcessing, "", nil); err != nil {
		return fmt.Errorf("worker: append processing status: %w", err)
	}

	isParentKind := task.Kind == models.KindAlbum || task.Kind == models.KindPlaylist
	if isParentKind {
		childTable := childTableName(task.Kind)
		if err := w.history.EnsureChildTable(childTable); err != nil {
			w.log.Warn("worker: failed to create child table", "task_id", task.TaskID, "err", err)
		} else {
			task.ChildrenTable = childTable
			if err := w.tasks.PutInfo(ctx, task); err != nil {
				w.log.Warn("worker: failed to persist children_table", "task_id", task.TaskID, "err", err)
			}
		}
	}

	state := &progressState{}
	opts := w.buildOptions(task)

	err := w.fetch.Download(ctx, opts, func(ev FetchEvent) {
		w.handleEvent(ctx, task, state, ev)
	})
	if err != nil {
		retryCount := task.RetryCount
		maxRetries := w.cfg.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 3
		}
		payload := map[string]any{
			"can_retry":   retryCount < maxRetries,
			"retry_count": retryCount,
			"max_retries": maxRetries,
		}
		if _, appendErr := w.tasks.Append(ctx, task.TaskID, models.StatusError, err.Error(), payload); appendErr != nil {
			w.log.Warn("worker: failed to append terminal error status", "task_id", task.TaskID, "err", appendErr)
		}
		return err
	}
	return nil
}

func (w *Worker) buildOptions(task *models.Task) FetchOptions {
	service, _ := task.Parameters["service"].(string)
	if service == "" {
		service = w.cfg.Service
	}
	quality, _ := task.Parameters["spotify_quality"].(string)
	if service == "deezer" {
		if q, ok := task.Parameters["deezer_quality"].(string); ok {
			quality = q
		}
	}
	fallback, _ := task.Parameters["fallback"].(bool)
	realTime, _ := task.Parameters["real_time"].(bool)
	dirFormat, _ := task.Parameters["custom_dir_format"].(string)
	trackFormat, _ := task.Parameters["custom_track_format"].(string)
	padding, _ := task.Parameters["tracknum_padding"].(bool)
	padWidth, _ := task.Parameters["pad_number_width"].(int)
	convertTo, _ := task.Parameters["convert_to"].(string)
	bitrate, _ := task.Parameters["bitrate"].(string)

	return FetchOptions{
		Kind: task.Kind, SourceURL: task.SourceURL, Service: service, Quality: quality,
		Fallback: fallback, RealTime: realTime, DirFormat: dirFormat, TrackFormat: trackFormat,
		TracknumPadding: padding, PadNumberWidth: padWidth, ConvertTo: convertTo, Bitrate: bitrate,
	}
}

// handleEvent normalizes one fetch-library progress event into the
// append-only status log and, for terminal events, a history write, per
// spec.md §4.6.
func (w *Worker) handleEvent(ctx context.Context, task *models.Task, state *progressState, ev FetchEvent) {
	isParentKind := task.Kind == models.KindAlbum || task.Kind == models.KindPlaylist

	switch ev.Kind {
	case EventInitializing:
		state.totalTracks = ev.TotalTracks
		w.append(ctx, task.TaskID, models.StatusInitializing, ev.Message, map[string]any{
			"display_name": ev.DisplayName, "total_tracks": ev.TotalTracks,
		})

	case EventDownloading:
		state.currentTrackNum++
		payload := map[string]any{"current_track_num": state.currentTrackNum}
		if isParentKind && state.totalTracks > 0 {
			payload["overall_progress"] = overallProgress(state.currentTrackNum, state.totalTracks)
		}
		w.append(ctx, task.TaskID, models.StatusDownloading, ev.Message, payload)

	case EventProgress:
		payload := map[string]any{}
		if cur, total, ok := parseFraction(ev.CurrentTrack); ok {
			payload["parsed_current_track"] = cur
			payload["parsed_total_tracks"] = total
			payload["overall_progress"] = overallProgress(cur, total)
		}
		w.append(ctx, task.TaskID, models.StatusProgress, ev.Message, payload)

	case EventRealTime, EventTrackProgress:
		payload := map[string]any{"percent": normalizePercent(ev.Percent)}
		now := time.Now()
		if !state.lastByteUpdate.IsZero() && ev.BytesDownloaded > state.lastBytes {
			if rate := downloadRate(ev.BytesDownloaded-state.lastBytes, now.Sub(state.lastByteUpdate)); rate != "" {
				payload["rate"] = rate
			}
		}
		state.lastByteUpdate, state.lastBytes = now, ev.BytesDownloaded
		status := models.StatusRealTime
		if ev.Kind == EventTrackProgress {
			status = models.StatusTrackProgress
		}
		w.append(ctx, task.TaskID, status, ev.Message, payload)

	case EventSkipped:
		state.skippedTracks++
		payload := map[string]any{"skipped_tracks": state.skippedTracks, "reason": ev.SkipReason}
		if isParentKind {
			payload["track_skipped"] = true
		}
		w.append(ctx, task.TaskID, models.StatusSkipped, ev.SkipReason, payload)
		if ev.Track != nil && task.ChildrenTable != "" {
			row := *ev.Track
			row.Status = string(models.StatusSkipped)
			row.Timestamp = time.Now()
			if err := w.history.AppendChildRow(task.ChildrenTable, row); err != nil {
				w.log.Warn("worker: failed to append skipped child row", "task_id", task.TaskID, "err", err)
			}
		}

	case EventRetrying:
		state.retryCount++
		w.append(ctx, task.TaskID, models.StatusRetrying, ev.RetryReason, map[string]any{
			"retry_count": state.retryCount, "seconds_left": ev.SecondsLeft, "error": ev.RetryReason,
		})

	case EventError:
		state.errorCount++
		w.append(ctx, task.TaskID, models.StatusError, ev.Message, map[string]any{"error_count": state.errorCount})

	case EventDone:
		if ev.Scope == ScopeTrack && isParentKind {
			w.handleTrackDone(ctx, task, state, ev)
			return
		}
		w.handleParentDone(ctx, task, state, ev)
	}
}

func (w *Worker) handleTrackDone(ctx context.Context, task *models.Task, state *progressState, ev FetchEvent) {
	state.completedTracks++
	if ev.Track != nil && task.ChildrenTable != "" {
		row := *ev.Track
		if row.Status == "" {
			row.Status = string(models.StatusComplete)
		}
		row.Timestamp = time.Now()
		if err := w.history.AppendChildRow(task.ChildrenTable, row); err != nil {
			w.log.Warn("worker: failed to append completed child row", "task_id", task.TaskID, "err", err)
		}
	}
	payload := map[string]any{"completed_tracks": state.completedTracks}
	if state.totalTracks > 0 {
		payload["overall_progress"] = overallProgress(state.completedTracks, state.totalTracks)
	}
	w.append(ctx, task.TaskID, models.StatusTrackComplete, ev.Message, payload)
}

func (w *Worker) handleParentDone(ctx context.Context, task *models.Task, state *progressState, ev FetchEvent) {
	if ev.Track != nil {
		state.completedTracks++
		if task.ChildrenTable != "" {
			row := *ev.Track
			if row.Status == "" {
				row.Status = string(models.StatusComplete)
			}
			row.Timestamp = time.Now()
			if err := w.history.AppendChildRow(task.ChildrenTable, row); err != nil {
				w.log.Warn("worker: failed to append completed child row", "task_id", task.TaskID, "err", err)
			}
		}
	}

	summary := map[string]any{
		"total_tracks":      state.totalTracks,
		"completed_tracks":  state.completedTracks,
		"skipped_tracks":    state.skippedTracks,
		"error_count":       state.errorCount,
	}
	w.append(ctx, task.TaskID, models.StatusComplete, ev.Message, summary)
	w.finalizeHistory(task, state)
}

func (w *Worker) finalizeHistory(task *models.Task, state *progressState) {
	service, _ := task.Parameters["service"].(string)
	h := models.NewDownloadHistory(task.TaskID, task.Kind, task.Display.Name, task.Display.Artist, service)
	h.SetStatus(string(models.StatusComplete))
	h.SetTotalTracks(state.totalTracks)
	failed := state.errorCount
	h.SetSummary(state.completedTracks, failed, state.skippedTracks)
	if task.ChildrenTable != "" {
		h.SetChildrenTable(task.ChildrenTable)
	}
	if err := w.history.Upsert(h); err != nil {
		w.log.Warn("worker: failed to finalize history row", "task_id", task.TaskID, "err", err)
	}
}

func (w *Worker) append(ctx context.Context, taskID string, status models.Status, message string, payload map[string]any) {
	if _, err := w.tasks.Append(ctx, taskID, status, message, payload); err != nil {
		w.log.Debug("worker: status append rejected", "task_id", taskID, "status", status, "err", err)
	}
}

// childTableName generates a fresh album_* / playlist_* child table name,
// per spec.md §6's "album_{uuid10} or playlist_{uuid10}" naming.
func childTableName(kind models.Kind) string {
	id := strings.ReplaceAll(shared.GenerateID(), "-", "")
	return fmt.Sprintf("%s_%s", kind, id[:10])
}
