package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

// recordingExecutor is a minimal Executor double that records every task
// it was asked to run and optionally blocks until released, letting tests
// exercise cancellation of an in-flight job.
type recordingExecutor struct {
	mu      sync.Mutex
	ran     []string
	block   chan struct{}
	onBlock func(ctx context.Context, task *models.Task)
}

func (e *recordingExecutor) Execute(ctx context.Context, task *models.Task) error {
	e.mu.Lock()
	e.ran = append(e.ran, task.TaskID)
	e.mu.Unlock()

	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *recordingExecutor) ranIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.ran))
	copy(out, e.ran)
	return out
}

func testConfig() shared.SchedulerConfig {
	return shared.SchedulerConfig{
		MaxConcurrentDownloads: 2,
		UtilityPoolConcurrency: 1,
		MaxRetries:             3,
		RetryDelaySeconds:      0,
		RetryDelayIncrease:     0,
		Service:                "spotify",
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManagerSubmitDispatchesToExecutor(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	taskID, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitForCondition(t, time.Second, func() bool {
		for _, id := range exec.ranIDs() {
			if id == taskID {
				return true
			}
		}
		return false
	})
}

func TestManagerSubmitRejectsDuplicateNonTerminal(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{block: make(chan struct{})}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()
	defer close(exec.block)

	first, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/1"})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err = m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/1/"})
	if !errors.Is(err, shared.ErrDuplicateDownload) {
		t.Fatalf("expected ErrDuplicateDownload for equivalent url, got %v", err)
	}
	_ = first
}

func TestManagerArtistSubmissionDoesNotDispatch(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	_, err := m.Submit(ctx, SubmitRequest{Kind: models.KindArtist, SourceURL: "https://open.spotify.com/artist/1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if len(exec.ranIDs()) != 0 {
		t.Errorf("expected artist submission not to dispatch a job, got %v", exec.ranIDs())
	}
}

func TestManagerCancelStopsRunningJob(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{block: make(chan struct{})}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	taskID, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/2"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForCondition(t, time.Second, func() bool {
		for _, id := range exec.ranIDs() {
			if id == taskID {
				return true
			}
		}
		return false
	})

	if err := m.Cancel(ctx, taskID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	last, err := m.tasks.Last(ctx, taskID)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Status != models.StatusCancelled {
		t.Errorf("expected CANCELLED status, got %s", last.Status)
	}
}

func TestManagerCancelUnknownTaskIsNoop(t *testing.T) {
	m := New(taskstore.NewMemoryStore(), testConfig(), &recordingExecutor{}, log.New(io.Discard))
	defer m.Stop()
	if err := m.Cancel(context.Background(), "nonexistent"); err != nil {
		t.Errorf("expected Cancel on unknown task to be a no-op, got %v", err)
	}
}

func TestManagerRetryRequiresErrorStatus(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	taskID, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/3"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := m.Retry(ctx, taskID); !errors.Is(err, shared.ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable while task is still QUEUED, got %v", err)
	}

	if _, err := m.tasks.Append(ctx, taskID, models.StatusError, "boom", nil); err != nil {
		t.Fatalf("append error status: %v", err)
	}

	newID, err := m.Retry(ctx, taskID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if newID == taskID {
		t.Error("expected retry to allocate a new task id")
	}

	retried, err := m.tasks.GetInfo(ctx, newID)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if retried.RetryOf != taskID || retried.RetryCount != 1 {
		t.Errorf("expected retry lineage, got retry_of=%s retry_count=%d", retried.RetryOf, retried.RetryCount)
	}
}

func TestManagerPauseDefersDispatchUntilResume(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	m.Pause()
	taskID, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if len(exec.ranIDs()) != 0 {
		t.Fatal("expected no dispatch while paused")
	}

	m.Resume()
	waitForCondition(t, time.Second, func() bool {
		for _, id := range exec.ranIDs() {
			if id == taskID {
				return true
			}
		}
		return false
	})
}

func TestManagerList(t *testing.T) {
	ctx := context.Background()
	exec := &recordingExecutor{}
	m := New(taskstore.NewMemoryStore(), testConfig(), exec, log.New(io.Discard))
	defer m.Stop()

	if _, err := m.Submit(ctx, SubmitRequest{Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/5"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitForCondition(t, time.Second, func() bool {
		summaries, err := m.List(ctx)
		return err == nil && len(summaries) == 1
	})
}
