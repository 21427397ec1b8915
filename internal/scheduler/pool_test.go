package scheduler

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	p := newPool("test", 2, log.New(io.Discard))
	defer p.Stop()

	var count int32
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		p.Submit(job{taskID: "t", run: func(ctx context.Context) {
			atomic.AddInt32(&count, 1)
			wg.Done()
		}}, 0)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}
	if atomic.LoadInt32(&count) != 5 {
		t.Errorf("expected 5 jobs run, got %d", count)
	}
}

func TestPoolResizeSetsConcurrencyAndRunsJobs(t *testing.T) {
	p := newPool("test", 1, log.New(io.Discard))
	defer p.Stop()

	p.Resize(4)
	if got := p.Concurrency(); got != 4 {
		t.Errorf("expected concurrency 4, got %d", got)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(job{taskID: "t", run: func(ctx context.Context) { wg.Done() }}, 0)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job submitted after resize did not run")
	}
}

func TestPoolSubmitDelaysDispatch(t *testing.T) {
	p := newPool("test", 1, log.New(io.Discard))
	defer p.Stop()

	start := time.Now()
	ran := make(chan time.Time, 1)
	p.Submit(job{taskID: "t", run: func(ctx context.Context) { ran <- time.Now() }}, 80*time.Millisecond)

	select {
	case at := <-ran:
		if at.Sub(start) < 60*time.Millisecond {
			t.Errorf("expected job to run after its delay, ran after %v", at.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("delayed job never ran")
	}
}
