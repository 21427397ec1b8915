package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// job is one unit of work handed to a pool: a task id plus the closure
// the pool must run for it. Deferred submission (retry backoff, or the
// paused-queue behavior in §4.1) is modeled by delaying the send onto
// the jobs channel rather than by the pool itself, so a resized or
// restarted pool never loses a delayed job.
type job struct {
	taskID string
	run    func(ctx context.Context)
}

// pool is a named, independently resizable worker pool, grounded on
// internal/tasks/bulk_export.go's jobs-channel + sync.WaitGroup shape,
// generalized so the pool can be resized in place: Resize cancels the
// current generation of workers and starts a fresh one at the new
// concurrency without losing anything still sitting in the jobs channel.
type pool struct {
	name string
	log  *log.Logger

	mu     sync.Mutex
	jobs   chan job
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	n      int
}

func newPool(name string, concurrency int, logger *log.Logger) *pool {
	p := &pool{name: name, log: logger, jobs: make(chan job, 4096)}
	p.Resize(concurrency)
	return p
}

// Resize stops the pool's current worker goroutines and starts n fresh
// ones reading from the same jobs channel, per spec.md §5's "restart only
// the downloads pool with the new concurrency" reconfiguration path. The
// context it cancels is also the one handed to any job a worker is
// running, so in-flight jobs see cancellation; Resize waits for them to
// return before starting the new workers.
func (p *pool) Resize(n int) {
	if n <= 0 {
		n = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	p.cancel = cancel
	p.wg = wg
	p.n = n

	for i := 0; i < n; i++ {
		wg.Add(1)
		go p.worker(ctx, wg)
	}
	p.log.Debug("pool resized", "pool", p.name, "concurrency", n)
}

func (p *pool) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			j.run(ctx)
		}
	}
}

// Submit enqueues j, deferring the send by delay (zero for immediate
// dispatch). A delayed submission spawns a short-lived goroutine so
// Submit itself never blocks the caller.
func (p *pool) Submit(j job, delay time.Duration) {
	if delay <= 0 {
		p.jobs <- j
		return
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		<-timer.C
		p.jobs <- j
	}()
}

// Concurrency returns the pool's current worker count.
func (p *pool) Concurrency() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Stop cancels every worker goroutine and waits for them to exit.
func (p *pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
}
