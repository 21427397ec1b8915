package watch

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
)

// item identifies one entry in the round-robin sequence I = playlists
// ∪ artists, per §4.8's scheduler algorithm.
type item struct {
	kind string // "playlist" or "artist"
	id   string
}

// Engine is the watch reconciliation engine's background scheduler: a
// single ticker that advances a round-robin index over playlists ∪
// artists, dispatching exactly one item per tick, grounded on
// manager.py's module-level _round_robin_index plus its
// check_watched_playlists/check_watched_artists driving loop
// (generalized here into one merged sequence instead of two separate
// passes, since §4.8 describes a single interleaved round-robin).
type Engine struct {
	reconciler *Reconciler
	store      *Store
	cfg        shared.WatchConfig
	log        *log.Logger

	mu              sync.Mutex
	roundRobinIndex int
	itemLocks       map[string]*sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine constructs an Engine. Call Start to begin ticking.
func NewEngine(reconciler *Reconciler, store *Store, cfg shared.WatchConfig, logger *log.Logger) *Engine {
	return &Engine{
		reconciler: reconciler,
		store:      store,
		cfg:        cfg,
		log:        logger,
		itemLocks:  make(map[string]*sync.Mutex),
	}
}

// Start begins the background ticker. It is a no-op if watch is
// disabled in configuration. Call Stop to halt it.
func (e *Engine) Start(ctx context.Context) {
	if !e.cfg.Enabled {
		e.log.Info("watch: disabled, not starting ticker")
		return
	}
	interval := time.Duration(e.cfg.WatchPollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				e.tick(runCtx)
			}
		}
	}()
}

// Stop halts the ticker and waits for any in-flight tick to finish.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// tick implements one round of §4.8's scheduler: build I, pick the
// next item by round-robin, dispatch it, and return — the caller's
// ticker governs the sleep between ticks.
func (e *Engine) tick(ctx context.Context) {
	items, err := e.buildItems()
	if err != nil {
		e.log.Error("watch: failed to build item list", "err", err)
		return
	}
	if len(items) == 0 {
		return
	}

	e.mu.Lock()
	idx := e.roundRobinIndex % len(items)
	e.roundRobinIndex++
	e.mu.Unlock()

	next := items[idx]
	e.dispatch(ctx, next)
}

func (e *Engine) buildItems() ([]item, error) {
	playlists, err := e.store.Playlists()
	if err != nil {
		return nil, err
	}
	artists, err := e.store.Artists()
	if err != nil {
		return nil, err
	}

	items := make([]item, 0, len(playlists)+len(artists))
	for _, p := range playlists {
		items = append(items, item{kind: "playlist", id: p.ID()})
	}
	for _, a := range artists {
		items = append(items, item{kind: "artist", id: a.ID()})
	}
	return items, nil
}

// dispatch runs the one item's reconciliation routine, serialized
// against any other run for the same item via its per-item lock, per
// §4.8's "concurrency discipline".
func (e *Engine) dispatch(ctx context.Context, it item) {
	lock := e.lockFor(it)
	lock.Lock()
	defer lock.Unlock()

	var err error
	switch it.kind {
	case "playlist":
		err = e.reconciler.ReconcilePlaylist(ctx, it.id)
	case "artist":
		err = e.reconciler.ReconcileArtist(ctx, it.id)
	}
	if err != nil {
		e.log.Error("watch: reconciliation failed", "kind", it.kind, "id", it.id, "err", err)
	}
}

func (e *Engine) lockFor(it item) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := it.kind + ":" + it.id
	l, ok := e.itemLocks[key]
	if !ok {
		l = &sync.Mutex{}
		e.itemLocks[key] = l
	}
	return l
}
