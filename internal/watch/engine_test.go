package watch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

func setupEngine(t *testing.T, cfg shared.WatchConfig) (*Engine, *Store, *stubMetadata, *stubSubmitter) {
	t.Helper()
	store := setupStore(t)
	md := &stubMetadata{}
	sub := &stubSubmitter{}
	r := testReconciler(t, store, md, sub)
	e := NewEngine(r, store, cfg, log.New(io.Discard))
	return e, store, md, sub
}

func TestEngineBuildItemsMergesPlaylistsAndArtistsInOrder(t *testing.T) {
	e, store, _, _ := setupEngine(t, shared.WatchConfig{Enabled: true})

	if err := store.AddPlaylist(models.NewWatchedPlaylist("pl1", "Mix", "", "")); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}
	if err := store.AddArtist(models.NewWatchedArtist("ar1", "Someone")); err != nil {
		t.Fatalf("AddArtist: %v", err)
	}

	items, err := e.buildItems()
	if err != nil {
		t.Fatalf("buildItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].kind != "playlist" || items[0].id != "pl1" {
		t.Errorf("expected playlist first, got %+v", items[0])
	}
	if items[1].kind != "artist" || items[1].id != "ar1" {
		t.Errorf("expected artist second, got %+v", items[1])
	}
}

func TestEngineTickAdvancesRoundRobinAcrossItems(t *testing.T) {
	e, store, _, _ := setupEngine(t, shared.WatchConfig{Enabled: true})
	for _, id := range []string{"p1", "p2"} {
		if err := store.AddPlaylist(models.NewWatchedPlaylist(id, id, "", "")); err != nil {
			t.Fatalf("AddPlaylist %s: %v", id, err)
		}
	}

	ctx := context.Background()
	e.tick(ctx)
	first := e.roundRobinIndex
	e.tick(ctx)
	second := e.roundRobinIndex

	if first != 1 || second != 2 {
		t.Errorf("expected round-robin index to advance 0->1->2, got %d then %d", first, second)
	}
}

func TestEngineLockForSerializesSameItem(t *testing.T) {
	e, _, _, _ := setupEngine(t, shared.WatchConfig{Enabled: true})
	it := item{kind: "playlist", id: "pl1"}

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	run := func() {
		defer wg.Done()
		lock := e.lockFor(it)
		lock.Lock()
		defer lock.Unlock()

		n := atomic.AddInt32(&active, 1)
		if n > atomic.LoadInt32(&maxActive) {
			atomic.StoreInt32(&maxActive, n)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	wg.Add(5)
	for i := 0; i < 5; i++ {
		go run()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected per-item lock to serialize concurrent dispatches, max concurrent was %d", maxActive)
	}
}

func TestEngineLockForIsPerItem(t *testing.T) {
	e, _, _, _ := setupEngine(t, shared.WatchConfig{Enabled: true})
	a := e.lockFor(item{kind: "playlist", id: "pl1"})
	b := e.lockFor(item{kind: "playlist", id: "pl2"})
	c := e.lockFor(item{kind: "artist", id: "pl1"})

	if a == b {
		t.Error("expected distinct locks for distinct playlist ids")
	}
	if a == c {
		t.Error("expected distinct locks across kinds even with the same id")
	}

	again := e.lockFor(item{kind: "playlist", id: "pl1"})
	if a != again {
		t.Error("expected lockFor to return the same mutex instance for the same item")
	}
}

func TestEngineStartDisabledIsNoop(t *testing.T) {
	e, _, _, _ := setupEngine(t, shared.WatchConfig{Enabled: false})
	e.Start(context.Background())
	if e.cancel != nil {
		t.Error("expected Start to be a no-op when watch is disabled")
	}
	e.Stop()
}

func TestEngineStartStopLifecycle(t *testing.T) {
	e, store, _, sub := setupEngine(t, shared.WatchConfig{Enabled: true, WatchPollIntervalSeconds: 0})
	if err := store.AddPlaylist(models.NewWatchedPlaylist("pl1", "Mix", "", "")); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	e.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	e.Stop()

	select {
	case <-e.done:
	default:
		t.Error("expected done channel to be closed after Stop")
	}
	_ = sub
}
