package taskstore

import (
	"context"
	"fmt"
	"time"
)

// ZMember is one entry of a sorted set: a unique member string ranked by
// score. The rate limiter uses this to hold permit timestamps, appending a
// random suffix to the member so identical scores never collide (spec.md
// §4.3 invariant).
type ZMember struct {
	Member string
	Score  float64
}

// Store is the coordination store's wire contract (SPEC_FULL.md §6).
type Store interface {
	// Get returns the raw bytes stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key with an optional ttl (zero means no expiry).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key if present; a no-op if absent.
	Delete(ctx context.Context, key string) error

	// ListAppend pushes value to the right of the list at key.
	ListAppend(ctx context.Context, key string, value []byte) error
	// ListRange returns entries [start, stop] inclusive (stop=-1 means to the
	// end), mirroring Redis LRANGE semantics used by the original system.
	ListRange(ctx context.Context, key string, start, stop int) ([][]byte, error)
	// ListLen returns the number of entries in the list at key.
	ListLen(ctx context.Context, key string) (int, error)

	// Incr atomically increments the integer stored at key (treating an
	// absent key as 0) and returns the new value. Used for the per-task
	// status_id counter.
	Incr(ctx context.Context, key string) (int64, error)

	// ZAdd adds member to the sorted set at key.
	ZAdd(ctx context.Context, key string, member ZMember) error
	// ZRemRangeByScore removes members with score in [min, max].
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	// ZCount counts members with score in [min, max].
	ZCount(ctx context.Context, key string, min, max float64) (int, error)
	// ZMinScore returns the lowest score present, or ok=false if empty.
	ZMinScore(ctx context.Context, key string) (score float64, ok bool)
	// ZMinScoreInRange returns the lowest score in [min, max], or ok=false
	// if no member falls in that range.
	ZMinScoreInRange(ctx context.Context, key string, min, max float64) (score float64, ok bool)

	// Keys returns all keys matching a literal prefix. Used by SQM.List to
	// enumerate task-info keys.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Publish fans value out to all current subscribers of channel.
	Publish(ctx context.Context, channel string, value []byte)
	// Subscribe returns a channel of published values and an unsubscribe
	// function. The returned channel is closed by unsubscribe.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func())
}

// ErrNotFound is returned by Get when key is absent or expired.
var ErrNotFound = fmt.Errorf("taskstore: key not found")
