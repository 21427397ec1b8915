package taskstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore is an in-process implementation of [Store] backed by a
// mutex-guarded map, a list map, a sorted-set map, and a pub/sub registry.
// Grounded on the PRG-file JSON-line append pattern and Redis sorted-set
// usage in original_source/routes/utils/{queue,redis_rate_limiter}.py,
// reimplemented without an external dependency (see package doc).
type MemoryStore struct {
	mu     sync.Mutex
	kv     map[string]entry
	lists  map[string][][]byte
	zsets  map[string][]ZMember
	subs   map[string][]chan []byte
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:    make(map[string]entry),
		lists: make(map[string][][]byte),
		zsets: make(map[string][]ZMember),
		subs:  make(map[string][]chan []byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok || e.expired(time.Now()) {
		delete(s.kv, key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.kv[key] = entry{value: cp, expires: exp}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	delete(s.lists, key)
	delete(s.zsets, key)
	return nil
}

func (s *MemoryStore) ListAppend(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.lists[key] = append(s.lists[key], cp)
	return nil
}

func (s *MemoryStore) ListRange(_ context.Context, key string, start, stop int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.lists[key]
	n := len(items)
	if n == 0 {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, items[i])
	}
	return out, nil
}

func (s *MemoryStore) ListLen(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[key]), nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if e, ok := s.kv[key]; ok && !e.expired(time.Now()) {
		cur, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	cur++
	s.kv[key] = entry{value: []byte(strconv.FormatInt(cur, 10))}
	return cur, nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, member ZMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zsets[key] = append(s.zsets[key], member)
	return nil
}

func (s *MemoryStore) ZRemRangeByScore(_ context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.zsets[key][:0]
	for _, m := range s.zsets[key] {
		if m.Score < min || m.Score > max {
			kept = append(kept, m)
		}
	}
	s.zsets[key] = kept
	return nil
}

func (s *MemoryStore) ZCount(_ context.Context, key string, min, max float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.zsets[key] {
		if m.Score >= min && m.Score <= max {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ZMinScore(_ context.Context, key string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.zsets[key]
	if len(members) == 0 {
		return 0, false
	}
	min := members[0].Score
	for _, m := range members[1:] {
		if m.Score < min {
			min = m.Score
		}
	}
	return min, true
}

func (s *MemoryStore) ZMinScoreInRange(_ context.Context, key string, min, max float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  float64
		found bool
	)
	for _, m := range s.zsets[key] {
		if m.Score < min || m.Score > max {
			continue
		}
		if !found || m.Score < best {
			best = m.Score
			found = true
		}
	}
	return best, found
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var out []string
	for k, e := range s.kv {
		if e.expired(now) {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Publish(_ context.Context, channel string, value []byte) {
	s.mu.Lock()
	subs := append([]chan []byte(nil), s.subs[channel]...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- value:
		default:
		}
	}
}

func (s *MemoryStore) Subscribe(_ context.Context, channel string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	s.mu.Lock()
	s.subs[channel] = append(s.subs[channel], ch)
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[channel]
		for i, c := range subs {
			if c == ch {
				s.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}
