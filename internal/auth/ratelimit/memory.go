package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type window struct {
	count   atomic.Int64
	expires int64 // unix nanos, immutable once published
}

// Memory is a process-local CounterStore. Each key holds an immutable window
// whose counter is bumped atomically; an expired window is swapped for a new
// one with CompareAndSwap so exactly one racer starts the next window.
type Memory struct {
	windows sync.Map // map[string]*window
	now     func() time.Time
}

// NewMemory returns an empty store. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now}
}

func (m *Memory) IncrWindow(_ context.Context, key string, win time.Duration) (int64, time.Duration, error) {
	for {
		now := m.now().UnixNano()

		v, ok := m.windows.Load(key)
		if !ok {
			fresh := &window{expires: now + int64(win)}
			fresh.count.Store(1)
			if _, loaded := m.windows.LoadOrStore(key, fresh); loaded {
				continue
			}
			return 1, win, nil
		}

		w := v.(*window)
		if now >= w.expires {
			fresh := &window{expires: now + int64(win)}
			fresh.count.Store(1)
			if !m.windows.CompareAndSwap(key, w, fresh) {
				continue
			}
			return 1, win, nil
		}

		return w.count.Add(1), time.Duration(w.expires - now), nil
	}
}

// Sweep drops expired windows and reports how many were removed.
func (m *Memory) Sweep(now time.Time) int {
	removed := 0
	m.windows.Range(func(key, value any) bool {
		if now.UnixNano() >= value.(*window).expires && m.windows.CompareAndDelete(key, value) {
			removed++
		}
		return true
	})
	return removed
}
