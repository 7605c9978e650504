package revocation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is a process-local Store. Lookups and inserts touch a single map
// entry; Sweep deletes one entry at a time so it never holds up callers.
type Memory struct {
	entries sync.Map // map[string]time.Time
	size    atomic.Int64
	now     func() time.Time
}

// NewMemory returns an empty in-process blacklist. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, naturalExpiry time.Time) error {
	if tokenID == "" || !naturalExpiry.After(m.now()) {
		return nil // already unusable by expiry
	}

	for {
		prev, loaded := m.entries.LoadOrStore(tokenID, naturalExpiry)
		if !loaded {
			m.size.Add(1)
			return nil
		}
		if !naturalExpiry.After(prev.(time.Time)) {
			return nil
		}
		if m.entries.CompareAndSwap(tokenID, prev, naturalExpiry) {
			return nil
		}
	}
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	v, ok := m.entries.Load(tokenID)
	if !ok {
		return false, nil
	}
	return v.(time.Time).After(m.now()), nil
}

func (m *Memory) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	m.entries.Range(func(key, value any) bool {
		if value.(time.Time).After(now) {
			return true
		}
		if m.entries.CompareAndDelete(key, value) {
			m.size.Add(-1)
			removed++
		}
		return true
	})
	return removed, nil
}

func (m *Memory) Len() int { return int(m.size.Load()) }
