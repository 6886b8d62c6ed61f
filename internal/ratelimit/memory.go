package ratelimit

import (
	"context"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// MemoryLimiter keeps a sliding log of accepted request times per key in
// process memory. A key never has more than Limit accepts inside any span
// of Window.
type MemoryLimiter struct {
	mu          sync.Mutex
	entries     map[string]*logEntry
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type logEntry struct {
	accepted []time.Time
	window   time.Duration
}

func NewMemoryLimiter() *MemoryLimiter {
	m := newMemoryLimiter(time.Now)
	go m.cleanupLoop()
	return m
}

func newMemoryLimiter(now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		entries:     make(map[string]*logEntry),
		now:         now,
		stopCleanup: make(chan struct{}),
	}
}

// Allow records now for key when fewer than rule.Limit accepts fall inside
// the trailing rule.Window. Rejections are not recorded.
func (m *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	if rule.Disabled() {
		return Decision{Allowed: true}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok {
		entry = &logEntry{window: rule.Window}
		m.entries[key] = entry
	}
	entry.window = rule.Window
	entry.prune(now)

	if len(entry.accepted) >= rule.Limit {
		return Decision{Allowed: false, RetryAfter: entry.accepted[0].Add(rule.Window).Sub(now)}, nil
	}
	entry.accepted = append(entry.accepted, now)
	return Decision{Allowed: true}, nil
}

// prune drops accepts that are a full window or more in the past.
func (e *logEntry) prune(now time.Time) {
	cutoff := now.Add(-e.window)
	i := 0
	for i < len(e.accepted) && !e.accepted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.accepted = append(e.accepted[:0], e.accepted[i:]...)
	}
}

func (m *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup drops keys whose log has fully expired.
func (m *MemoryLimiter) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		entry.prune(now)
		if len(entry.accepted) == 0 {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
	return nil
}
