package handlers

import (
	"strings"
	"sync"
	"time"
)

// pruneThreshold is the number of tracked users above which expired windows are swept.
const pruneThreshold = 1024

// windowLimiter admits at most limit calls per user within a fixed window. State is per process.
type windowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]userWindow
}

type userWindow struct {
	used    int
	resetAt time.Time
}

func newWindowLimiter(limit int, window time.Duration, clock func() time.Time) *windowLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]userWindow),
	}
}

// Allow records a call for uid. When the window is exhausted it reports how long until it resets.
func (l *windowLimiter) Allow(uid string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	uid = strings.TrimSpace(uid)
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, tracked := l.windows[uid]
	if !tracked || !now.Before(current.resetAt) {
		if len(l.windows) >= pruneThreshold {
			l.sweep(now)
		}
		l.windows[uid] = userWindow{used: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	if current.used >= l.limit {
		return false, current.resetAt.Sub(now)
	}
	current.used++
	l.windows[uid] = current
	return true, 0
}

func (l *windowLimiter) sweep(now time.Time) {
	for uid, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, uid)
		}
	}
}
