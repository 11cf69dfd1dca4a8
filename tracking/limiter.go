package tracking

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultReadWindow      = 30 * time.Second
	DefaultCleanupInterval = 60 * time.Second

	// UnknownIdentifier buckets readers that have neither a user id nor an address.
	UnknownIdentifier = "unknown"
)

// Identifier picks the rate-limit identity for a read: the authenticated user
// id when present, otherwise the fallback (usually the client IP), otherwise
// the shared "unknown" bucket.
func Identifier(userID, fallback string) string {
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	if fb := strings.TrimSpace(fallback); fb != "" {
		return fb
	}
	return UnknownIdentifier
}

// ReadLimiter decides whether a read of an article by an identity should be
// recorded. A pair is accepted at most once per window; denials never move
// the window forward.
type ReadLimiter struct {
	window   time.Duration
	interval time.Duration

	mu   sync.Mutex
	seen map[string]time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	started  bool
}

// NewReadLimiter builds a limiter. Non-positive arguments fall back to the defaults.
func NewReadLimiter(window, cleanupInterval time.Duration) *ReadLimiter {
	if window <= 0 {
		window = DefaultReadWindow
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &ReadLimiter{
		window:   window,
		interval: cleanupInterval,
		seen:     make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func key(identifier, articleID string) string {
	return identifier + ":" + articleID
}

// ShouldLog reports whether the (identifier, articleID) pair may emit a read
// event at now, and records now as the last accepted time when it may.
func (l *ReadLimiter) ShouldLog(identifier, articleID string, now time.Time) bool {
	k := key(identifier, articleID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.seen[k]; ok && now.Sub(last) < l.window {
		return false
	}
	l.seen[k] = now
	return true
}

// Sweep evicts every entry older than the window and returns how many were removed.
func (l *ReadLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, last := range l.seen {
		if now.Sub(last) > l.window {
			delete(l.seen, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked pairs.
func (l *ReadLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Start launches the background reaper. Calling it more than once is a no-op.
func (l *ReadLimiter) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case now := <-ticker.C:
				l.Sweep(now)
			}
		}
	}()
}

// Stop halts the reaper and waits for it to exit. It is safe to call more than once,
// and safe to call without Start.
func (l *ReadLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		l.mu.Lock()
		started := l.started
		l.mu.Unlock()
		if started {
			<-l.done
		}
	})
}
