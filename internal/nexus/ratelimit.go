package nexus

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Rate-limit response headers set by the registry.
const (
	headerHourlyLimit     = "hourly-limit"
	headerHourlyRemaining = "hourly-remaining"
	headerDailyLimit      = "daily-limit"
	headerDailyRemaining  = "daily-remaining"
)

const (
	// baseMinDelay paces requests at roughly 10 req/s.
	baseMinDelay = 100 * time.Millisecond
	// throttledMinDelay applies while the hourly quota is nearly spent.
	throttledMinDelay = time.Second
	// lowWater and highWater bound the hysteresis between the two delays.
	lowWater  = 10
	highWater = 100
)

// RateLimit is a snapshot of the most recently observed quota headers.
type RateLimit struct {
	HourlyLimit     int       `json:"hourlyLimit"`
	HourlyRemaining int       `json:"hourlyRemaining"`
	DailyLimit      int       `json:"dailyLimit"`
	DailyRemaining  int       `json:"dailyRemaining"`
	ObservedAt      time.Time `json:"observedAt"`
}

// limiter enforces a process-wide minimum delay between requests and
// adapts it to the observed hourly quota.
type limiter struct {
	mu       sync.RWMutex
	minDelay time.Duration
	next     time.Time

	snapshot    RateLimit
	hasSnapshot bool
}

func newLimiter() *limiter {
	return &limiter{minDelay: baseMinDelay}
}

// wait blocks until this request's pacing slot arrives or ctx is done.
// Slots are handed out under the lock so concurrent callers queue up.
func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.minDelay)
	l.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// observe parses quota headers from a response and adjusts the pacing
// delay: throttle when hourly remaining drops below the low-water mark,
// recover once it climbs past the high-water mark.
func (l *limiter) observe(h http.Header) {
	hourlyLimit, ok1 := headerInt(h, headerHourlyLimit)
	hourlyRemaining, ok2 := headerInt(h, headerHourlyRemaining)
	dailyLimit, _ := headerInt(h, headerDailyLimit)
	dailyRemaining, _ := headerInt(h, headerDailyRemaining)
	if !ok1 && !ok2 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.snapshot = RateLimit{
		HourlyLimit:     hourlyLimit,
		HourlyRemaining: hourlyRemaining,
		DailyLimit:      dailyLimit,
		DailyRemaining:  dailyRemaining,
		ObservedAt:      time.Now(),
	}
	l.hasSnapshot = true

	if ok2 {
		switch {
		case hourlyRemaining < lowWater:
			l.minDelay = throttledMinDelay
		case hourlyRemaining > highWater:
			l.minDelay = baseMinDelay
		}
	}
}

// Snapshot returns a copy of the latest observed quota, if any.
func (l *limiter) Snapshot() (RateLimit, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot, l.hasSnapshot
}

func (l *limiter) currentDelay() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minDelay
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
