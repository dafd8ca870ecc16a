package nexus

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotaHeaders(hourlyRemaining string) http.Header {
	h := http.Header{}
	h.Set(headerHourlyLimit, "500")
	h.Set(headerHourlyRemaining, hourlyRemaining)
	h.Set(headerDailyLimit, "10000")
	h.Set(headerDailyRemaining, "9000")
	return h
}

func TestLimiter_SnapshotEmptyUntilObserved(t *testing.T) {
	l := newLimiter()

	_, ok := l.Snapshot()
	assert.False(t, ok)

	l.observe(quotaHeaders("342"))

	rl, ok := l.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 342, rl.HourlyRemaining)
	assert.Equal(t, 500, rl.HourlyLimit)
}

func TestLimiter_IgnoresResponsesWithoutQuotaHeaders(t *testing.T) {
	l := newLimiter()
	l.observe(http.Header{})

	_, ok := l.Snapshot()
	assert.False(t, ok)
}

func TestLimiter_ThrottleHysteresis(t *testing.T) {
	l := newLimiter()
	assert.Equal(t, baseMinDelay, l.currentDelay())

	// Quota nearly spent: throttle.
	l.observe(quotaHeaders("5"))
	assert.Equal(t, throttledMinDelay, l.currentDelay())

	// Between the water marks: hold the throttled delay.
	l.observe(quotaHeaders("50"))
	assert.Equal(t, throttledMinDelay, l.currentDelay())

	// Quota recovered: back to the base delay.
	l.observe(quotaHeaders("200"))
	assert.Equal(t, baseMinDelay, l.currentDelay())
}

func TestLimiter_WaitPacesConsecutiveCalls(t *testing.T) {
	l := newLimiter()
	l.minDelay = 30 * time.Millisecond

	ctx := context.Background()
	start := time.Now()
	require.NoError(t, l.wait(ctx))
	require.NoError(t, l.wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	l := newLimiter()
	l.minDelay = time.Minute

	ctx := context.Background()
	require.NoError(t, l.wait(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, l.wait(cancelled), context.Canceled)
}

func TestHeaderInt(t *testing.T) {
	h := http.Header{}
	h.Set("hourly-remaining", "42")
	h.Set("daily-remaining", "not-a-number")

	n, ok := headerInt(h, "hourly-remaining")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = headerInt(h, "daily-remaining")
	assert.False(t, ok)

	_, ok = headerInt(h, "missing")
	assert.False(t, ok)
}
