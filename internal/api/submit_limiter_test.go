package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitLimiterWindow(t *testing.T) {
	t.Parallel()

	limiter := newSubmitLimiter(1, time.Hour)
	now := time.Now().UTC()

	_, ok := limiter.reserve("127.0.0.1", now.Add(-2*time.Hour))
	require.True(t, ok)
	_, ok = limiter.reserve("127.0.0.1", now)
	require.True(t, ok, "slots older than the window no longer count")

	_, ok = limiter.reserve("127.0.0.1", now.Add(time.Minute))
	require.False(t, ok, "one recent slot hits limit 1")
	_, ok = limiter.reserve("10.0.0.2", now)
	require.True(t, ok, "other clients keep their own window")
	_, ok = limiter.reserve("127.0.0.1", now.Add(2*time.Hour))
	require.True(t, ok, "slots expire once the window has passed")
}

func TestSubmitLimiterReleaseReturnsTheSlot(t *testing.T) {
	t.Parallel()

	limiter := newSubmitLimiter(2, time.Hour)
	now := time.Now().UTC()

	keep, ok := limiter.reserve("visitor", now)
	require.True(t, ok)
	release, ok := limiter.reserve("visitor", now)
	require.True(t, ok)
	_, ok = limiter.reserve("visitor", now)
	require.False(t, ok)

	release()
	release()
	_, ok = limiter.reserve("visitor", now)
	require.True(t, ok, "a released slot can be taken again")
	_, ok = limiter.reserve("visitor", now)
	require.False(t, ok, "double release frees only one slot")

	keep()
	limiter.mu.Lock()
	require.Len(t, limiter.slots["visitor"], 1)
	limiter.mu.Unlock()
}

func TestSubmitLimiterForgetsEmptyClients(t *testing.T) {
	t.Parallel()

	limiter := newSubmitLimiter(1, time.Minute)
	now := time.Now().UTC()

	release, ok := limiter.reserve("visitor", now)
	require.True(t, ok)
	release()
	_, ok = limiter.reserve("expired", now.Add(-time.Hour))
	require.True(t, ok)
	_, ok = limiter.reserve("other", now)
	require.True(t, ok)
	limiter.mu.Lock()
	limiter.activeLocked("expired", now)
	_, visitorKept := limiter.slots["visitor"]
	_, expiredKept := limiter.slots["expired"]
	limiter.mu.Unlock()

	require.False(t, visitorKept)
	require.False(t, expiredKept)
}

func TestSubmitLimiterConcurrentReservations(t *testing.T) {
	t.Parallel()

	limiter := newSubmitLimiter(3, time.Hour)
	now := time.Now().UTC()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for index := 0; index < 20; index++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := limiter.reserve("visitor", now); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 3, granted)
}
