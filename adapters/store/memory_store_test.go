package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xblckmrq/signatory-role/core"
)

func TestMemoryChallengeStore_IssueOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()

	first := core.NewChallenge("requester-1", "0xAbC", time.Now())
	require.NoError(t, s.Issue(ctx, first))

	second := core.NewChallenge("requester-1", "0xDeF", time.Now().Add(time.Second))
	require.NoError(t, s.Issue(ctx, second))

	got, err := s.Get(ctx, "requester-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0xdef", got.ExpectedWallet)
	assert.Equal(t, second.Message, got.Message)
}

func TestMemoryChallengeStore_GetAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()

	got, err := s.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryChallengeStore_ClearIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()

	require.NoError(t, s.Issue(ctx, core.NewChallenge("requester-1", "0xabc", time.Now())))
	require.NoError(t, s.Clear(ctx, "requester-1"))
	require.NoError(t, s.Clear(ctx, "requester-1"))

	got, err := s.Get(ctx, "requester-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCooldownTracker_OkThenBlocked(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryCooldownTracker()
	window := time.Minute
	now := time.Now()

	ok, remaining, err := tracker.CheckAndReserve(ctx, "requester-1", now, window)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	ok, remaining, err = tracker.CheckAndReserve(ctx, "requester-1", now.Add(time.Second), window)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, window-time.Second, remaining)
}

func TestMemoryCooldownTracker_WindowElapsed(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryCooldownTracker()
	window := time.Minute
	now := time.Now()

	ok, _, err := tracker.CheckAndReserve(ctx, "requester-1", now, window)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = tracker.CheckAndReserve(ctx, "requester-1", now.Add(window), window)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCooldownTracker_ConcurrentSingleOk(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryCooldownTracker()
	now := time.Now()

	const attempts = 32
	results := make(chan bool, attempts)

	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := tracker.CheckAndReserve(ctx, "requester-1", now, time.Minute)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	var oks int
	for ok := range results {
		if ok {
			oks++
		}
	}
	assert.Equal(t, 1, oks)
}

func TestMemoryCooldownTracker_Remaining(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryCooldownTracker()
	window := time.Minute
	now := time.Now()

	remaining, err := tracker.Remaining(ctx, "requester-1", now, window)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	ok, _, err := tracker.CheckAndReserve(ctx, "requester-1", now, window)
	require.NoError(t, err)
	require.True(t, ok)

	remaining, err = tracker.Remaining(ctx, "requester-1", now.Add(10*time.Second), window)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Second, remaining)

	remaining, err = tracker.Remaining(ctx, "requester-1", now.Add(2*window), window)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}
