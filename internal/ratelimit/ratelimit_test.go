package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitWithinBurstDoesNotBlock(t *testing.T) {
	t.Parallel()

	l := New(1, 3)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "openlibrary"))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestKeysHaveIndependentBuckets(t *testing.T) {
	t.Parallel()

	l := New(1, 1)
	assert.True(t, l.Allow("openlibrary"))
	assert.False(t, l.Allow("openlibrary"), "second token in the same bucket must be denied")
	assert.True(t, l.Allow("bookswagon"), "a fresh key starts with its own full bucket")
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	t.Parallel()

	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("anything"))
	}
	assert.NoError(t, l.Wait(context.Background(), "anything"))
}

func TestWaitHonorsContextCancel(t *testing.T) {
	t.Parallel()

	l := New(0.001, 1)
	require.True(t, l.Allow("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "slow")
	assert.Error(t, err)
}

func TestNilLimiterIsNoop(t *testing.T) {
	t.Parallel()

	var l *SourceLimiter
	assert.True(t, l.Allow("x"))
	assert.NoError(t, l.Wait(context.Background(), "x"))
}
