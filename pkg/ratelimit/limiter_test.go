package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	assert.IsType(t, Unlimited{}, NewLimiter(0))
	assert.IsType(t, Unlimited{}, NewLimiter(-5))

	l, ok := NewLimiter(60).(*rate.Limiter)
	require.True(t, ok)
	assert.Equal(t, rate.Limit(1), l.Limit())
	assert.Equal(t, 1, l.Burst())
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := NewLimiter(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err)
}

func TestUnlimitedWait(t *testing.T) {
	require.NoError(t, Unlimited{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Unlimited{}.Wait(ctx), context.Canceled)
}
