package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func nextTick(t *testing.T, c *Countdown) time.Time {
	t.Helper()
	select {
	case now := <-c.Ticks():
		return now
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for tick")
		return time.Time{}
	}
}

func assertNoTick(t *testing.T, c *Countdown) {
	t.Helper()
	select {
	case now := <-c.Ticks():
		assert.Failf(t, "unexpected tick", "%v", now)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownTicksAtInterval(t *testing.T) {
	ctx := testContext(t)
	clock := clockwork.NewFakeClock()
	c := New(clock, time.Second)
	defer c.Stop()

	assert.False(t, c.Running())
	c.Start()
	assert.True(t, c.Running())

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(500 * time.Millisecond)
	assertNoTick(t, c)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, clock.Now(), nextTick(t, c))

	clock.Advance(time.Second)
	assert.Equal(t, clock.Now(), nextTick(t, c))
}

func TestCountdownStartIsIdempotent(t *testing.T) {
	ctx := testContext(t)
	clock := clockwork.NewFakeClock()
	c := New(clock, time.Second)
	defer c.Stop()

	c.Start()
	c.Start()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Second)
	nextTick(t, c)
	assertNoTick(t, c)
}

func TestCountdownStopCancelsAndDiscardsPendingTick(t *testing.T) {
	ctx := testContext(t)
	clock := clockwork.NewFakeClock()
	c := New(clock, time.Second)

	c.Start()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	// let the tick land in the buffer before stopping
	require.Eventually(t, func() bool { return len(c.ticks) == 1 }, time.Second, 5*time.Millisecond)

	c.Stop()
	assert.False(t, c.Running())
	assert.Empty(t, c.ticks)

	clock.Advance(10 * time.Second)
	assertNoTick(t, c)

	c.Stop()
}

func TestCountdownRestart(t *testing.T) {
	ctx := testContext(t)
	clock := clockwork.NewFakeClock()
	c := New(clock, 0)
	assert.Equal(t, DefaultInterval, c.interval)

	c.Start()
	c.Stop()
	c.Start()
	defer c.Stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultInterval)
	assert.Equal(t, clock.Now(), nextTick(t, c))
}
