package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_After(t *testing.T) {
	c := clock.Fake(epoch)
	ch := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(3*time.Second), got)
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClock_AfterZeroIsReady(t *testing.T) {
	c := clock.Fake(epoch)

	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
	assert.Zero(t, c.PendingCount())
}

func TestFakeClock_AfterFunc(t *testing.T) {
	var calls atomic.Int32
	c := clock.Fake(epoch)
	c.AfterFunc(time.Second, func() { calls.Add(1) })
	require.Equal(t, 1, c.PendingCount())

	c.Advance(time.Second)
	c.Advance(time.Second)

	assert.EqualValues(t, 1, calls.Load(), "callback should fire exactly once")
	assert.Zero(t, c.PendingCount())
}

func TestFakeClock_StopBeforeFire(t *testing.T) {
	var calls atomic.Int32
	c := clock.Fake(epoch)
	timer := c.AfterFunc(time.Second, func() { calls.Add(1) })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop should report nothing to stop")

	c.Advance(time.Minute)
	assert.Zero(t, calls.Load())
}

func TestFakeClock_StopAfterFire(t *testing.T) {
	c := clock.Fake(epoch)
	timer := c.AfterFunc(time.Second, func() {})

	c.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestFakeClock_WaitForTimers(t *testing.T) {
	c := clock.Fake(epoch)
	done := make(chan struct{})

	go func() {
		<-c.After(5 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine was not released by Advance")
	}
}
