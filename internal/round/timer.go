package round

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/victornm/trivia/internal/clock"
)

var (
	ErrInvalidDuration = errors.New("round: timer duration must be positive")
	// ErrNotScheduled means the clock gave no timer back.
	ErrNotScheduled = errors.New("round: timer not scheduled")
)

// Timer is a one-shot delayed callback that can be cancelled.
//
// The timer only guarantees the callback runs at most once. Deciding whether
// an expiry still matters is the job of the Round's settle-once guard.
type Timer struct {
	t *clock.Timer
}

// StartTimer schedules onExpire to run once after d.
func StartTimer(c clock.Clock, d time.Duration, onExpire func()) (*Timer, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}
	if onExpire == nil {
		return nil, errors.New("round: timer callback is nil")
	}

	var once sync.Once
	t := c.AfterFunc(d, func() { once.Do(onExpire) })
	if t == nil {
		return nil, ErrNotScheduled
	}

	return &Timer{t: t}, nil
}

// Cancel stops the timer and reports whether this call prevented the
// callback. It is idempotent and safe on a nil Timer.
func (t *Timer) Cancel() bool {
	if t == nil {
		return false
	}

	return t.t.Stop()
}
