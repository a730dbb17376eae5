// Package round holds one in-flight question together with its timer and
// the guard that lets it settle exactly once.
package round

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/victornm/trivia/internal/clock"
	"github.com/victornm/trivia/internal/domain"
)

type Round struct {
	ID        string
	SessionID string
	Channel   string
	Seq       int
	Question  domain.Question

	settled atomic.Bool
	outcome atomic.Int32

	mu    sync.Mutex
	timer *Timer

	done chan struct{}
}

func New(id, sessionID, channel string, seq int, q domain.Question) *Round {
	return &Round{
		ID:        id,
		SessionID: sessionID,
		Channel:   channel,
		Seq:       seq,
		Question:  q,
		done:      make(chan struct{}),
	}
}

// Arm starts the round timer. onExpire receives the round when the timer
// fires; it is expected to call Settle with OutcomeExpired.
func (r *Round) Arm(c clock.Clock, d time.Duration, onExpire func(*Round)) error {
	t, err := StartTimer(c, d, func() { onExpire(r) })
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.timer = t
	r.mu.Unlock()

	// Settled between StartTimer and the assignment above.
	if r.settled.Load() {
		t.Cancel()
	}

	return nil
}

// Settle moves the round to its terminal state. Only the first caller wins:
// it stops the timer, runs effect and then closes Done. Every later call is a
// no-op returning false.
func (r *Round) Settle(o domain.Outcome, effect func()) bool {
	if !r.settled.CompareAndSwap(false, true) {
		return false
	}
	r.outcome.Store(int32(o))

	r.mu.Lock()
	t := r.timer
	r.mu.Unlock()
	t.Cancel()

	if effect != nil {
		effect()
	}

	close(r.done)
	return true
}

func (r *Round) Settled() bool {
	return r.settled.Load()
}

// Outcome is OutcomeNone until the round settles.
func (r *Round) Outcome() domain.Outcome {
	return domain.Outcome(r.outcome.Load())
}

// Done is closed once the winning settlement's effect has completed.
func (r *Round) Done() <-chan struct{} {
	return r.done
}
