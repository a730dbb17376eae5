package score

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
)

const DefaultTopLimit = 10

// Store is a durable user -> points ledger. Add must be an atomic
// increment: concurrent calls for the same user never lose updates.
type Store interface {
	// Get returns the user's total and whether the user has a record.
	Get(ctx context.Context, userID string) (int64, bool, error)
	// Add increments the user's total by delta, creating the record when
	// missing, and returns the new total.
	Add(ctx context.Context, userID string, delta int64) (int64, error)
	// Top returns at most n records ordered by score descending.
	Top(ctx context.Context, n int) ([]domain.ScoreEntry, error)
}

type Config struct {
	Store    Store
	EventBus *event.Bus
	Now      func() time.Time
}

type Service struct {
	store Store
	eb    *event.Bus
	now   func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store: c.Store,
		eb:    c.EventBus,
		now:   c.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// GetScore returns the user's total, 0 when the user has never scored.
func (s *Service) GetScore(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, errors.InvalidArgument("user id is required")
	}

	total, _, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("get score: user=%s", userID),
			errors.WithCause(err),
		)
	}

	return total, nil
}

// AddScore increases the score of a user and returns the new total.
func (s *Service) AddScore(ctx context.Context, userID string, delta int64) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, errors.InvalidArgument("user id is required")
	}
	if delta < 0 {
		return 0, errors.InvalidArgument("delta must not be negative: got %d", delta)
	}

	total, err := s.store.Add(ctx, userID, delta)
	if err != nil {
		return 0, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("add score: user=%s delta=%d", userID, delta),
			errors.WithCause(err),
		)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventScoreUpdated{
			Score: domain.Score{
				UserID:     userID,
				Delta:      delta,
				Total:      total,
				UpdateTime: s.now(),
			},
		})
	}

	return total, nil
}

// Top returns the n best users, highest score first. Ties keep the store's
// order.
func (s *Service) Top(ctx context.Context, n int) ([]domain.ScoreEntry, error) {
	if n <= 0 {
		return nil, errors.InvalidArgument("limit must be positive: got %d", n)
	}

	entries, err := s.store.Top(ctx, n)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("top scores: limit=%d", n),
			errors.WithCause(fmt.Errorf("store: %w", err)),
		)
	}

	return entries, nil
}
