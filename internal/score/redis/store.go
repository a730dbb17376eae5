// Package redis keeps scores in a Redis sorted set.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
)

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
}

// Store ranks users in a single sorted set. Redis orders equal scores by
// member, so ties do not keep insertion order.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(c Config) *Store {
	return &Store{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

func (s *Store) Get(ctx context.Context, userID string) (int64, bool, error) {
	v, err := s.redis.ZScore(ctx, s.key(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zscore: %w", err)
	}

	return int64(v), true, nil
}

func (s *Store) Add(ctx context.Context, userID string, delta int64) (int64, error) {
	v, err := s.redis.ZIncrBy(ctx, s.key(), float64(delta), userID).Result()
	if err != nil {
		return 0, fmt.Errorf("zincrby: %w", err)
	}

	return int64(v), nil
}

func (s *Store) Top(ctx context.Context, n int) ([]domain.ScoreEntry, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.key(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}

	entries := make([]domain.ScoreEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.ScoreEntry{
			UserID: z.Member.(string),
			Score:  int64(z.Score),
		})
	}

	return entries, nil
}

func (s *Store) key() string {
	return fmt.Sprintf("%s:scores", s.prefix)
}
