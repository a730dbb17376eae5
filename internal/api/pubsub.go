package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/trivia/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	ScoreUpdated struct {
		UserID     string `json:"user_id"`
		Delta      int64  `json:"delta"`
		Total      int64  `json:"total"`
		UpdateTime int64  `json:"update_time"`
	}
)

// PublishScoreUpdated notifies the user whose score changed.
func (a *API) PublishScoreUpdated(ctx context.Context, e domain.EventScoreUpdated) error {
	sc := e.Score

	return a.publishNotification(ctx, sc.UserID, e.Name(), ScoreUpdated{
		UserID:     sc.UserID,
		Delta:      sc.Delta,
		Total:      sc.Total,
		UpdateTime: sc.UpdateTime.UnixMilli(),
	})
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
