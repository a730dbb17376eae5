// Package chat connects the game to chat channels through Redis pub/sub.
//
// Outbound messages for a channel are published to "<prefix>:channel:<id>".
// Inbound messages from every channel arrive on "<prefix>:inbound".
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type PublisherConfig struct {
	Redis  Redis
	Prefix string
}

type Publisher struct {
	redis  Redis
	prefix string
}

func NewPublisher(c PublisherConfig) *Publisher {
	return &Publisher{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

func (p *Publisher) Publish(ctx context.Context, channel string, m domain.Message) error {
	b, err := json.Marshal(Notification{Event: "message", Data: m})
	if err != nil {
		return fmt.Errorf("chat: marshal message: %w", err)
	}

	if err := p.redis.Publish(ctx, ChannelKey(p.prefix, channel), b).Err(); err != nil {
		return fmt.Errorf("chat: publish to %s: %w", channel, err)
	}

	return nil
}

func ChannelKey(prefix, channel string) string {
	return fmt.Sprintf("%s:channel:%s", prefix, channel)
}

func InboundKey(prefix string) string {
	return fmt.Sprintf("%s:inbound", prefix)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, m domain.InboundMessage) error
}

type ListenerConfig struct {
	Redis  redis.UniversalClient
	Prefix string
	// BotUser is the game's own chat identity. Its messages are dropped.
	BotUser    string
	Dispatcher Dispatcher
	Now        func() time.Time
}

// Listener feeds inbound chat messages to a Dispatcher one at a time, so
// messages of a channel are handled in arrival order.
type Listener struct {
	redis      redis.UniversalClient
	prefix     string
	botUser    string
	dispatcher Dispatcher
	now        func() time.Time
}

func NewListener(c ListenerConfig) *Listener {
	l := &Listener{
		redis:      c.Redis,
		prefix:     c.Prefix,
		botUser:    c.BotUser,
		dispatcher: c.Dispatcher,
		now:        c.Now,
	}

	if l.now == nil {
		l.now = time.Now
	}

	return l
}

// Run subscribes to the inbound channel and blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	sub := l.redis.Subscribe(ctx, InboundKey(l.prefix))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("chat: subscribe: %w", err)
	}

	slog.InfoContext(ctx, "chat: listening", "channel", InboundKey(l.prefix))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var m domain.InboundMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		slog.WarnContext(ctx, "chat: drop malformed message", "error", err)
		return
	}

	if m.Channel == "" || m.Author == "" {
		slog.WarnContext(ctx, "chat: drop message without channel or author")
		return
	}
	if l.botUser != "" && m.Author == l.botUser {
		return
	}
	if m.Time.IsZero() {
		m.Time = l.now()
	}

	if err := l.dispatcher.Dispatch(ctx, m); err != nil {
		slog.ErrorContext(ctx, "chat: dispatch message failed",
			"channel", m.Channel,
			"author", m.Author,
			"error", err,
		)
	}
}
