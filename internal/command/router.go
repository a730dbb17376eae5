// Package command turns chat text into game operations.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/score"
	"github.com/victornm/trivia/internal/session"
)

const Prefix = "!trivia"

var subcommands = []string{"force", "cancel", "score", "top", "help"}

// maxSuggestDistance is the largest edit distance still worth a suggestion.
const maxSuggestDistance = 2

type Config struct {
	Session   *session.Service
	Messenger session.Messenger
	// Redis holds the per-channel cooldown keys.
	Redis     redis.UniversalClient
	KeyPrefix string
	Cooldown  time.Duration
	// Generators are listed by the help command, in index order.
	Generators []string
}

type Router struct {
	session    *session.Service
	messenger  session.Messenger
	redis      redis.UniversalClient
	keyPrefix  string
	cooldown   time.Duration
	generators []string
}

func NewRouter(c Config) *Router {
	return &Router{
		session:    c.Session,
		messenger:  c.Messenger,
		redis:      c.Redis,
		keyPrefix:  c.KeyPrefix,
		cooldown:   c.Cooldown,
		generators: c.Generators,
	}
}

// Dispatch runs the command in m, or hands m to the session as a possible
// answer when it is not a command.
func (r *Router) Dispatch(ctx context.Context, m domain.InboundMessage) error {
	fields := strings.Fields(m.Text)
	if len(fields) == 0 || !strings.EqualFold(fields[0], Prefix) {
		return r.session.HandleMessage(ctx, m)
	}

	args := fields[1:]
	if len(args) == 0 {
		return r.start(ctx, m, nil)
	}

	switch strings.ToLower(args[0]) {
	case "force":
		return r.force(ctx, m, args[1:])
	case "cancel":
		return r.cancel(ctx, m)
	case "score":
		return r.score(ctx, m, args[1:])
	case "top":
		return r.top(ctx, m)
	case "help":
		return r.reply(ctx, m.Channel, r.help())
	default:
		return r.start(ctx, m, args)
	}
}

// start begins a session when the channel is not cooling down. Only
// moderators may ask for more than one round.
func (r *Router) start(ctx context.Context, m domain.InboundMessage, args []string) error {
	rounds := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			if c := suggest(args[0]); c != "" {
				return r.reply(ctx, m.Channel, fmt.Sprintf("Unknown command '%s', did you mean '%s %s'?", args[0], Prefix, c))
			}
			return r.reply(ctx, m.Channel, r.help())
		}
		rounds = n
	}
	if !m.Moderator {
		rounds = 1
	}

	ok, err := r.acquireCooldown(ctx, m)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	return r.launch(ctx, session.StartSessionRequest{
		Channel: m.Channel,
		Author:  m.Author,
		Rounds:  rounds,
	})
}

func (r *Router) force(ctx context.Context, m domain.InboundMessage, args []string) error {
	if !m.Moderator {
		return r.reply(ctx, m.Channel, fmt.Sprintf("%s, only moderators can force a game.", m.Author))
	}

	req := session.StartSessionRequest{
		Channel: m.Channel,
		Author:  m.Author,
		Rounds:  1,
	}

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return r.reply(ctx, m.Channel, r.help())
		}
		req.Rounds = n
	}
	if len(args) > 1 {
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return r.reply(ctx, m.Channel, r.help())
		}
		req.ForcedIndex = &i
	}

	return r.launch(ctx, req)
}

func (r *Router) launch(ctx context.Context, req session.StartSessionRequest) error {
	_, started, err := r.session.Launch(ctx, req, nil)
	if err != nil {
		return err
	}
	if !started {
		slog.InfoContext(ctx, "command: session already running", "channel", req.Channel)
	}

	return nil
}

func (r *Router) cancel(ctx context.Context, m domain.InboundMessage) error {
	if !m.Moderator {
		return r.reply(ctx, m.Channel, fmt.Sprintf("%s, only moderators can cancel a game.", m.Author))
	}

	r.session.Cancel(ctx, m.Channel)
	return nil
}

func (r *Router) score(ctx context.Context, m domain.InboundMessage, args []string) error {
	if len(args) == 0 {
		points, err := r.session.Score(ctx, m.Author)
		if err != nil {
			return err
		}
		return r.reply(ctx, m.Channel, fmt.Sprintf("%s, your score is %d points.", m.Author, points))
	}

	user := strings.Join(args, " ")
	points, err := r.session.Score(ctx, user)
	if err != nil {
		return err
	}

	return r.reply(ctx, m.Channel, fmt.Sprintf("%s's score is %d points.", user, points))
}

func (r *Router) top(ctx context.Context, m domain.InboundMessage) error {
	entries, err := r.session.Top(ctx, score.DefaultTopLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return r.reply(ctx, m.Channel, "Nobody has scored yet.")
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Top scores:")
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s - %d points", i+1, e.UserID, e.Score))
	}

	return r.reply(ctx, m.Channel, strings.Join(lines, "\n"))
}

func (r *Router) help() string {
	var b strings.Builder
	b.WriteString("Usage: !trivia [rounds] | !trivia force [rounds] [index] | !trivia cancel | !trivia score [user] | !trivia top")
	if len(r.generators) > 0 {
		b.WriteString("\nQuestion indices:")
		for i, name := range r.generators {
			fmt.Fprintf(&b, "\n%d. %s", i, name)
		}
	}

	return b.String()
}

// suggest returns the subcommand closest to a mistyped one, or "" if none
// is close enough.
func suggest(word string) string {
	word = strings.ToLower(word)

	best, bestDistance := "", maxSuggestDistance+1
	for _, c := range subcommands {
		if d := levenshtein.ComputeDistance(word, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}

	return best
}

func (r *Router) reply(ctx context.Context, channel, text string) error {
	return r.messenger.Publish(ctx, channel, domain.Message{
		Kind: domain.MessageKindNotice,
		Text: text,
	})
}

// acquireCooldown claims the channel's cooldown window. It reports false
// while a previous claim is still alive.
func (r *Router) acquireCooldown(ctx context.Context, m domain.InboundMessage) (bool, error) {
	if r.cooldown <= 0 {
		return true, nil
	}

	ok, err := r.redis.SetNX(ctx, r.cooldownKey(m.Channel), m.Author, r.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("command: setnx cooldown: %w", err)
	}

	return ok, nil
}

func (r *Router) cooldownKey(channel string) string {
	return fmt.Sprintf("%s:cooldown:%s", r.keyPrefix, channel)
}
