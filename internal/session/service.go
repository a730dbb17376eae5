// Package session runs trivia sessions: one sequence of timed rounds per
// channel, each settled by the first correct answer, by expiry or by
// cancellation.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/clock"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/round"
)

// ErrQuestionUnavailable is returned by StartSession when the question source
// failed and the session was aborted.
var ErrQuestionUnavailable = stderrors.New("question unavailable")

const maxListedAnswers = 3

type Messenger interface {
	Publish(ctx context.Context, channel string, m domain.Message) error
}

type QuestionSource interface {
	Produce(ctx context.Context, forced *int) (domain.Question, error)
}

type Scorer interface {
	GetScore(ctx context.Context, userID string) (int64, error)
	AddScore(ctx context.Context, userID string, delta int64) (int64, error)
	Top(ctx context.Context, n int) ([]domain.ScoreEntry, error)
}

type Settings struct {
	// Points awarded for a correct answer.
	Points int64
	// GameLength is how long a question stays open.
	GameLength time.Duration
	// RoundDelay is the pause before each question.
	RoundDelay time.Duration
	// MaxGames caps the number of rounds of one session.
	MaxGames int
	// Cooldown is only announced here; enforcing it is up to the caller.
	Cooldown time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Points:     50,
		GameLength: 30 * time.Second,
		RoundDelay: 2 * time.Second,
		MaxGames:   10,
		Cooldown:   60 * time.Second,
	}
}

type Config struct {
	Messenger Messenger
	Questions QuestionSource
	Scores    Scorer
	// Matcher defaults to answer.NewMatcher(answer.DefaultThreshold).
	Matcher  *answer.Matcher
	EventBus *event.Bus
	// Clock defaults to clock.Real().
	Clock    clock.Clock
	Settings Settings
}

type Status int

const (
	StatusAbsent Status = iota
	StatusRunning
	StatusRoundActive
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusRoundActive:
		return "round_active"
	default:
		return "absent"
	}
}

// channelSession is the state of a running session. active and cancelled are
// guarded by Service.mu.
type channelSession struct {
	id      string
	channel string
	author  string
	rounds  int
	forced  *int

	active    *round.Round
	cancelled bool
	stop      chan struct{}

	// posting is held while a question goes out, so a cancel either stops
	// the question or settles the round that carries it.
	posting sync.Mutex
}

type Service struct {
	messenger Messenger
	questions QuestionSource
	scores    Scorer
	matcher   *answer.Matcher
	eb        *event.Bus
	clock     clock.Clock
	settings  Settings

	mu       sync.Mutex
	sessions map[string]*channelSession
	stopped  bool
	wg       sync.WaitGroup
}

func NewService(c Config) *Service {
	s := &Service{
		messenger: c.Messenger,
		questions: c.Questions,
		scores:    c.Scores,
		matcher:   c.Matcher,
		eb:        c.EventBus,
		clock:     c.Clock,
		settings:  c.Settings,
		sessions:  make(map[string]*channelSession),
	}

	if s.matcher == nil {
		s.matcher = answer.NewMatcher(answer.DefaultThreshold)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}

	d := DefaultSettings()
	if s.settings.Points <= 0 {
		s.settings.Points = d.Points
	}
	if s.settings.GameLength <= 0 {
		s.settings.GameLength = d.GameLength
	}
	if s.settings.RoundDelay < 0 {
		s.settings.RoundDelay = 0
	}
	if s.settings.MaxGames <= 0 {
		s.settings.MaxGames = d.MaxGames
	}

	return s
}

// StartSessionRequest represents a request to run a session in a channel.
type StartSessionRequest struct {
	Channel string
	// Author is the user who asked for the session, used in the announcement.
	Author string
	// Rounds is clamped to [1, MaxGames].
	Rounds int
	// ForcedIndex selects the question generator of every round. Nil or out
	// of range picks a random one.
	ForcedIndex *int
}

type StartSessionResponse struct {
	SessionID string
	// Started is false when the channel already had a session.
	Started bool
	Rounds  int
	// Played is the number of questions published.
	Played    int
	Cancelled bool
}

// StartSession runs a session and returns once it is over. A channel that
// already has a session is not an error: the response has Started false.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (*StartSessionResponse, error) {
	cs, err := s.reserve(req)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return &StartSessionResponse{}, nil
	}

	return s.run(ctx, cs)
}

// Launch reserves the channel like StartSession and runs the rounds in the
// background. done, when not nil, receives the result. It returns the session
// ID and whether the session was started.
func (s *Service) Launch(ctx context.Context, req StartSessionRequest, done func(*StartSessionResponse, error)) (string, bool, error) {
	cs, err := s.reserve(req)
	if err != nil {
		return "", false, err
	}
	if cs == nil {
		return "", false, nil
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		resp, err := s.run(ctx, cs)
		if err != nil {
			slog.ErrorContext(ctx, "session: run failed",
				"session", cs.id,
				"channel", cs.channel,
				"error", err,
			)
		}
		if done != nil {
			done(resp, err)
		}
	}()

	return cs.id, true, nil
}

// reserve claims the channel. It returns nil without error when the channel
// is taken.
func (s *Service) reserve(req StartSessionRequest) (*channelSession, error) {
	if strings.TrimSpace(req.Channel) == "" {
		return nil, errors.InvalidArgument("channel is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("generate session ID: %w", err))
	}

	rounds := min(max(req.Rounds, 1), s.settings.MaxGames)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, errors.New(errors.CodeUnavailable, errors.WithMessagef("session service is stopped"))
	}
	if _, ok := s.sessions[req.Channel]; ok {
		return nil, nil
	}

	cs := &channelSession{
		id:      id.String(),
		channel: req.Channel,
		author:  req.Author,
		rounds:  rounds,
		forced:  req.ForcedIndex,
		stop:    make(chan struct{}),
	}
	s.sessions[req.Channel] = cs
	s.wg.Add(1)

	return cs, nil
}

func (s *Service) run(ctx context.Context, cs *channelSession) (*StartSessionResponse, error) {
	defer s.wg.Done()

	resp := &StartSessionResponse{
		SessionID: cs.id,
		Started:   true,
		Rounds:    cs.rounds,
	}

	slog.InfoContext(ctx, "session: started", "session", cs.id, "channel", cs.channel, "rounds", cs.rounds)
	s.publishEvent(ctx, domain.EventSessionStarted{
		SessionID: cs.id,
		Channel:   cs.channel,
		Rounds:    cs.rounds,
	})

	author := cs.author
	if author == "" {
		author = "Someone"
	}
	s.publish(ctx, cs.channel, domain.Message{
		Kind: domain.MessageKindNotice,
		Text: fmt.Sprintf("%s started a game of trivia! Get ready!", author),
	})

	var runErr error
	for seq := 1; seq <= cs.rounds; seq++ {
		if !s.wait(ctx, cs, s.settings.RoundDelay) {
			resp.Cancelled = true
			break
		}

		r, err := s.playRound(ctx, cs, seq)
		if err != nil {
			runErr = err
			break
		}
		if r == nil {
			resp.Cancelled = true
			break
		}

		resp.Played++
		if r.Outcome() == domain.OutcomeCancelled {
			resp.Cancelled = true
			break
		}
	}

	s.release(cs)

	switch {
	case stderrors.Is(runErr, ErrQuestionUnavailable):
		s.publish(ctx, cs.channel, domain.Message{
			Kind: domain.MessageKindNotice,
			Text: "Trivia aborted: could not produce a question.",
		})
	case runErr != nil:
		s.publish(ctx, cs.channel, domain.Message{
			Kind: domain.MessageKindNotice,
			Text: "Trivia aborted: could not start the round.",
		})
	default:
		s.publish(ctx, cs.channel, domain.Message{
			Kind: domain.MessageKindNotice,
			Text: fmt.Sprintf("You can start a new round in %d seconds.", int(s.settings.Cooldown.Seconds())),
		})
	}

	s.publishEvent(ctx, domain.EventSessionEnded{
		SessionID: cs.id,
		Channel:   cs.channel,
		Played:    resp.Played,
		Aborted:   runErr != nil,
		Cancelled: resp.Cancelled,
	})
	slog.InfoContext(ctx, "session: ended",
		"session", cs.id,
		"channel", cs.channel,
		"played", resp.Played,
		"cancelled", resp.Cancelled,
	)

	return resp, runErr
}

// wait pauses for d and reports false when the session was cancelled in the
// meantime.
func (s *Service) wait(ctx context.Context, cs *channelSession, d time.Duration) bool {
	select {
	case <-s.clock.After(d):
	case <-cs.stop:
		return false
	case <-ctx.Done():
		s.cancel(cs)
		return false
	}

	select {
	case <-cs.stop:
		return false
	default:
		return true
	}
}

// playRound publishes one question and blocks until the round settles. A nil
// round without error means the session was cancelled before the question
// went out.
func (s *Service) playRound(ctx context.Context, cs *channelSession, seq int) (*round.Round, error) {
	q, err := s.questions.Produce(ctx, cs.forced)
	if err != nil {
		return nil, fmt.Errorf("session: round %d: %w: %w", seq, ErrQuestionUnavailable, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session: generate round ID: %w", err)
	}
	r := round.New(id.String(), cs.id, cs.channel, seq, q)

	if err := r.Arm(s.clock, s.settings.GameLength, func(r *round.Round) { s.expire(ctx, r) }); err != nil {
		return nil, fmt.Errorf("session: arm round %d: %w", seq, err)
	}

	if !s.post(ctx, cs, r) {
		r.Settle(domain.OutcomeCancelled, nil)
		return nil, nil
	}

	defer func() {
		s.mu.Lock()
		if cs.active == r {
			cs.active = nil
		}
		s.mu.Unlock()
	}()

	select {
	case <-r.Done():
	case <-ctx.Done():
		s.cancel(cs)
		<-r.Done()
	}

	return r, nil
}

// post publishes the round's question and makes the round answerable. It
// reports false, without publishing, when the session was cancelled first.
func (s *Service) post(ctx context.Context, cs *channelSession, r *round.Round) bool {
	cs.posting.Lock()
	defer cs.posting.Unlock()

	s.mu.Lock()
	cancelled := cs.cancelled
	s.mu.Unlock()
	if cancelled {
		return false
	}

	q := r.Question
	s.publish(ctx, cs.channel, domain.Message{
		Kind:     domain.MessageKindQuestion,
		Text:     q.Title,
		Question: q.Prompt(),
	})

	s.mu.Lock()
	cs.active = r
	s.mu.Unlock()

	return true
}

func (s *Service) expire(ctx context.Context, r *round.Round) {
	r.Settle(domain.OutcomeExpired, func() {
		q := r.Question
		s.publish(ctx, r.Channel, domain.Message{
			Kind: domain.MessageKindExpired,
			Text: fmt.Sprintf("Time's up! The correct answer was '%s'%s.", listAnswers(q.Answers), q.Extra),
		})
		s.publishSettled(ctx, r, "", 0)
	})
}

// listAnswers joins at most maxListedAnswers answers with "/".
func listAnswers(answers []string) string {
	if len(answers) <= maxListedAnswers {
		return strings.Join(answers, "/")
	}

	return strings.Join(answers[:maxListedAnswers], "/") + "/etc..."
}

// HandleMessage checks a chat message against the channel's open question
// and awards the author when it is the first correct answer. Messages in a
// channel without an open question are ignored. A message without an author
// is rejected before it can settle anything. Otherwise the returned error only
// reports a score store failure; the round is settled regardless.
func (s *Service) HandleMessage(ctx context.Context, m domain.InboundMessage) error {
	if strings.TrimSpace(m.Author) == "" {
		return errors.InvalidArgument("author is required")
	}

	s.mu.Lock()
	var r *round.Round
	if cs, ok := s.sessions[m.Channel]; ok {
		r = cs.active
	}
	s.mu.Unlock()

	if r == nil || r.Settled() {
		return nil
	}

	matched, ok := s.matcher.Evaluate(r.Question, m.Text)
	if !ok {
		return nil
	}

	var scoreErr error
	r.Settle(domain.OutcomeAnswered, func() {
		points := s.settings.Points
		extra := r.Question.Extra

		total, err := s.scores.AddScore(ctx, m.Author, points)
		if err != nil {
			scoreErr = err
			slog.ErrorContext(ctx, "session: add score failed",
				"session", r.SessionID,
				"channel", r.Channel,
				"user", m.Author,
				"error", err,
			)
			s.publish(ctx, r.Channel, domain.Message{
				Kind: domain.MessageKindAnswered,
				Text: fmt.Sprintf("Correct answer '%s'%s by %s! +%d points", matched, extra, m.Author, points),
			})
			s.publishSettled(ctx, r, m.Author, 0)
			return
		}

		s.publish(ctx, r.Channel, domain.Message{
			Kind: domain.MessageKindAnswered,
			Text: fmt.Sprintf("Correct answer '%s'%s by %s! +%d points (new score: %d)", matched, extra, m.Author, points, total),
		})
		s.publishSettled(ctx, r, m.Author, points)
	})

	return scoreErr
}

// Cancel stops the channel's session and settles its open round without a
// message. It returns false when the channel has no session.
func (s *Service) Cancel(ctx context.Context, channel string) bool {
	s.mu.Lock()
	cs, ok := s.sessions[channel]
	s.mu.Unlock()

	if !ok {
		return false
	}

	if !s.cancel(cs) {
		return false
	}

	slog.InfoContext(ctx, "session: cancelled", "session", cs.id, "channel", channel)
	return true
}

func (s *Service) cancel(cs *channelSession) bool {
	cs.posting.Lock()
	defer cs.posting.Unlock()

	s.mu.Lock()
	if cs.cancelled {
		s.mu.Unlock()
		return false
	}
	cs.cancelled = true
	close(cs.stop)
	if s.sessions[cs.channel] == cs {
		delete(s.sessions, cs.channel)
	}
	r := cs.active
	s.mu.Unlock()

	if r != nil {
		r.Settle(domain.OutcomeCancelled, func() {
			s.publishSettled(context.Background(), r, "", 0)
		})
	}

	return true
}

// release removes the session from its channel unless it was replaced.
func (s *Service) release(cs *channelSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[cs.channel] == cs {
		delete(s.sessions, cs.channel)
	}
}

func (s *Service) Status(channel string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[channel]
	switch {
	case !ok:
		return StatusAbsent
	case cs.active != nil && !cs.active.Settled():
		return StatusRoundActive
	default:
		return StatusRunning
	}
}

func (s *Service) Score(ctx context.Context, userID string) (int64, error) {
	return s.scores.GetScore(ctx, userID)
}

func (s *Service) Top(ctx context.Context, n int) ([]domain.ScoreEntry, error) {
	return s.scores.Top(ctx, n)
}

// Stop cancels every session, rejects new ones and waits for the running
// loops to return.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	running := make([]*channelSession, 0, len(s.sessions))
	for _, cs := range s.sessions {
		running = append(running, cs)
	}
	s.mu.Unlock()

	for _, cs := range running {
		s.cancel(cs)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session: stop: %w", ctx.Err())
	}
}

func (s *Service) publish(ctx context.Context, channel string, m domain.Message) {
	if err := s.messenger.Publish(ctx, channel, m); err != nil {
		slog.ErrorContext(ctx, "session: publish message failed",
			"channel", channel,
			"kind", m.Kind,
			"error", err,
		)
	}
}

func (s *Service) publishSettled(ctx context.Context, r *round.Round, winner string, points int64) {
	s.publishEvent(ctx, domain.EventRoundSettled{
		SessionID: r.SessionID,
		RoundID:   r.ID,
		Channel:   r.Channel,
		Seq:       r.Seq,
		Generator: r.Question.Generator,
		Outcome:   r.Outcome(),
		Winner:    winner,
		Points:    points,
	})
}

func (s *Service) publishEvent(ctx context.Context, e event.Event) {
	if s.eb != nil {
		s.eb.Publish(ctx, e)
	}
}
