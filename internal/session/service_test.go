package session_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/clock"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/round"
	"github.com/victornm/trivia/internal/score"
	"github.com/victornm/trivia/internal/score/sqlite"
	"github.com/victornm/trivia/internal/session"
)

const (
	roundDelay = 2 * time.Second
	gameLength = 30 * time.Second
)

var ashe = domain.Question{
	Title:   "Which champion is the Frost Archer?",
	Answers: []string{"Ashe"},
	Fuzzy:   true,
}

func TestService_CorrectAnswer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done := h.start(session.StartSessionRequest{Channel: "42", Author: "alice", Rounds: 1})
	h.openRound(t, "42")
	require.Equal(t, session.StatusRoundActive, h.svc.Status("42"))

	require.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "ashe"}))

	res := await(t, done)
	require.NoError(t, res.err)
	assert.True(t, res.resp.Started)
	assert.Equal(t, 1, res.resp.Played)
	assert.False(t, res.resp.Cancelled)

	assert.Equal(t, []string{
		"alice started a game of trivia! Get ready!",
		"Which champion is the Frost Archer?",
		"Correct answer 'Ashe' by bob! +50 points (new score: 50)",
		"You can start a new round in 60 seconds.",
	}, h.chat.texts("42"))

	got, err := h.svc.Score(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 50, got)
	assert.Equal(t, session.StatusAbsent, h.svc.Status("42"), "session should be cleared")
	assert.Zero(t, h.clock.PendingCount(), "round timer should be stopped")

	h.eb.Stop()
	settled := h.events.settled()
	require.Len(t, settled, 1)
	assert.Equal(t, domain.OutcomeAnswered, settled[0].Outcome)
	assert.Equal(t, "bob", settled[0].Winner)
	assert.EqualValues(t, 50, settled[0].Points)
}

func TestService_Expire(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
	h.openRound(t, "42")

	require.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "garen"}))
	h.clock.Advance(gameLength)

	res := await(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.resp.Played)

	assert.Equal(t, []string{
		"Someone started a game of trivia! Get ready!",
		"Which champion is the Frost Archer?",
		"Time's up! The correct answer was 'Ashe'.",
		"You can start a new round in 60 seconds.",
	}, h.chat.texts("42"))

	got, err := h.svc.Score(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestService_ExpireMessage(t *testing.T) {
	tests := map[string]struct {
		question domain.Question
		want     string
	}{
		"lists every answer when there are at most three": {
			question: domain.Question{Title: "?", Answers: []string{"A", "B", "C"}},
			want:     "Time's up! The correct answer was 'A/B/C'.",
		},
		"truncates longer answer lists": {
			question: domain.Question{Title: "?", Answers: []string{"A", "B", "C", "D"}},
			want:     "Time's up! The correct answer was 'A/B/C/etc...'.",
		},
		"appends the extra annotation": {
			question: domain.Question{Title: "?", Answers: []string{"Ashe"}, Extra: " (Q)"},
			want:     "Time's up! The correct answer was 'Ashe' (Q).",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, withQuestions(&fixedSource{question: tt.question}))

			done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
			h.openRound(t, "42")
			h.clock.Advance(gameLength)
			await(t, done)

			assert.Contains(t, h.chat.texts("42"), tt.want)
		})
	}
}

func TestService_StartSessionTwice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	id, started, err := h.svc.Launch(ctx, session.StartSessionRequest{Channel: "42", Rounds: 1}, nil)
	require.NoError(t, err)
	require.True(t, started)
	assert.NotEmpty(t, id)

	h.clock.WaitForTimers(1)
	assert.Equal(t, session.StatusRunning, h.svc.Status("42"), "the pre-round pause should count as running")

	resp, err := h.svc.StartSession(ctx, session.StartSessionRequest{Channel: "42", Rounds: 1})
	require.NoError(t, err, "a second start should be rejected without error")
	assert.False(t, resp.Started)

	h.clock.Advance(roundDelay)
	h.clock.WaitForTimers(1)
	h.clock.Advance(gameLength)
	require.NoError(t, h.svc.Stop(ctx))

	assert.Equal(t, 1, h.questions.calls(), "only one round sequence should run")
}

func TestService_ConcurrentStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := h.svc.Launch(ctx, session.StartSessionRequest{Channel: "42", Rounds: 1}, nil)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, started, "exactly one start should win the channel")
	require.NoError(t, h.svc.Stop(ctx))
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 3})
	h.openRound(t, "42")

	require.True(t, h.svc.Cancel(ctx, "42"))
	assert.False(t, h.svc.Cancel(ctx, "42"), "cancel should be idempotent")
	assert.Zero(t, h.clock.PendingCount(), "round timer should be stopped")

	require.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"}))

	res := await(t, done)
	require.NoError(t, res.err)
	assert.True(t, res.resp.Cancelled)
	assert.Equal(t, 1, res.resp.Played)

	for _, m := range h.chat.messages("42") {
		assert.NotEqual(t, domain.MessageKindAnswered, m.Kind)
		assert.NotEqual(t, domain.MessageKindExpired, m.Kind)
	}

	got, err := h.svc.Score(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Equal(t, 1, h.questions.calls(), "no further rounds should start")

	h.eb.Stop()
	settled := h.events.settled()
	require.Len(t, settled, 1)
	assert.Equal(t, domain.OutcomeCancelled, settled[0].Outcome)
}

func TestService_CancelDuringDelay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
	h.clock.WaitForTimers(1)

	require.True(t, h.svc.Cancel(ctx, "42"))

	res := await(t, done)
	assert.True(t, res.resp.Cancelled)
	assert.Zero(t, res.resp.Played)
	assert.Zero(t, h.questions.calls())
}

func TestService_CancelWithoutSession(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.svc.Cancel(context.Background(), "42"))
}

func TestService_HandleMessageWithoutRound(t *testing.T) {
	h := newHarness(t)

	err := h.svc.HandleMessage(context.Background(), domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"})
	require.NoError(t, err)
	assert.Empty(t, h.chat.texts("42"))
}

func TestService_IndependentChannels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done42 := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
	done43 := h.start(session.StartSessionRequest{Channel: "43", Rounds: 1})

	h.openRound(t, "42", "43")
	require.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"}))
	assert.Equal(t, session.StatusRoundActive, h.svc.Status("43"), "answering in 42 should not settle 43")

	h.clock.Advance(gameLength)
	await(t, done42)
	await(t, done43)

	assert.Contains(t, h.chat.texts("42"), "Correct answer 'Ashe' by bob! +50 points (new score: 50)")
	assert.NotContains(t, h.chat.texts("42"), "Time's up! The correct answer was 'Ashe'.")
	assert.Contains(t, h.chat.texts("43"), "Time's up! The correct answer was 'Ashe'.")

	got, err := h.svc.Score(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 50, got)
}

func TestService_ExpireAndAnswerRace(t *testing.T) {
	ctx := context.Background()

	for i := range 50 {
		t.Run(fmt.Sprintf("attempt %d", i), func(t *testing.T) {
			h := newHarness(t)

			done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
			h.openRound(t, "42")

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				h.clock.Advance(gameLength)
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"}))
			}()
			wg.Wait()
			await(t, done)

			var answered, expired int
			for _, m := range h.chat.messages("42") {
				switch m.Kind {
				case domain.MessageKindAnswered:
					answered++
				case domain.MessageKindExpired:
					expired++
				}
			}
			require.Equal(t, 1, answered+expired, "exactly one settlement message should be emitted")

			got, err := h.svc.Score(ctx, "bob")
			require.NoError(t, err)
			assert.EqualValues(t, 50*answered, got, "points should be awarded only when the answer won")
		})
	}
}

func TestService_MultipleRounds(t *testing.T) {
	tests := map[string]struct {
		rounds   int
		maxGames int
		want     int
	}{
		"plays the requested rounds": {rounds: 3, maxGames: 10, want: 3},
		"clamps to max games":        {rounds: 100, maxGames: 2, want: 2},
		"plays at least one round":   {rounds: 0, maxGames: 10, want: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(c *session.Config) { c.Settings.MaxGames = tt.maxGames })

			done := h.start(session.StartSessionRequest{Channel: "42", Rounds: tt.rounds})
			for range tt.want {
				h.openRound(t, "42")
				h.clock.Advance(gameLength)
			}

			res := await(t, done)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.resp.Rounds)
			assert.Equal(t, tt.want, res.resp.Played)
			assert.Equal(t, tt.want, h.questions.calls())
		})
	}
}

func TestService_ForcedIndex(t *testing.T) {
	h := newHarness(t)
	forced := 3

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1, ForcedIndex: &forced})
	h.openRound(t, "42")
	h.clock.Advance(gameLength)
	await(t, done)

	require.NotNil(t, h.questions.lastForced())
	assert.Equal(t, 3, *h.questions.lastForced())
}

func TestService_QuestionUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withQuestions(&fixedSource{err: stderrors.New("registry is empty")}))

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 3})
	h.clock.WaitForTimers(1)
	h.clock.Advance(roundDelay)

	res := await(t, done)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, session.ErrQuestionUnavailable)
	assert.Zero(t, res.resp.Played)

	assert.Equal(t, []string{
		"Someone started a game of trivia! Get ready!",
		"Trivia aborted: could not produce a question.",
	}, h.chat.texts("42"))
	assert.Equal(t, session.StatusAbsent, h.svc.Status("42"))

	h.eb.Stop()
	ended := h.events.ended()
	require.Len(t, ended, 1)
	assert.True(t, ended[0].Aborted)

	_, started, err := h.svc.Launch(ctx, session.StartSessionRequest{Channel: "42", Rounds: 1}, nil)
	require.NoError(t, err)
	assert.True(t, started, "the channel should be free again after an abort")
	require.NoError(t, h.svc.Stop(ctx))
}

func TestService_ScoreStoreFailure(t *testing.T) {
	ctx := context.Background()
	cause := stderrors.New("connection refused")
	h := newHarness(t, func(c *session.Config) { c.Scores = failingScorer{err: cause} })

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 2})
	h.openRound(t, "42")

	err := h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, h.chat.texts("42"), "Correct answer 'Ashe' by bob! +50 points")

	h.openRound(t, "42")
	h.clock.Advance(gameLength)

	res := await(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.resp.Played, "the session should continue after a store failure")
}

func TestService_CancelBeforeQuestionPosted(t *testing.T) {
	ctx := context.Background()
	src := &cancellingSource{fixedSource: &fixedSource{question: ashe}}
	h := newHarness(t, func(c *session.Config) { c.Questions = src })
	src.cancel = func() { h.svc.Cancel(ctx, "42") }

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 2})
	h.clock.WaitForTimers(1)
	h.clock.Advance(roundDelay)

	res := await(t, done)
	require.NoError(t, res.err)
	assert.True(t, res.resp.Cancelled)
	assert.Zero(t, res.resp.Played)

	assert.Equal(t, []string{
		"Someone started a game of trivia! Get ready!",
		"You can start a new round in 60 seconds.",
	}, h.chat.texts("42"), "the question should not go out after a cancel")
	assert.Zero(t, h.clock.PendingCount(), "round timer should be stopped")
}

func TestService_CancelWhilePosting(t *testing.T) {
	ctx := context.Background()
	gate := &gatedRecorder{posting: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, func(c *session.Config) {
		gate.recorder = c.Messenger.(*recorder)
		c.Messenger = gate
	})

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 2})
	h.clock.WaitForTimers(1)
	h.clock.Advance(roundDelay)
	<-gate.posting

	cancelled := make(chan bool, 1)
	go func() { cancelled <- h.svc.Cancel(ctx, "42") }()

	select {
	case <-cancelled:
		t.Fatal("cancel should wait for the question to go out")
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)
	assert.True(t, <-cancelled)

	res := await(t, done)
	require.NoError(t, res.err)
	assert.True(t, res.resp.Cancelled)
	assert.Equal(t, 1, res.resp.Played)

	h.eb.Stop()
	settled := h.events.settled()
	require.Len(t, settled, 1, "the posted question should be settled")
	assert.Equal(t, domain.OutcomeCancelled, settled[0].Outcome)
}

func TestService_RoundNotScheduled(t *testing.T) {
	h := newHarness(t, func(c *session.Config) {
		c.Clock = noTimerClock{c.Clock.(*clock.FakeClock)}
	})

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
	h.clock.WaitForTimers(1)
	h.clock.Advance(roundDelay)

	res := await(t, done)
	require.ErrorIs(t, res.err, round.ErrNotScheduled)
	assert.NotErrorIs(t, res.err, session.ErrQuestionUnavailable)
	assert.Zero(t, res.resp.Played)

	assert.Equal(t, []string{
		"Someone started a game of trivia! Get ready!",
		"Trivia aborted: could not start the round.",
	}, h.chat.texts("42"))
	assert.Equal(t, session.StatusAbsent, h.svc.Status("42"))
}

func TestService_HandleMessageWithoutAuthor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	done := h.start(session.StartSessionRequest{Channel: "42", Rounds: 1})
	h.openRound(t, "42")

	err := h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: " ", Text: "Ashe"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
	assert.Equal(t, session.StatusRoundActive, h.svc.Status("42"), "the round should stay open")

	require.NoError(t, h.svc.HandleMessage(ctx, domain.InboundMessage{Channel: "42", Author: "bob", Text: "Ashe"}))
	await(t, done)

	assert.Contains(t, h.chat.texts("42"), "Correct answer 'Ashe' by bob! +50 points (new score: 50)")
}

func TestService_InvalidChannel(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.StartSession(context.Background(), session.StartSessionRequest{Channel: " "})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}

func TestService_Stop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var wg sync.WaitGroup
	wg.Add(2)
	for _, ch := range []string{"42", "43"} {
		_, ok, err := h.svc.Launch(ctx, session.StartSessionRequest{Channel: ch, Rounds: 5}, func(resp *session.StartSessionResponse, err error) {
			defer wg.Done()
			assert.True(t, resp.Cancelled)
		})
		require.NoError(t, err)
		require.True(t, ok)
	}
	h.openRound(t, "42", "43")

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, h.svc.Stop(stopCtx))
	wg.Wait()

	assert.Equal(t, session.StatusAbsent, h.svc.Status("42"))
	assert.Equal(t, session.StatusAbsent, h.svc.Status("43"))

	_, err := h.svc.StartSession(ctx, session.StartSessionRequest{Channel: "42"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "absent", session.StatusAbsent.String())
	assert.Equal(t, "running", session.StatusRunning.String())
	assert.Equal(t, "round_active", session.StatusRoundActive.String())
}

type (
	harness struct {
		svc       *session.Service
		clock     *clock.FakeClock
		chat      *recorder
		questions *fixedSource
		eb        *event.Bus
		events    *eventLog
	}

	result struct {
		resp *session.StartSessionResponse
		err  error
	}
)

func newHarness(t *testing.T, opts ...func(c *session.Config)) *harness {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		clock:     clock.Fake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		chat:      &recorder{},
		questions: &fixedSource{question: ashe},
		eb:        event.NewBus(),
		events:    &eventLog{},
	}
	h.events.subscribe(h.eb)

	c := session.Config{
		Messenger: h.chat,
		Questions: h.questions,
		Scores:    score.NewService(score.Config{Store: store}),
		EventBus:  h.eb,
		Clock:     h.clock,
		Settings: session.Settings{
			Points:     50,
			GameLength: gameLength,
			RoundDelay: roundDelay,
			MaxGames:   10,
			Cooldown:   60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	if fs, ok := c.Questions.(*fixedSource); ok {
		h.questions = fs
	}

	h.svc = session.NewService(c)
	return h
}

func withQuestions(s *fixedSource) func(c *session.Config) {
	return func(c *session.Config) { c.Questions = s }
}

func (h *harness) start(req session.StartSessionRequest) <-chan result {
	done := make(chan result, 1)
	go func() {
		resp, err := h.svc.StartSession(context.Background(), req)
		done <- result{resp: resp, err: err}
	}()

	return done
}

// openRound waits for the sessions of channels to enter their pre-round
// pause, ends it and waits until their questions are posted.
func (h *harness) openRound(t *testing.T, channels ...string) {
	t.Helper()

	h.clock.WaitForTimers(len(channels))
	h.clock.Advance(roundDelay)

	for _, ch := range channels {
		require.Eventually(t, func() bool {
			return h.svc.Status(ch) == session.StatusRoundActive
		}, time.Second, time.Millisecond, "channel %s should have an open question", ch)
	}
}

func await(t *testing.T, done <-chan result) result {
	t.Helper()

	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
		return result{}
	}
}

type recorder struct {
	mu   sync.Mutex
	sent map[string][]domain.Message
}

func (r *recorder) Publish(_ context.Context, channel string, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sent == nil {
		r.sent = make(map[string][]domain.Message)
	}
	r.sent[channel] = append(r.sent[channel], m)
	return nil
}

func (r *recorder) messages(channel string) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Message(nil), r.sent[channel]...)
}

func (r *recorder) texts(channel string) []string {
	var texts []string
	for _, m := range r.messages(channel) {
		texts = append(texts, m.Text)
	}

	return texts
}

type fixedSource struct {
	question domain.Question
	err      error

	mu     sync.Mutex
	n      int
	forced *int
}

func (s *fixedSource) Produce(_ context.Context, forced *int) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++
	s.forced = forced
	if s.err != nil {
		return domain.Question{}, s.err
	}

	return s.question, nil
}

func (s *fixedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *fixedSource) lastForced() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forced
}

// cancellingSource cancels the session while it produces the question.
type cancellingSource struct {
	*fixedSource
	cancel func()
}

func (s *cancellingSource) Produce(ctx context.Context, forced *int) (domain.Question, error) {
	q, err := s.fixedSource.Produce(ctx, forced)
	s.cancel()
	return q, err
}

// gatedRecorder holds the first question until release is closed.
type gatedRecorder struct {
	*recorder
	posting chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRecorder) Publish(ctx context.Context, channel string, m domain.Message) error {
	if m.Kind == domain.MessageKindQuestion {
		g.once.Do(func() {
			close(g.posting)
			<-g.release
		})
	}

	return g.recorder.Publish(ctx, channel, m)
}

// noTimerClock cannot schedule round timers.
type noTimerClock struct {
	*clock.FakeClock
}

func (noTimerClock) AfterFunc(time.Duration, func()) *clock.Timer { return nil }

type failingScorer struct {
	err error
}

func (f failingScorer) GetScore(context.Context, string) (int64, error) { return 0, f.err }

func (f failingScorer) AddScore(context.Context, string, int64) (int64, error) { return 0, f.err }

func (f failingScorer) Top(context.Context, int) ([]domain.ScoreEntry, error) { return nil, f.err }

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) subscribe(eb *event.Bus) {
	for _, name := range []string{domain.EventNameSessionStarted, domain.EventNameRoundSettled, domain.EventNameSessionEnded} {
		eb.Subscribe(name, func(_ context.Context, e event.Event) error {
			l.mu.Lock()
			l.events = append(l.events, e)
			l.mu.Unlock()
			return nil
		})
	}
}

func (l *eventLog) settled() []domain.EventRoundSettled {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.EventRoundSettled
	for _, e := range l.events {
		if e, ok := e.(domain.EventRoundSettled); ok {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) ended() []domain.EventSessionEnded {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.EventSessionEnded
	for _, e := range l.events {
		if e, ok := e.(domain.EventSessionEnded); ok {
			out = append(out, e)
		}
	}
	return out
}
