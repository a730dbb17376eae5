package domain

const (
	EventNameSessionStarted = "session.started"
	EventNameSessionEnded   = "session.ended"
	EventNameRoundSettled   = "round.settled"
	EventNameScoreUpdated   = "score.updated"
)

type EventSessionStarted struct {
	SessionID string
	Channel   string
	Rounds    int
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

type EventSessionEnded struct {
	SessionID string
	Channel   string
	// Played is the number of rounds that were published.
	Played int
	// Aborted is set when the session stopped because no question could be
	// produced.
	Aborted   bool
	Cancelled bool
}

func (EventSessionEnded) Name() string { return EventNameSessionEnded }

type EventRoundSettled struct {
	SessionID string
	RoundID   string
	Channel   string
	Seq       int
	Generator string
	Outcome   Outcome
	Winner    string
	Points    int64
}

func (EventRoundSettled) Name() string { return EventNameRoundSettled }

type EventScoreUpdated struct {
	Score Score
}

func (EventScoreUpdated) Name() string { return EventNameScoreUpdated }
