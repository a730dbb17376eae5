package domain

import (
	"time"
)

// Question is one trivia question produced by a generator. It is never
// mutated after it is produced.
type Question struct {
	// Generator is the name of the registry entry that produced the question.
	Generator   string
	Title       string
	Description string
	ImageURL    string

	// Answers lists the accepted answers in priority order. Never empty.
	Answers []string
	Fuzzy   bool

	// Modifier normalizes both the guess and each accepted answer before
	// comparison. Nil means identity.
	Modifier func(string) string

	// Extra is appended to the answer in resolution messages.
	Extra string
}

func (q Question) Prompt() *Prompt {
	return &Prompt{
		Title:       q.Title,
		Description: q.Description,
		ImageURL:    q.ImageURL,
	}
}

type Prompt struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type MessageKind string

const (
	MessageKindNotice   MessageKind = "notice"
	MessageKindQuestion MessageKind = "question"
	MessageKindExpired  MessageKind = "expired"
	MessageKindAnswered MessageKind = "answered"
)

// Message is an outbound chat message.
type Message struct {
	Kind     MessageKind `json:"kind"`
	Text     string      `json:"text"`
	Question *Prompt     `json:"question,omitempty"`
}

// InboundMessage is a chat message received from a channel.
type InboundMessage struct {
	Channel string    `json:"channel"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
	// Moderator is set by the transport when the author may force or cancel
	// games in the channel.
	Moderator bool `json:"moderator"`
}

// Outcome is how a round settled.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeExpired
	OutcomeAnswered
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExpired:
		return "expired"
	case OutcomeAnswered:
		return "answered"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Score represents a user's total after an update.
type Score struct {
	UserID     string
	Delta      int64
	Total      int64
	UpdateTime time.Time
}

// ScoreEntry is one row of a top-N listing. Listings are sorted by score in
// descending order.
type ScoreEntry struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
}
