package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/score"
	"github.com/victornm/trivia/internal/session"
)

type Config struct {
	Router       gin.IRouter
	EventBus     *event.Bus
	Session      *session.Service
	Score        *score.Service
	Dispatcher   Dispatcher
	Redis        Redis
	PubsubPrefix string
	Now          func() time.Time
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Dispatcher handles a chat message posted over HTTP the same way as one
// received from the chat transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, m domain.InboundMessage) error
}

type API struct {
	ss  *session.Service
	scs *score.Service
	d   Dispatcher

	redis  Redis
	prefix string
	now    func() time.Time
}

func New(c Config) *API {
	a := &API{
		ss:     c.Session,
		scs:    c.Score,
		d:      c.Dispatcher,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
		now:    c.Now,
	}

	if a.now == nil {
		a.now = time.Now
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1")
	v1.POST("/channels/:channel/sessions", a.StartSession)
	v1.DELETE("/channels/:channel/sessions", a.CancelSession)
	v1.GET("/channels/:channel/sessions", a.GetSession)
	v1.POST("/channels/:channel/messages", a.PostMessage)
	v1.GET("/scores", a.ListTopScores)
	v1.GET("/scores/:user", a.GetScore)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameScoreUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishScoreUpdated(ctx, e.(domain.EventScoreUpdated))
	})

	return a
}

type (
	StartSessionRequest struct {
		Author      string `json:"author"`
		Rounds      int    `json:"rounds"`
		ForcedIndex *int   `json:"forced_index"`
	}

	StartSessionResponse struct {
		SessionID string `json:"session_id,omitempty"`
		Started   bool   `json:"started"`
	}

	CancelSessionResponse struct {
		Cancelled bool `json:"cancelled"`
	}

	GetSessionResponse struct {
		Channel string `json:"channel"`
		Status  string `json:"status"`
	}

	PostMessageRequest struct {
		Author    string `json:"author"`
		Text      string `json:"text"`
		Moderator bool   `json:"moderator"`
	}

	GetScoreResponse struct {
		UserID string `json:"user_id"`
		Score  int64  `json:"score"`
	}

	ListTopScoresResponse struct {
		Entries []domain.ScoreEntry `json:"entries"`
	}
)

// StartSession starts a session in the background. A channel that already
// has one answers 200 with started false.
func (a *API) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abort(c, errors.InvalidArgument("invalid body: %v", err))
		return
	}

	id, started, err := a.ss.Launch(c.Request.Context(), session.StartSessionRequest{
		Channel:     c.Param("channel"),
		Author:      req.Author,
		Rounds:      req.Rounds,
		ForcedIndex: req.ForcedIndex,
	}, nil)
	if err != nil {
		a.abort(c, err)
		return
	}

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}

	c.JSON(status, StartSessionResponse{
		SessionID: id,
		Started:   started,
	})
}

func (a *API) CancelSession(c *gin.Context) {
	c.JSON(http.StatusOK, CancelSessionResponse{
		Cancelled: a.ss.Cancel(c.Request.Context(), c.Param("channel")),
	})
}

func (a *API) GetSession(c *gin.Context) {
	channel := c.Param("channel")

	c.JSON(http.StatusOK, GetSessionResponse{
		Channel: channel,
		Status:  a.ss.Status(channel).String(),
	})
}

func (a *API) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abort(c, errors.InvalidArgument("invalid body: %v", err))
		return
	}
	if req.Author == "" {
		a.abort(c, errors.InvalidArgument("author is required"))
		return
	}

	err := a.d.Dispatch(c.Request.Context(), domain.InboundMessage{
		Channel:   c.Param("channel"),
		Author:    req.Author,
		Text:      req.Text,
		Time:      a.now(),
		Moderator: req.Moderator,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (a *API) GetScore(c *gin.Context) {
	user := c.Param("user")

	total, err := a.scs.GetScore(c.Request.Context(), user)
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, GetScoreResponse{
		UserID: user,
		Score:  total,
	})
}

func (a *API) ListTopScores(c *gin.Context) {
	limit := score.DefaultTopLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.abort(c, errors.InvalidArgument("limit must be a number: got %q", s))
			return
		}
		limit = n
	}

	entries, err := a.scs.Top(c.Request.Context(), limit)
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ListTopScoresResponse{Entries: entries})
}

func (a *API) abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal || e.Code == errors.CodeUnavailable {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code.String(),
		"message": e.Message,
	})
}
