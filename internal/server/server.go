package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/chat"
	"github.com/victornm/trivia/internal/clock"
	"github.com/victornm/trivia/internal/command"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/question"
	"github.com/victornm/trivia/internal/score"
	"github.com/victornm/trivia/internal/score/postgres"
	scoreredis "github.com/victornm/trivia/internal/score/redis"
	"github.com/victornm/trivia/internal/score/sqlite"
	"github.com/victornm/trivia/internal/session"
	"github.com/victornm/trivia/internal/telemetry"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Log struct {
		Level string
	}

	Event struct {
		PoolSize       int
		HandlerTimeout time.Duration
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Score struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Score struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	SQLite struct {
		Path string
	}

	Score struct {
		// Driver is one of sqlite, postgres or redis.
		Driver string
	}

	Chat struct {
		BotUser string
	}

	Trivia struct {
		Points         int64
		GameLength     time.Duration
		RoundDelay     time.Duration
		MaxGames       int
		Cooldown       time.Duration
		FuzzyThreshold int
		// FactsPath is a YAML fact pack. Empty uses the embedded one.
		FactsPath string
	}
}

func DefaultConfig() Config {
	var c Config

	c.HTTP.Port = 8080
	c.Log.Level = "info"

	c.Event.PoolSize = 1000
	c.Event.HandlerTimeout = 10 * time.Second

	c.Redis.Pubsub.Addrs = []string{"localhost:6379"}
	c.Redis.Pubsub.Prefix = "trivia"
	c.Redis.Score.Addrs = []string{"localhost:6379"}
	c.Redis.Score.Prefix = "trivia"

	c.Postgres.Score.Addr = "localhost:5432"
	c.Postgres.Score.User = "postgres"
	c.Postgres.Score.Name = "trivia"

	c.SQLite.Path = "data/scores.db"
	c.Score.Driver = DriverSQLite
	c.Chat.BotUser = "trivia-bot"

	d := session.DefaultSettings()
	c.Trivia.Points = d.Points
	c.Trivia.GameLength = d.GameLength
	c.Trivia.RoundDelay = d.RoundDelay
	c.Trivia.MaxGames = d.MaxGames
	c.Trivia.Cooldown = d.Cooldown
	c.Trivia.FuzzyThreshold = answer.DefaultThreshold

	return c
}

type Server struct {
	c Config

	eb      *event.Bus
	metrics *prometheus.Registry

	infra struct {
		redis struct {
			pubsub redis.UniversalClient
			score  redis.UniversalClient
		}

		postgres struct {
			score *pgxpool.Pool
		}

		sqlite struct {
			score *sqlite.Store
		}
	}

	service struct {
		score    *score.Service
		session  *session.Service
		question *question.Source
	}

	router   *command.Router
	listener *chat.Listener

	http *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.eb = event.NewBus(
		event.WithPoolSize(c.Event.PoolSize),
		event.WithTimeout(c.Event.HandlerTimeout),
	)

	if err := s.initTelemetry(); err != nil {
		return nil, fmt.Errorf("server: init telemetry: %w", err)
	}

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initTelemetry() error {
	s.metrics = prometheus.NewRegistry()
	s.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := telemetry.NewMetrics(s.metrics)
	if err != nil {
		return err
	}
	m.Subscribe(s.eb)

	return nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	switch s.c.Score.Driver {
	case DriverPostgres:
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case DriverSQLite, "":
		if err := s.initSQLite(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	case DriverRedis:
	default:
		return fmt.Errorf("unknown score driver %q", s.c.Score.Driver)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	if s.c.Score.Driver == DriverRedis {
		s.infra.redis.score, err = connect(s.c.Redis.Score.Addrs, s.c.Redis.Score.Pass)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pc := s.c.Postgres.Score
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres.score = db
	return nil
}

func (s *Server) initSQLite() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := sqlite.Open(ctx, s.c.SQLite.Path)
	if err != nil {
		return err
	}

	s.infra.sqlite.score = st
	return nil
}

func (s *Server) scoreStore() (score.Store, error) {
	switch {
	case s.infra.postgres.score != nil:
		st := postgres.NewStore(postgres.Config{DB: s.infra.postgres.score})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return st, nil

	case s.infra.redis.score != nil:
		return scoreredis.NewStore(scoreredis.Config{
			Redis:  s.infra.redis.score,
			Prefix: s.c.Redis.Score.Prefix,
		}), nil

	default:
		return s.infra.sqlite.score, nil
	}
}

func (s *Server) initService() error {
	store, err := s.scoreStore()
	if err != nil {
		return fmt.Errorf("score store: %w", err)
	}

	s.service.score = score.NewService(score.Config{
		Store:    store,
		EventBus: s.eb,
	})

	facts, err := question.LoadFacts(s.c.Trivia.FactsPath)
	if err != nil {
		return fmt.Errorf("facts: %w", err)
	}
	s.service.question = question.NewSource(question.Config{Facts: facts})

	messenger := chat.NewPublisher(chat.PublisherConfig{
		Redis:  s.infra.redis.pubsub,
		Prefix: s.c.Redis.Pubsub.Prefix,
	})

	s.service.session = session.NewService(session.Config{
		Messenger: messenger,
		Questions: s.service.question,
		Scores:    s.service.score,
		Matcher:   answer.NewMatcher(s.c.Trivia.FuzzyThreshold),
		EventBus:  s.eb,
		Clock:     clock.Real(),
		Settings: session.Settings{
			Points:     s.c.Trivia.Points,
			GameLength: s.c.Trivia.GameLength,
			RoundDelay: s.c.Trivia.RoundDelay,
			MaxGames:   s.c.Trivia.MaxGames,
			Cooldown:   s.c.Trivia.Cooldown,
		},
	})

	s.router = command.NewRouter(command.Config{
		Session:    s.service.session,
		Messenger:  messenger,
		Redis:      s.infra.redis.pubsub,
		KeyPrefix:  s.c.Redis.Pubsub.Prefix,
		Cooldown:   s.c.Trivia.Cooldown,
		Generators: s.service.question.Names(),
	})

	s.listener = chat.NewListener(chat.ListenerConfig{
		Redis:      s.infra.redis.pubsub,
		Prefix:     s.c.Redis.Pubsub.Prefix,
		BotUser:    s.c.Chat.BotUser,
		Dispatcher: s.router,
	})

	return nil
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Score:        s.service.score,
		Dispatcher:   s.router,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := s.ctx

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, "server: chat listener started", "prefix", s.c.Redis.Pubsub.Prefix)
		return s.listener.Run(ctx)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.cancel()

	if err := s.service.session.Stop(ctx); err != nil {
		slog.ErrorContext(ctx, "server: stop sessions failed", "error", err)
	}

	s.eb.Stop()
	s.closeInfra(ctx)

	slog.InfoContext(ctx, "server: shutdown completed")
}

func (s *Server) closeInfra(ctx context.Context) {
	if db := s.infra.postgres.score; db != nil {
		db.Close()
	}

	if st := s.infra.sqlite.score; st != nil {
		if err := st.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close sqlite failed", "error", err)
		}
	}

	for _, r := range []redis.UniversalClient{s.infra.redis.pubsub, s.infra.redis.score} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}
}
