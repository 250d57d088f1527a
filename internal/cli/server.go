package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashcard-quiz-service/internal/answer"
	"flashcard-quiz-service/internal/app"
	"flashcard-quiz-service/internal/config"
	"flashcard-quiz-service/internal/deck"
	"flashcard-quiz-service/internal/domain"
	"flashcard-quiz-service/internal/infra/file"
	"flashcard-quiz-service/internal/infra/lrs"
	"flashcard-quiz-service/internal/infra/memory"
	"flashcard-quiz-service/internal/infra/postgres"
	infraredis "flashcard-quiz-service/internal/infra/redis"
	"flashcard-quiz-service/internal/logging"
	"flashcard-quiz-service/internal/metrics"
	transport "flashcard-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the flashcard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var sinks app.FanoutSink
	var loader memory.DeckLoader = memory.NewStaticDeckLoader(sampleDecks())
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewDeckLoader(pool)

		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, postgres.NewStatementStore(db))
	case cfg.Decks.Dir != "":
		loader = file.NewDeckLoader(cfg.Decks.Dir)
	}

	deckTTL := config.TTLDuration(cfg.Decks.TTL, 10*time.Minute)
	var deckRepo app.DeckRepository
	var store app.SessionRepository
	if redisClient != nil {
		deckRepo = infraredis.NewDeckRepository(redisClient, loader, deckTTL, logger)
		store = infraredis.NewSessionStore(redisClient, redisTTL)
		if cfg.Reporting.StatementStream != "" {
			sinks = append(sinks, infraredis.NewStatementStream(redisClient, cfg.Reporting.StatementStream))
		}
	} else {
		deckRepo = memory.NewDeckRepository(loader, deckTTL)
		store = memory.NewSessionStore()
	}

	if cfg.Reporting.LRSEndpoint != "" {
		sinks = append(sinks, lrs.New(lrs.Config{
			Endpoint: cfg.Reporting.LRSEndpoint,
			Username: cfg.Reporting.Username,
			Password: cfg.Reporting.Password,
			Timeout:  config.TTLDuration(cfg.Reporting.Timeout, 10*time.Second),
		}))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New()
	if err := collector.Register(registry); err != nil {
		return err
	}

	service := newQuizService(cfg, store, deckRepo, sinks, logger, collector)
	wsHandler := transport.NewWSHandler(service, transport.HandlerConfig{
		AutoAdvance:       config.TTLDuration(cfg.Session.AutoAdvance, 0),
		MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
		Burst:             cfg.WebSocket.Burst,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting flashcard service",
			zap.String("addr", server.Addr),
			zap.Int("sinks", len(sinks)),
			zap.Bool("redis", redisClient != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newQuizService builds the service with one answer evaluator shared by every
// session, so its parse cache spans the whole process.
func newQuizService(cfg config.Config, store app.SessionRepository, decks app.DeckRepository, sink app.ReportSink, logger *zap.Logger, collector *metrics.Collector) *app.QuizService {
	evaluator := answer.NewEvaluatorWithParser(answer.NewParser(cfg.Answers.Delimiter, cfg.Answers.Escape))
	return app.NewQuizService(store, decks, sink,
		app.WithLogger(logger),
		app.WithMetrics(collector),
		app.WithActivityBase(cfg.Reporting.ActivityBase),
		app.WithDeckOptions(deck.WithEvaluator(evaluator)),
	)
}

// sampleDecks is served when neither Postgres nor a deck directory is configured.
func sampleDecks() map[string]domain.Deck {
	return map[string]domain.Deck{
		"sample": {
			ID:          "sample",
			Title:       "Warm-up",
			Description: "A tiny deck to try the service without a content store.",
			Cards: []domain.Card{
				{Question: "What is 2 + 2?", Answer: "4/four"},
				{Question: "Capital of France?", Answer: "Paris"},
				{Question: "Write a date as day and month", Answer: `01\/05/1\/5`, Hint: "Use a slash."},
			},
		},
	}
}
