package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"expo-quiz-service/internal/app"
	"expo-quiz-service/internal/config"
	"expo-quiz-service/internal/domain"
	"expo-quiz-service/internal/infra/memory"
	pgstore "expo-quiz-service/internal/infra/postgres"
	redisstore "expo-quiz-service/internal/infra/redis"
	transport "expo-quiz-service/internal/transport/http"
	"expo-quiz-service/pkg/logger"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	log := logger.New(cfg.Server.Debug)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var sessions app.SessionRepository
	var answers app.AnswerStore
	var feed app.ChangeFeed
	if redisClient != nil {
		sessions = redisstore.NewSessionRepository(redisClient)
		answers = redisstore.NewAnswerStore(redisClient)
		feed = redisstore.NewFeed(redisClient)
	} else {
		sessions = memory.NewSessionRepository()
		answers = memory.NewAnswerStore()
		feed = memory.NewFeed()
	}

	var questionStore app.QuestionStore
	var participants app.ParticipantStore
	if pool != nil {
		questionStore = pgstore.NewQuestionStore(pool)
		participants = pgstore.NewParticipantStore(pool)
	} else {
		questionStore = memory.NewQuestionStore(sampleQuestions()...)
		memParticipants := memory.NewParticipantStore()
		// Demo mode gets a built-in operator so the quiz can be driven
		// without a seeded database.
		_ = memParticipants.Register(ctx, domain.Participant{
			UserID:      "admin",
			DisplayName: "Admin",
			IsAdmin:     true,
			CreatedAt:   time.Now(),
		})
		participants = memParticipants
	}

	cacheTTL := config.DurationOr(cfg.Quiz.CacheTTL, 10*time.Minute)
	questions := app.NewQuestionCache(questionStore, cacheTTL)

	durations := app.Durations{
		Question: config.DurationOr(cfg.Quiz.QuestionDuration, app.DefaultDurations.Question),
		Results:  config.DurationOr(cfg.Quiz.ResultsDuration, app.DefaultDurations.Results),
	}
	engine := app.NewEngine(sessions, questions, participants, answers, feed, durations, log)
	ledger := app.NewLedger(sessions, questions, answers, feed, log)
	aggregator := app.NewAggregator(participants, answers)
	service := app.NewService(engine, ledger, aggregator, sessions, questions, participants, feed)

	pollInterval := config.DurationOr(cfg.Quiz.PollInterval, 2*time.Second)
	wsHandler := transport.NewWSHandler(service, pollInterval, log)

	tickInterval := config.DurationOr(cfg.Quiz.TickInterval, 5*time.Second)
	ticker := app.NewTicker(engine, tickInterval, log)
	tickerCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go ticker.Run(tickerCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}
	stopTicker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions backs the demo mode; swap in Postgres for production runs.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q-1",
			Text:          "What is 2 + 2?",
			OptionA:       "3",
			OptionB:       "4",
			OptionC:       "5",
			OptionD:       "22",
			CorrectOption: domain.OptionB,
			Order:         1,
		},
		{
			ID:            "q-2",
			Text:          "Which planet is known as the Red Planet?",
			OptionA:       "Venus",
			OptionB:       "Jupiter",
			OptionC:       "Mars",
			OptionD:       "Saturn",
			CorrectOption: domain.OptionC,
			Order:         2,
		},
	}
}
