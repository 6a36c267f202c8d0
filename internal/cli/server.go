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

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/infra/memory"
	pgloader "quiz-session-engine/internal/infra/postgres"
	redisinfra "quiz-session-engine/internal/infra/redis"
	"quiz-session-engine/internal/infra/results"
	"quiz-session-engine/internal/logger"
	transport "quiz-session-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
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

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, quizTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, quizTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 24*time.Hour)
	var snapshots app.SnapshotStore
	if redisClient != nil {
		snapshots = redisinfra.NewSnapshotStore(redisClient, sessionTTL, log)
	} else {
		snapshots = memory.NewSnapshotStore()
	}

	var submitter app.ResultSubmitter
	if cfg.Results.URL != "" {
		submitter = results.NewHTTPSubmitter(cfg.Results.URL, config.TTLDuration(cfg.Results.Timeout, 10*time.Second))
	} else {
		submitter = results.NewLogSubmitter(log)
	}

	leaderboardURL := cfg.Leaderboard.URL
	if leaderboardURL == "" {
		leaderboardURL = "/leaderboard"
	}

	service := app.NewAttemptService(questionRepo, snapshots, submitter, log)
	wsHandler := transport.NewWSHandler(service, leaderboardURL, log)

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
		log.Info("starting quiz session engine", zap.String("port", finalPort))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionSets provides demo content when no Postgres is configured.
func sampleQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{
					ID:               "q1",
					Prompt:           "What is 2 + 2?",
					Options:          []string{"3", "4", "5"},
					CorrectAnswer:    "4",
					TimeLimitSeconds: 30,
				},
				{
					ID:               "q2",
					Prompt:           "Which planet is known as the Red Planet?",
					Options:          []string{"Venus", "Mars", "Jupiter"},
					CorrectAnswer:    "Mars",
					TimeLimitSeconds: 30,
				},
			},
		},
	}
}
