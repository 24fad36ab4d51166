package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-battle-coordinator/internal/battle"
	"quiz-battle-coordinator/internal/config"
	"quiz-battle-coordinator/internal/domain"
	"quiz-battle-coordinator/internal/infra/memory"
	pgloader "quiz-battle-coordinator/internal/infra/postgres"
	redisinfra "quiz-battle-coordinator/internal/infra/redis"
	transport "quiz-battle-coordinator/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the coordinator.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz-battle coordinator",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Question.TTL, 10*time.Minute)
	var questionRepo battle.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	var rooms battle.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	questionTime := config.TTLDuration(cfg.Battle.QuestionTime, battle.QuestionTime)
	service := battle.NewBattleServiceWithTimer(rooms, questionRepo, questionTime)
	wsHandler := transport.NewWSHandler(service)

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
		log.Printf("starting quiz-battle coordinator on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides minimal scoring metadata for demos without a
// database; swap the loader for the Postgres-backed one in production.
func sampleQuestions() map[string]domain.Question {
	questions := make(map[string]domain.Question, 10)
	for _, q := range []domain.Question{
		{ID: "q-001", CorrectIndex: 1, ChoiceCount: 4},
		{ID: "q-002", CorrectIndex: 0, ChoiceCount: 4},
		{ID: "q-003", CorrectIndex: 3, ChoiceCount: 4},
		{ID: "q-004", CorrectIndex: 2, ChoiceCount: 4},
		{ID: "q-005", CorrectIndex: 1, ChoiceCount: 4},
		{ID: "q-006", CorrectIndex: 0, ChoiceCount: 4},
		{ID: "q-007", CorrectIndex: 2, ChoiceCount: 4},
		{ID: "q-008", CorrectIndex: 3, ChoiceCount: 4},
		{ID: "q-009", CorrectIndex: 1, ChoiceCount: 4},
		{ID: "q-010", CorrectIndex: 0, ChoiceCount: 4},
	} {
		questions[q.ID] = q
	}
	return questions
}
