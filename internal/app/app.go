package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/arena"
	"github.com/hvtran/goldenbell/internal/auth"
	"github.com/hvtran/goldenbell/internal/auth/jwt"
	"github.com/hvtran/goldenbell/internal/config"
	"github.com/hvtran/goldenbell/internal/db/repository"
	"github.com/hvtran/goldenbell/internal/logging"
	"github.com/hvtran/goldenbell/internal/question"
	"github.com/hvtran/goldenbell/internal/question/ai"
	"github.com/hvtran/goldenbell/internal/server"
	ws "github.com/hvtran/goldenbell/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	rooms     *arena.RoomManager
	relay     *arena.Relay
	bgCancels []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis, the arena, and the HTTP
// server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	teacherRepo := repository.NewTeacherRepository(pool)
	examSetRepo := repository.NewExamSetRepository(pool)

	authSvc := auth.NewService(teacherRepo, jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	}, logger)
	authHandlers := auth.NewHTTPHandlers(authSvc, logger)

	// Question gateway
	questionCache := question.NewCache(redisClient, 0)
	var aiGenerator question.Generator
	if cfg.AI.GeneratorURL != "" {
		aiGenerator = ai.NewGenerator(ai.Config{
			GeneratorURL: cfg.AI.GeneratorURL,
			GeneratorKey: cfg.AI.GeneratorKey,
			Timeout:      cfg.AI.HTTPTimeout,
		}, logger)
	} else {
		logger.Warn().Msg("AI generator not configured; topic matches use the sample bank")
	}
	questionSvc := question.NewService(examSetRepo, questionCache, aiGenerator, logger)

	// Arena
	rules := arena.Rules{
		ContinueAfterWrong:     cfg.Game.ContinueAfterWrong,
		CorrectAward:           cfg.Game.CorrectAward,
		WrongPenalty:           cfg.Game.WrongPenalty,
		DefaultQuestionSeconds: cfg.Game.DefaultQuestionSeconds,
	}
	wsHub := ws.NewHub(logger)
	relay := arena.NewRelay(redisClient, wsHub, logger)
	scoreboard := arena.NewScoreboard(redisClient, logger)
	metrics := arena.NewMetrics(prometheus.DefaultRegisterer)
	rooms := arena.NewRoomManager(relay, scoreboard, metrics, nil, cfg.Game.MaxPlayersPerRoom, logger)
	arenaHandler := arena.NewHandler(rooms, wsHub, questionSvc, examSetRepo, rules, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Handlers{
		Auth:    authHandlers,
		AuthSvc: authSvc,
		Sets:    server.NewSetHandlers(questionSvc, logger),
		Rooms:   server.NewRoomHandlers(rooms, scoreboard, examSetRepo, rules, logger),
		ArenaWS: server.NewArenaWSHandler(authSvc, arenaHandler, logger),
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		rooms:     rooms,
		relay:     relay,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.rooms.Shutdown()
	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.relay.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("room relay stopped")
		}
	}()
}
