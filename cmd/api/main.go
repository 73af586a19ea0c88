// API entrypoint: loads configuration, wires dependencies and starts the
// HTTP server.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmgclub/movienight/internal/app/conclusion"
	"github.com/mmgclub/movienight/internal/app/game"
	"github.com/mmgclub/movienight/internal/app/httpapi"
	"github.com/mmgclub/movienight/internal/app/party"
	"github.com/mmgclub/movienight/internal/app/scoring"
	"github.com/mmgclub/movienight/internal/domain"
	"github.com/mmgclub/movienight/internal/platform/clock"
	"github.com/mmgclub/movienight/internal/platform/config"
	"github.com/mmgclub/movienight/internal/platform/health"
	"github.com/mmgclub/movienight/internal/platform/ids"
	"github.com/mmgclub/movienight/internal/platform/logger"
	"github.com/mmgclub/movienight/internal/platform/migrations"
	"github.com/mmgclub/movienight/internal/platform/ratelimit"
	postgresstorage "github.com/mmgclub/movienight/internal/platform/storage/postgres"
	redisstorage "github.com/mmgclub/movienight/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// One shared connection for the whole lifecycle: pooling plus readiness.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to unwrap sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		// Automatic migrations only when enabled, to avoid surprises in production.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("automatic migration failed", "err", err)
		}
	}

	// Redis holds the party cursor, presence and the poll limiter; without it
	// the reveal endpoints cannot serve.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "err", err)
	}
	defer redisClient.Close()

	rounds := postgresstorage.NewRoundRepository(db)
	participants := postgresstorage.NewParticipantRepository(db)
	movies := postgresstorage.NewMovieRepository(db)
	ratings := postgresstorage.NewRatingRepository(db)
	scores := postgresstorage.NewScoreRepository(db)
	profiles := postgresstorage.NewProfileRepository(db)

	partyState := redisstorage.NewPartyStateStore(redisClient, cfg.PartyKeyPrefix)
	presenceTTL := time.Duration(cfg.PartyPresenceTTLSeconds) * time.Second
	presence := redisstorage.NewPresenceStore(redisClient, cfg.PartyKeyPrefix, presenceTTL)

	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	var limiter domain.PollLimiter = ratelimit.NewNoop()
	if cfg.RateLimitEnabled {
		window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix)
	}

	weights := scoring.Weights{
		Guess:    cfg.ScoreWeightGuess,
		Known:    cfg.ScoreWeightKnown,
		Unseen:   cfg.ScoreWeightUnseen,
		Liked:    cfg.ScoreWeightLiked,
		Disliked: cfg.ScoreWeightDisliked,
	}

	gameSvc := game.NewService(rounds, participants, movies, ratings, scores, profiles, idGen)
	concludeSvc := conclusion.NewService(rounds, movies, ratings, scores, profiles, partyState, clockSystem, weights, idGen, logger.L())
	advanceDelay := time.Duration(cfg.PartyAdvanceDelay) * time.Second
	partySvc := party.NewService(rounds, movies, profiles, partyState, presence, clockSystem, advanceDelay)

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	// HTTP exposes the API, health checks and the metrics Prometheus scrapes.
	api := httpapi.New(gameSvc, concludeSvc, partySvc, limiter, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
