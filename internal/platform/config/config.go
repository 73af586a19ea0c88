// Package config centralizes loading of the environment variables used by the binary.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config aggregates every parameter the API server needs.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PartyKeyPrefix          string
	PartyAdvanceDelay       int
	PartyPresenceTTLSeconds int

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	ScoreWeightGuess    int
	ScoreWeightKnown    int
	ScoreWeightUnseen   int
	ScoreWeightLiked    int
	ScoreWeightDisliked int

	AutoMigrate bool
}

func Load() (Config, error) {
	// Defaults favor local runs; the variables override them in Docker/K8s.
	cfg := Config{
		HTTPAddress:             getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:            getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:            getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:            getEnv("POSTGRES_USER", "mmg"),
		PostgresPassword:        getEnv("POSTGRES_PASSWORD", "mmg"),
		PostgresDB:              getEnv("POSTGRES_DB", "mmg_rounds"),
		PostgresSSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		PartyKeyPrefix:          getEnv("REDIS_PARTY_PREFIX", "party"),
		PartyAdvanceDelay:       getEnvAsInt("PARTY_ADVANCE_DELAY_SECONDS", 2),
		PartyPresenceTTLSeconds: getEnvAsInt("PARTY_PRESENCE_TTL_SECONDS", 300),
		RateLimitEnabled:        getEnv("POLL_RATE_LIMIT_ENABLED", "true") == "true",
		RateLimitMaxActions:     getEnvAsInt("POLL_RATE_LIMIT_MAX", 60),
		RateLimitWindowSeconds:  getEnvAsInt("POLL_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:      getEnv("POLL_RATE_LIMIT_PREFIX", "ratelimit"),
		ScoreWeightGuess:        getEnvAsInt("SCORE_WEIGHT_GUESS", 2),
		ScoreWeightKnown:        getEnvAsInt("SCORE_WEIGHT_KNOWN", 1),
		ScoreWeightUnseen:       getEnvAsInt("SCORE_WEIGHT_UNSEEN", 1),
		ScoreWeightLiked:        getEnvAsInt("SCORE_WEIGHT_LIKED", 1),
		ScoreWeightDisliked:     getEnvAsInt("SCORE_WEIGHT_DISLIKED", 1),
		AutoMigrate:             getEnvAsBool("DB_AUTO_MIGRATE", true),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// DSN format stays compatible with GORM and migration tooling.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
