package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	// Empty means the in-process ticket pool and event bus are used.
	RedisAddr string

	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderRegion  string
	ProviderZone    string
	MachineTemplate string

	DefaultLadder domain.Ladder
	QueueTick     time.Duration

	ProvisionPollInterval time.Duration
	ProvisionTimeout      time.Duration
	ShutdownPollInterval  time.Duration
	ShutdownTimeout       time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "arena.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", ""),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		ProviderRegion:  getEnv("PROVIDER_REGION", "europe-west1"),
		ProviderZone:    getEnv("PROVIDER_ZONE", "europe-west1-b"),
		MachineTemplate: getEnv("MACHINE_TEMPLATE", "game-server-template"),

		DefaultLadder: domain.Ladder(getEnv("DEFAULT_LADDER", string(domain.Ladder5v5))),
		QueueTick:     constants.QueueTickInterval,

		ProvisionPollInterval: constants.ProvisionPollInterval,
		ProvisionTimeout:      constants.ProvisionTimeout,
		ShutdownPollInterval:  constants.ShutdownPollInterval,
		ShutdownTimeout:       constants.ShutdownTimeout,
	}

	if cfg.ProviderBaseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	if !cfg.DefaultLadder.Valid() {
		return nil, fmt.Errorf("invalid DEFAULT_LADDER %q", cfg.DefaultLadder)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("redis_addr", cfg.RedisAddr).
		Str("provider_zone", cfg.ProviderZone).
		Str("default_ladder", string(cfg.DefaultLadder)).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
