package config

import (
	"fmt"
	"time"

	"rps_arena/internal/logger"
	"rps_arena/internal/match"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string `env:"APP_PORT" envDefault:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON       bool   `env:"LOG_JSON" envDefault:"false"`

	// Redis backs the HTTP rate limiter; empty disables it (fail-open).
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// NATS receives match lifecycle notices; empty disables publishing.
	NatsURL string `env:"NATS_URL"`

	RateLimit  int           `env:"RATE_LIMIT" envDefault:"30"`
	RateWindow time.Duration `env:"RATE_WINDOW" envDefault:"1m"`

	Game GameConfig

	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" envDefault:"10s"`
}

type GameConfig struct {
	MaxRounds     int           `env:"MAX_ROUNDS" envDefault:"3"`
	MinPlayers    int           `env:"MIN_PLAYERS" envDefault:"2"`
	MaxPlayers    int           `env:"MAX_PLAYERS" envDefault:"2"`
	WinThreshold  int           `env:"WIN_THRESHOLD" envDefault:"2"`
	SessionLinger time.Duration `env:"SESSION_LINGER" envDefault:"30s"`
}

func (g GameConfig) Match() match.Config {
	return match.Config{
		MaxRounds:     g.MaxRounds,
		MinPlayers:    g.MinPlayers,
		MaxPlayers:    g.MaxPlayers,
		WinThreshold:  g.WinThreshold,
		SessionLinger: g.SessionLinger,
	}
}

// Load reads .env (if present) and the environment; bad config is fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Game.Match().Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("rate limit needs a positive count and window (got %d per %s)", cfg.RateLimit, cfg.RateWindow)
	}
	if cfg.CleanupInterval <= 0 || cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("cleanup and monitor intervals must be positive")
	}
	return &cfg, nil
}
