package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"./planning-poker.db"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	ChatLimit   int      `env:"CHAT_LIMIT" envDefault:"200"`

	DefaultTimePerStory int    `env:"DEFAULT_TIME_PER_STORY" envDefault:"5"`
	DefaultGameMode     string `env:"DEFAULT_GAME_MODE" envDefault:"strict"`

	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile    string `env:"EXPORT_FILE" envDefault:"./planning-poker-results.txt"`

	// StaticDir holds a built front-end. Empty disables it.
	StaticDir string `env:"STATIC_DIR"`
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.DefaultTimePerStory < 1 {
		c.DefaultTimePerStory = 1
	}
	return c, nil
}
