// Package config reads trackwise settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/abhisek/trackwise/internal/calendar"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/llm"
	"github.com/abhisek/trackwise/internal/notify"
	"github.com/abhisek/trackwise/internal/schedule"
)

// Config holds process-wide settings.
type Config struct {
	// DBPath is the SQLite database file. Ignored when DatabaseURL is set.
	DBPath string

	// DatabaseURL selects the Postgres backend.
	DatabaseURL string

	// RedisURL enables publishing achievement unlocks to RedisChannel.
	RedisURL     string
	RedisChannel string

	Location  *time.Location
	DayStart  calendar.Clock
	Estimator lesson.Estimator

	LogLevel  string
	LogFormat string

	LLM llm.Config
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		RedisChannel: notify.DefaultChannel,
		Location:     time.Local,
		DayStart:     schedule.DefaultDayStart,
		Estimator:    lesson.DefaultEstimator(),
		LogLevel:     "warn",
		LogFormat:    "text",
		LLM:          llm.DefaultConfig(),
	}
}

// Load reads files (".env" when none are given) into the environment
// without overriding variables already set, then builds the Config. A
// missing file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from TRACKWISE_* variables.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.DBPath = os.Getenv("TRACKWISE_DB")
	cfg.DatabaseURL = os.Getenv("TRACKWISE_DATABASE_URL")
	cfg.RedisURL = os.Getenv("TRACKWISE_REDIS_URL")
	cfg.RedisChannel = getEnv("TRACKWISE_REDIS_CHANNEL", cfg.RedisChannel)
	cfg.LogLevel = getEnv("TRACKWISE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("TRACKWISE_LOG_FORMAT", cfg.LogFormat)
	cfg.LLM = llm.ConfigFromEnv()

	if tz := os.Getenv("TRACKWISE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TRACKWISE_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}
	if v := os.Getenv("TRACKWISE_DAY_START"); v != "" {
		c, err := calendar.ParseClock(v)
		if err != nil {
			return cfg, fmt.Errorf("TRACKWISE_DAY_START: %w", err)
		}
		cfg.DayStart = c
	}
	var err error
	if cfg.Estimator.TheoryMinutes, err = getInt("TRACKWISE_THEORY_MINUTES", cfg.Estimator.TheoryMinutes); err != nil {
		return cfg, err
	}
	if cfg.Estimator.ExerciseMinutes, err = getInt("TRACKWISE_EXERCISE_MINUTES", cfg.Estimator.ExerciseMinutes); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges. LLM settings are validated only when a
// command needs a provider.
func (c Config) Validate() error {
	if c.Estimator.TheoryMinutes <= 0 || c.Estimator.ExerciseMinutes <= 0 {
		return errors.New("default lesson durations must be positive")
	}
	if !c.DayStart.Valid() || c.DayStart == calendar.EndOfDay {
		return fmt.Errorf("day start %s is outside the day", c.DayStart)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
