package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string

	// Cutoff policy. The grace factor and the fallback budget for
	// unestimated tasks are business decisions, so they stay configurable.
	CutoffGraceFactor   float64
	CutoffFallbackHours float64
	SweepInterval       time.Duration

	// Cooperative timer
	TimerWarnRatio    float64
	TimerTickInterval time.Duration
	TimerStateMaxAge  time.Duration
	TimerStateDir     string
}

func Load() *Config {
	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "worktrack"),
		DBPassword:    getEnv("DB_PASSWORD", "worktrack"),
		DBName:        getEnv("DB_NAME", "work_tracking"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),

		CutoffGraceFactor:   getEnvFloat("CUTOFF_GRACE_FACTOR", 1.2),
		CutoffFallbackHours: getEnvFloat("CUTOFF_FALLBACK_HOURS", 2),
		SweepInterval:       getEnvDuration("CUTOFF_SWEEP_INTERVAL", 5*time.Minute),

		TimerWarnRatio:    getEnvFloat("TIMER_WARN_RATIO", 0.9),
		TimerTickInterval: getEnvDuration("TIMER_TICK_INTERVAL", time.Second),
		TimerStateMaxAge:  getEnvDuration("TIMER_STATE_MAX_AGE", 7*24*time.Hour),
		TimerStateDir:     getEnv("TIMER_STATE_DIR", "./timer-state"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
