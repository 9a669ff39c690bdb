package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Jobs       JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// ConnMaxLifetime recycles pooled connections; zero keeps them forever.
	ConnMaxLifetime time.Duration
	// StatementTimeout bounds every query server side; zero disables it.
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig tunes the session planner, availability checks and
// alternative start search.
type SchedulingConfig struct {
	Enabled              bool
	ProposalTTL          time.Duration
	DefaultTotalSessions int
	LockThreshold        int
	MaxAlternatives      int
	SearchTimeout        time.Duration
	BusyCacheTTL         time.Duration
	BlockedRatio         float64
	BlockedMinOccurrence int
}

// JobsConfig sizes the background worker queue.
type JobsConfig struct {
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		ConnMaxLifetime:  parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 0),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins:   splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
		MaxAge:           parseDuration(v.GetString("CORS_MAX_AGE"), 10*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		Enabled:              v.GetBool("ENABLE_SCHEDULING"),
		ProposalTTL:          parseDuration(v.GetString("SCHEDULING_PROPOSAL_TTL"), 30*time.Minute),
		DefaultTotalSessions: positiveInt(v.GetInt("SCHEDULING_DEFAULT_TOTAL_SESSIONS"), 12),
		LockThreshold:        positiveInt(v.GetInt("SCHEDULING_LOCK_THRESHOLD"), 1),
		MaxAlternatives:      positiveInt(v.GetInt("SCHEDULING_MAX_ALTERNATIVES"), 3),
		SearchTimeout:        parseDuration(v.GetString("SCHEDULING_SEARCH_TIMEOUT"), 5*time.Second),
		BusyCacheTTL:         parseDuration(v.GetString("SCHEDULING_BUSY_CACHE_TTL"), 2*time.Minute),
		BlockedRatio:         v.GetFloat64("SCHEDULING_BLOCKED_RATIO"),
		BlockedMinOccurrence: positiveInt(v.GetInt("SCHEDULING_BLOCKED_MIN_OCCURRENCES"), 2),
	}
	if cfg.Scheduling.BlockedRatio <= 0 || cfg.Scheduling.BlockedRatio > 1 {
		cfg.Scheduling.BlockedRatio = 0.5
	}

	cfg.Jobs = JobsConfig{
		Workers: positiveInt(v.GetInt("JOBS_WORKERS"), 1),
		Retries: v.GetInt("JOBS_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("CORS_ALLOW_CREDENTIALS", false)
	v.SetDefault("CORS_MAX_AGE", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULING", true)
	v.SetDefault("SCHEDULING_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULING_DEFAULT_TOTAL_SESSIONS", 12)
	v.SetDefault("SCHEDULING_LOCK_THRESHOLD", 1)
	v.SetDefault("SCHEDULING_MAX_ALTERNATIVES", 3)
	v.SetDefault("SCHEDULING_SEARCH_TIMEOUT", "5s")
	v.SetDefault("SCHEDULING_BUSY_CACHE_TTL", "2m")
	v.SetDefault("SCHEDULING_BLOCKED_RATIO", 0.5)
	v.SetDefault("SCHEDULING_BLOCKED_MIN_OCCURRENCES", 2)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
