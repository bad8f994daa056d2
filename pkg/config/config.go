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
	Moderation ModerationConfig
	Seed       SeedConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ModerationConfig tunes the submission listing and review flow.
type ModerationConfig struct {
	// PageSize is the fixed number of submissions per listing page.
	PageSize int
	// ListCacheTTL bounds how long a first-page listing may be served from Redis.
	ListCacheTTL time.Duration
	// CacheMaxAge and StaleWhileRevalidate feed the Cache-Control header on listings.
	CacheMaxAge          time.Duration
	StaleWhileRevalidate time.Duration
	// RefreshInterval is the background re-poll cadence of the review view.
	RefreshInterval time.Duration
}

// SeedConfig governs synthetic submission generation for local environments.
type SeedConfig struct {
	Count                int
	SubmissionWindowDays int
	UpdateWindowDays     int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	pageSize := v.GetInt("MODERATION_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 50
	}
	cfg.Moderation = ModerationConfig{
		PageSize:             pageSize,
		ListCacheTTL:         parseDuration(v.GetString("LIST_CACHE_TTL"), 30*time.Second),
		CacheMaxAge:          parseDuration(v.GetString("API_CACHE_MAX_AGE"), 5*time.Minute),
		StaleWhileRevalidate: parseDuration(v.GetString("API_CACHE_STALE_WHILE_REVALIDATE"), 10*time.Minute),
		RefreshInterval:      parseDuration(v.GetString("VIEW_REFRESH_INTERVAL"), 45*time.Second),
	}

	cfg.Seed = SeedConfig{
		Count:                v.GetInt("SEED_COUNT"),
		SubmissionWindowDays: v.GetInt("SEED_SUBMISSION_WINDOW_DAYS"),
		UpdateWindowDays:     v.GetInt("SEED_UPDATE_WINDOW_DAYS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "moderation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MODERATION_PAGE_SIZE", 50)
	v.SetDefault("LIST_CACHE_TTL", "30s")
	v.SetDefault("API_CACHE_MAX_AGE", "5m")
	v.SetDefault("API_CACHE_STALE_WHILE_REVALIDATE", "10m")
	v.SetDefault("VIEW_REFRESH_INTERVAL", "45s")

	v.SetDefault("SEED_COUNT", 1000)
	v.SetDefault("SEED_SUBMISSION_WINDOW_DAYS", 30)
	v.SetDefault("SEED_UPDATE_WINDOW_DAYS", 7)
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
