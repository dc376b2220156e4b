package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Feed       FeedConfig
	Classifier ClassifierConfig
	Extractor  ExtractorConfig
	Push       PushConfig
	Mail       MailConfig
	Retention  RetentionConfig
	Pipeline   PipelineConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	URL string
}

type FeedConfig struct {
	URL     string
	Timeout time.Duration
}

type ClassifierConfig struct {
	CorpusPath string
}

type ExtractorConfig struct {
	URL     string
	Timeout time.Duration
}

type PushConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type RetentionConfig struct {
	PostWindow time.Duration
	RideWindow time.Duration
}

type PipelineConfig struct {
	PollInterval time.Duration
	RateLimit    float64
	WorkerCount  int
	RetryDelay   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type AdminConfig struct {
	// AdminSecret protects the seed endpoint. When AdminSecretHash is
	// set it takes precedence and the presented secret is verified
	// against the bcrypt hash instead.
	AdminSecret     string
	AdminSecretHash string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Feed: FeedConfig{
			URL:     getEnv("FEED_URL", ""),
			Timeout: getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		},
		Classifier: ClassifierConfig{
			CorpusPath: getEnv("CLASSIFIER_CORPUS_PATH", ""),
		},
		Extractor: ExtractorConfig{
			URL:     getEnv("EXTRACTOR_URL", ""),
			Timeout: getEnvDuration("EXTRACTOR_TIMEOUT", 10*time.Second),
		},
		Push: PushConfig{
			URL:     getEnv("PUSH_URL", ""),
			APIKey:  getEnv("PUSH_API_KEY", ""),
			Timeout: getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", ""),
			Port:     getEnvInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "noreply@polyrides.app"),
			To:       getEnv("MAIL_TO", ""),
		},
		Retention: RetentionConfig{
			PostWindow: getEnvDuration("RETENTION_POST_WINDOW", 168*time.Hour),
			RideWindow: getEnvDuration("RETENTION_RIDE_WINDOW", 720*time.Hour),
		},
		Pipeline: PipelineConfig{
			PollInterval: getEnvDuration("PIPELINE_POLL_INTERVAL", 5*time.Minute),
			RateLimit:    getEnvFloat("PIPELINE_RATE_LIMIT", 5.0),
			WorkerCount:  getEnvInt("PIPELINE_WORKER_COUNT", 4),
			RetryDelay:   getEnvDuration("PIPELINE_RETRY_DELAY", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Admin: AdminConfig{
			AdminSecret:     getEnv("ADMIN_SECRET", ""),
			AdminSecretHash: getEnv("ADMIN_SECRET_HASH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("pipeline worker count must be at least 1")
	}
	if c.Retention.PostWindow <= 0 {
		return fmt.Errorf("post retention window must be positive")
	}
	if c.Retention.RideWindow <= 0 {
		return fmt.Errorf("ride retention window must be positive")
	}
	if c.Feed.Timeout <= 0 || c.Extractor.Timeout <= 0 || c.Push.Timeout <= 0 {
		return fmt.Errorf("network timeouts must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
