package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures backend process configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Media     MediaConfig
	Integrity IntegrityConfig
}

// DatabaseConfig selects the PostgreSQL event store when URL is set.
type DatabaseConfig struct {
	URL string
}

// SQLiteConfig selects the embedded SQLite event store when Path is set.
type SQLiteConfig struct {
	Path string
}

// RedisConfig selects the Redis event store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// EventTTL bounds how long per-exam event lists are kept.
	EventTTL time.Duration
}

// KafkaConfig enables the integrity event stream when Brokers is set.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// MediaConfig holds the real-time media server address and signing material
// for proctoring access tokens.
type MediaConfig struct {
	ServerURL string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
	// StaffToken gates proctor token issuance. Empty disables the route.
	StaffToken string
}

// IntegrityConfig bounds the recent-events query used by the staff console.
type IntegrityConfig struct {
	RecentWindow time.Duration
	RecentLimit  int
	// DirectoryPath points at an optional JSON file of student and exam
	// display labels.
	DirectoryPath string
}

var (
	DefaultRecentWindow = 2 * time.Hour
	DefaultRecentLimit  = 200
	DefaultTokenTTL     = 2 * time.Hour
	DefaultRedisTTL     = 24 * time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	mediaSecret := os.Getenv("MEDIA_API_SECRET")
	if mediaSecret == "" {
		// Development default - must be overridden in production
		mediaSecret = "dev-media-secret-change-in-production"
	}

	return Server{
		Addr:        envOr("EXAMGUARD_ADDR", ":8080"),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		SQLite: SQLiteConfig{
			Path: os.Getenv("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			EventTTL:     envDuration("REDIS_EVENT_TTL", DefaultRedisTTL),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_INTEGRITY_TOPIC", "examguard.integrity.events"),
		},
		Media: MediaConfig{
			ServerURL: envOr("MEDIA_SERVER_URL", "ws://localhost:7880"),
			APIKey:    envOr("MEDIA_API_KEY", "devkey"),
			APISecret: mediaSecret,
			TokenTTL:  envDuration("MEDIA_TOKEN_TTL", DefaultTokenTTL),
			// no development default: proctor tokens stay off unless configured
			StaffToken: os.Getenv("STAFF_API_TOKEN"),
		},
		Integrity: IntegrityConfig{
			RecentWindow:  envDuration("RECENT_WINDOW", DefaultRecentWindow),
			RecentLimit:   envInt("RECENT_LIMIT", DefaultRecentLimit),
			DirectoryPath: os.Getenv("DIRECTORY_PATH"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
