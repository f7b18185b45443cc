package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformStrings "garrison/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	PostgresDSN    string
	Redis          RedisConfig
	KafkaBrokers   []string
	SecurityTopic  string
	AdminTokenHash string

	// AlertRiskThreshold is the risk score at or above which audit events
	// trigger an alert dispatch.
	AlertRiskThreshold int

	// Mutation rate limit applied per actor on record-changing endpoints.
	MutationMaxAttempts int
	MutationWindow      time.Duration

	JWTSigningKey string
}

// RedisConfig holds connection tuning for the optional Redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GARRISON_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	cfg := Server{
		Addr:                addr,
		PostgresDSN:         os.Getenv("GARRISON_POSTGRES_DSN"),
		AdminTokenHash:      os.Getenv("GARRISON_ADMIN_TOKEN_HASH"),
		AlertRiskThreshold:  intEnv("GARRISON_ALERT_RISK_THRESHOLD", 80),
		MutationMaxAttempts: intEnv("GARRISON_MUTATION_MAX_ATTEMPTS", 10),
		MutationWindow:      durationEnv("GARRISON_MUTATION_WINDOW", 5*time.Minute),
		JWTSigningKey:       jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("GARRISON_REDIS_URL"),
			PoolSize:     intEnv("GARRISON_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("GARRISON_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationEnv("GARRISON_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("GARRISON_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("GARRISON_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("GARRISON_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	cfg.SecurityTopic = os.Getenv("GARRISON_SECURITY_TOPIC")
	if cfg.SecurityTopic == "" {
		cfg.SecurityTopic = "garrison.audit.security"
	}

	return cfg
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(raw string) []string {
	return platformStrings.DedupeAndTrim(strings.Split(raw, ","))
}
