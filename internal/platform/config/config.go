// Package config builds service configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Kafka    Kafka
	Provider Provider
	Session  Session
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
	JWTSigningKey  string
	AdminToken     string
}

// Database captures Postgres connection configuration.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures Redis connection configuration.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures broker configuration for the audit outbox publisher.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Provider captures the eKYC provider endpoint and credentials.
type Provider struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	APIVersion string
	Timeout    time.Duration
}

// Session captures verification session behavior.
type Session struct {
	TTL time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envString("HOMEHELP_ADDR", ":8080"),
			RequestTimeout: envDuration("HOMEHELP_REQUEST_TIMEOUT", 30*time.Second),
			JWTSigningKey:  envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminToken:     os.Getenv("ADMIN_TOKEN"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "homehelp.audit.entries"),
		},
		Provider: Provider{
			BaseURL:    envString("EKYC_BASE_URL", "https://api.sandbox.co.in"),
			APIKey:     os.Getenv("EKYC_API_KEY"),
			APISecret:  os.Getenv("EKYC_API_SECRET"),
			APIVersion: envString("EKYC_API_VERSION", "2.0"),
			Timeout:    envDuration("EKYC_TIMEOUT", 15*time.Second),
		},
		Session: Session{
			TTL: envDuration("VERIFICATION_SESSION_TTL", 10*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
