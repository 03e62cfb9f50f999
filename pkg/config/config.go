package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Evidence archive backends.
const (
	EvidenceFS  = "fs"
	EvidenceS3  = "s3"
	EvidenceGCS = "gcs"
)

// Config holds process configuration.
type Config struct {
	LogLevel string

	Store         string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CollectorTimeout time.Duration
	// CollectorRateLimit caps calls per second into each collector; 0 disables it.
	CollectorRateLimit float64
	CollectorBurst     int
	RulesFile          string

	Evidence EvidenceConfig

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
}

// EvidenceConfig selects where canonical explanations are archived.
// An empty Type disables archiving.
type EvidenceConfig struct {
	Type    string
	DataDir string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	GCSBucket string
	GCSPrefix string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      strings.ToUpper(getenv("LOG_LEVEL", "INFO")),
		Store:         strings.ToLower(getenv("RISKGOV_STORE", StoreMemory)),
		DatabaseURL:   getenv("DATABASE_URL", "file:riskgov.db"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RulesFile:     os.Getenv("RULES_FILE"),
		Evidence: EvidenceConfig{
			Type:       strings.ToLower(os.Getenv("EVIDENCE_STORAGE_TYPE")),
			DataDir:    getenv("DATA_DIR", "data"),
			S3Bucket:   os.Getenv("EVIDENCE_S3_BUCKET"),
			S3Region:   firstNonEmpty(os.Getenv("EVIDENCE_S3_REGION"), os.Getenv("AWS_REGION"), "us-east-1"),
			S3Endpoint: os.Getenv("EVIDENCE_S3_ENDPOINT"),
			S3Prefix:   os.Getenv("EVIDENCE_S3_PREFIX"),
			GCSBucket:  os.Getenv("EVIDENCE_GCS_BUCKET"),
			GCSPrefix:  os.Getenv("EVIDENCE_GCS_PREFIX"),
		},
		OTelEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CollectorTimeout, err = durationEnv("COLLECTOR_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CollectorRateLimit, err = floatEnv("COLLECTOR_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.CollectorBurst, err = intEnv("COLLECTOR_BURST", 1); err != nil {
		return nil, err
	}
	if cfg.OTelEnabled, err = boolEnv("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTelInsecure, err = boolEnv("OTEL_INSECURE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and nonsensical values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL: unknown level %q", c.LogLevel)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("RISKGOV_STORE: unsupported store %q", c.Store)
	}
	switch c.Evidence.Type {
	case "", EvidenceFS, EvidenceS3, EvidenceGCS:
	default:
		return fmt.Errorf("EVIDENCE_STORAGE_TYPE: unsupported evidence storage %q", c.Evidence.Type)
	}
	if c.CollectorTimeout <= 0 {
		return fmt.Errorf("COLLECTOR_TIMEOUT: must be positive, got %s", c.CollectorTimeout)
	}
	if c.CollectorRateLimit < 0 {
		return fmt.Errorf("COLLECTOR_RATE_LIMIT: must not be negative, got %g", c.CollectorRateLimit)
	}
	if c.CollectorBurst < 1 {
		return fmt.Errorf("COLLECTOR_BURST: must be at least 1, got %d", c.CollectorBurst)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB: must not be negative, got %d", c.RedisDB)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
