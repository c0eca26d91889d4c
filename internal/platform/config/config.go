package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "stayreg/pkg/platform/strings"
)

// Config is built once at process start and passed by reference into the
// orchestrator and store adapters. No ambient lookup anywhere else.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	DocumentDir string

	// ServiceURL is the registration service endpoint. ServiceAPIKey is sent
	// as X-API-Key when set.
	ServiceURL     string
	ServiceAPIKey  string
	ServiceTimeout time.Duration

	// RedisURL enables the advisory single-active-run lock when set.
	// The core engine never requires it; see the precondition in README.
	RedisURL string

	// KafkaBrokers/KafkaAuditTopic enable the Kafka audit publisher when set.
	KafkaBrokers    []string
	KafkaAuditTopic string

	// HostCountry is the ISO-3 code of the reporting country. Records with
	// this nationality are always rejected: the system reports foreigners only.
	HostCountry string

	// BatchSize is the remote protocol's maximum group size.
	BatchSize int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		HTTPAddr:        envOr("STAYREG_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("STAYREG_DATABASE_URL"),
		DocumentDir:     envOr("STAYREG_DOCUMENT_DIR", "documents"),
		ServiceURL:      os.Getenv("STAYREG_SERVICE_URL"),
		ServiceAPIKey:   os.Getenv("STAYREG_SERVICE_API_KEY"),
		ServiceTimeout:  120 * time.Second,
		RedisURL:        os.Getenv("STAYREG_REDIS_URL"),
		KafkaAuditTopic: envOr("STAYREG_KAFKA_AUDIT_TOPIC", "stayreg.audit"),
		HostCountry:     envOr("STAYREG_HOST_COUNTRY", "CZE"),
		BatchSize:       32,
	}
	if brokers := os.Getenv("STAYREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	if raw := os.Getenv("STAYREG_SERVICE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.ServiceTimeout = d
		}
	}
	if raw := os.Getenv("STAYREG_BATCH_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
