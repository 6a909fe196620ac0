// Package config loads process configuration from environment variables,
// with an optional YAML overlay file whose non-empty values replace the
// corresponding Config fields (WebhookSecret is env-only).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the platform's runtime configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	LedgerDir string `yaml:"ledgerDir"` // directory holding the three ledger JSON files
	KMSPath   string `yaml:"kmsPath"`   // keystore file for pkg/kms

	DatabaseURL string `yaml:"databaseUrl"` // loaded and merged; no package reads it
	RedisURL    string `yaml:"redisUrl"`    // loaded and merged; the rate limiter is in-memory and does not read it

	WebhookSecret string `yaml:"-"` // never serialized; env-only

	AnchorChain string `yaml:"anchorChain"` // default LedgerAdapterRegistry chain

	OTLPEndpoint string `yaml:"otlpEndpoint"`
	SampleRate   string `yaml:"sampleRate"`
}

// Load reads configuration from environment variables, applying safe
// defaults for local development.
func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		LogLevel:      getenv("LOG_LEVEL", "INFO"),
		LedgerDir:     getenv("SDC_LEDGER_DIR", "./data/ledgers"),
		KMSPath:       getenv("SDC_KMS_PATH", "./data/keystore.json"),
		DatabaseURL:   getenv("DATABASE_URL", "postgres://sdc@localhost:5432/sdc?sslmode=disable"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),
		WebhookSecret: os.Getenv("SDC_WEBHOOK_SECRET"),
		AnchorChain:   getenv("SDC_ANCHOR_CHAIN", "offline"),
		OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SampleRate:    getenv("OTEL_TRACES_SAMPLER_ARG", "0.1"),
	}
}

// LoadWithOverlay loads from the environment, then applies a YAML file's
// values on top. A missing overlay file is not an error.
func LoadWithOverlay(path string) (*Config, error) {
	cfg := Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var overlay Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, err
	}
	mergeNonEmpty(cfg, &overlay)
	return cfg, nil
}

func mergeNonEmpty(dst, src *Config) {
	if src.Port != "" {
		dst.Port = src.Port
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LedgerDir != "" {
		dst.LedgerDir = src.LedgerDir
	}
	if src.KMSPath != "" {
		dst.KMSPath = src.KMSPath
	}
	if src.DatabaseURL != "" {
		dst.DatabaseURL = src.DatabaseURL
	}
	if src.RedisURL != "" {
		dst.RedisURL = src.RedisURL
	}
	if src.AnchorChain != "" {
		dst.AnchorChain = src.AnchorChain
	}
	if src.OTLPEndpoint != "" {
		dst.OTLPEndpoint = src.OTLPEndpoint
	}
	if src.SampleRate != "" {
		dst.SampleRate = src.SampleRate
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
