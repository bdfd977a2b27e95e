// Package config provides configuration management for the PII
// anonymizing completion proxy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Proxy       ProxyConfig       `yaml:"proxy"`
	Storage     StorageConfig     `yaml:"storage"`
	Mapping     MappingConfig     `yaml:"mapping"`
	Cache       CacheConfig       `yaml:"cache"`
	Quota       QuotaConfig       `yaml:"quota"`
	Fuzzy       FuzzyConfig       `yaml:"fuzzy"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`
	Compliance  ComplianceConfig  `yaml:"compliance"`
	Detectors   DetectorsConfig   `yaml:"detectors"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Placeholder PlaceholderConfig `yaml:"placeholder"`
	Intent      IntentConfig      `yaml:"intent"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ProxyConfig contains proxy server settings
type ProxyConfig struct {
	Listen      string `yaml:"listen"`
	UpstreamURL string `yaml:"upstream_url"`
	InjectPrompt bool  `yaml:"inject_prompt"`
}

// StorageConfig contains mapping storage settings
type StorageConfig struct {
	Type  string      `yaml:"type"` // "memory" or "redis"
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
}

// MappingConfig contains mapping-record lifetime settings
type MappingConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the configured mapping lifetime as a duration.
func (m MappingConfig) TTL() time.Duration {
	return time.Duration(m.TTLSeconds) * time.Second
}

// CacheConfig contains response-cache settings
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"cache_ttl_seconds"`
	MaxEntries int  `yaml:"cache_max_entries"`
}

// TTL returns the configured cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// QuotaConfig contains quota and rate-limiting settings
type QuotaConfig struct {
	RateLimitEnabled bool    `yaml:"rate_limit_enabled"`
	RateLimit        float64 `yaml:"rate_limit"`
	RateLimitBurst   int     `yaml:"rate_limit_burst"`
	LimitsPath       string  `yaml:"limits_path"`
}

// FuzzyConfig contains fuzzy-placeholder-recovery settings
type FuzzyConfig struct {
	Enabled                  bool    `yaml:"fuzzy_enabled"`
	BareConfidenceThreshold  float64 `yaml:"fuzzy_confidence_threshold"`
}

// TimeoutsConfig contains the three configurable request budgets
type TimeoutsConfig struct {
	RequestSeconds     int `yaml:"request_timeout_seconds"`
	UpstreamSeconds    int `yaml:"upstream_timeout_seconds"`
	StreamIdleSeconds  int `yaml:"stream_idle_timeout_seconds"`
}

// Request returns the total-request timeout as a duration.
func (t TimeoutsConfig) Request() time.Duration { return time.Duration(t.RequestSeconds) * time.Second }

// Upstream returns the upstream-connect timeout as a duration.
func (t TimeoutsConfig) Upstream() time.Duration {
	return time.Duration(t.UpstreamSeconds) * time.Second
}

// StreamIdle returns the per-chunk streaming idle timeout as a duration.
func (t TimeoutsConfig) StreamIdle() time.Duration {
	return time.Duration(t.StreamIdleSeconds) * time.Second
}

// ComplianceConfig selects the secret-scanner risk/action preset
type ComplianceConfig struct {
	Preset            string `yaml:"compliance_preset"`
	SecretScanEnabled bool   `yaml:"secret_scan_enabled"`
}

// DetectorsConfig contains PII detector composition settings
type DetectorsConfig struct {
	CustomPatternPath string `yaml:"custom_pattern_path"`
	AllowlistDir      string `yaml:"allowlist_dir"`
}

// StrategyConfig contains the entity-type to rewrite-strategy assignment
type StrategyConfig struct {
	// Assignment overrides DefaultStrategies entries, e.g. {"EMAIL": "hash"}.
	Assignment   map[string]string `yaml:"assignment"`
	RedactMarker string            `yaml:"redact_marker"`
}

// PlaceholderConfig contains wire-grammar length bounds
type PlaceholderConfig struct {
	MaxLength int `yaml:"max_placeholder_length"`
}

// IntentConfig controls the question-context preservation exemption:
// entities of a favored type are left unanonymized when the text
// around them reads as a question about them rather than a statement
// that uses them.
type IntentConfig struct {
	Enabled               bool     `yaml:"enabled"`
	QuestionFavoringTypes []string `yaml:"question_favoring_types"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string      `yaml:"level"`
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig contains audit logging settings
type AuditConfig struct {
	Enabled            bool `yaml:"enabled"`
	LogEntityTypes     bool `yaml:"log_entity_types"`
	IncludeRequestPath bool `yaml:"include_request_path"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Port     int    `yaml:"port"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Proxy: ProxyConfig{
			Listen:       ":8080",
			InjectPrompt: true,
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
			},
		},
		Mapping: MappingConfig{
			TTLSeconds: 300,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 300,
			MaxEntries: 1000,
		},
		Quota: QuotaConfig{
			RateLimitEnabled: false,
			RateLimit:        5,
			RateLimitBurst:   10,
		},
		Fuzzy: FuzzyConfig{
			Enabled:                 true,
			BareConfidenceThreshold: 0.85,
		},
		Timeouts: TimeoutsConfig{
			RequestSeconds:    120,
			UpstreamSeconds:   10,
			StreamIdleSeconds: 30,
		},
		Compliance: ComplianceConfig{
			Preset:            "standard",
			SecretScanEnabled: true,
		},
		Placeholder: PlaceholderConfig{
			MaxLength: 25,
		},
		Intent: IntentConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Audit: AuditConfig{
				Enabled: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
			Port:     9090,
		},
	}
}

// Load loads the configuration from file or environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	sanitized, err := sanitizeConfigPath(configPath, baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(sanitized) //#nosec G304 -- path is sanitized above
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// sanitizeConfigPath resolves path against baseDir and rejects anything
// that would escape it, guarding against path-traversal in an
// operator-supplied CONFIG_PATH.
func sanitizeConfigPath(path, baseDir string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("path traversal detected: cannot resolve base directory: %w", err)
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		candidate = filepath.Join(absBase, path)
	}

	rel, err := filepath.Rel(absBase, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", path, baseDir)
	}

	return candidate, nil
}
