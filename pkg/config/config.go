// Package config loads the reply bot configuration from YAML, .env files and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "REPLYBOT_CONFIG"
	logLevelEnv      = "LOG_LEVEL"
	googleAPIKeyEnv  = "GOOGLE_API_KEY"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	deepSeekKeyEnv   = "DEEPSEEK_API_KEY"
	priceURLEnv      = "PRICE_API_URL"
	priceKeyEnv      = "PRICE_API_KEY"
	replyLogEnv      = "REPLY_LOG_PATH"
	watchdogEnv      = "WATCHDOG_TARGET"
	auditDBEnv       = "AUDIT_DB_PATH"
	metricsAddrEnv   = "METRICS_ADDR"
	failThresholdEnv = "BACKEND_FAILURE_THRESHOLD"
)

// ErrInvalid marks a configuration that fails validation.
var ErrInvalid = errors.New("invalid config")

// Backend kinds.
const (
	KindGemini   = "gemini"
	KindADK      = "adk"
	KindOpenAI   = "openai"
	KindDeepSeek = "deepseek"
)

// Config is the full reply bot configuration.
type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Composer ComposerConfig  `yaml:"composer"`
	Backends []BackendConfig `yaml:"backends"`
	Price    PriceConfig     `yaml:"price"`
	Visual   VisualConfig    `yaml:"visual"`
	Persona  PersonaConfig   `yaml:"persona"`
	Scam     ScamConfig      `yaml:"scam"`
	Watchdog WatchdogConfig  `yaml:"watchdog"`
	Audit    AuditConfig     `yaml:"audit"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// LoggingConfig selects level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ComposerConfig tunes the composer and its backend chain.
type ComposerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	CharLimit        int           `yaml:"char_limit"`
	NoPrefix         bool          `yaml:"no_prefix"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`
}

// BackendConfig describes one external generative backend.
type BackendConfig struct {
	Name      string        `yaml:"name"`
	Kind      string        `yaml:"kind"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	MaxTokens int           `yaml:"max_tokens"`
}

// PriceConfig points at the price service. An empty endpoint disables it.
type PriceConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

// VisualConfig configures image analysis.
type VisualConfig struct {
	Enabled bool          `yaml:"enabled"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// PersonaConfig sets the reply voice.
type PersonaConfig struct {
	LeadIn   string `yaml:"lead_in"`
	Fallback string `yaml:"fallback"`
}

// ScamConfig lists authors never replied to.
type ScamConfig struct {
	BlockedAuthors []string `yaml:"blocked_authors"`
}

// WatchdogConfig configures the log auditor.
type WatchdogConfig struct {
	LogPath   string `yaml:"log_path"`
	Target    string `yaml:"target"`
	FromStart bool   `yaml:"from_start"`
}

// AuditConfig points at the decision database. Empty disables auditing.
type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

// MetricsConfig sets the metrics listen address. Empty disables serving.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Composer: ComposerConfig{
			FailureThreshold: 3,
			CharLimit:        280,
			RetryBaseDelay:   200 * time.Millisecond,
			RetryMaxDelay:    2 * time.Second,
		},
		Backends: []BackendConfig{
			{Name: "gemini", Kind: KindGemini, Model: "gemini-2.5-flash", Timeout: 20 * time.Second, Retries: 1, MaxTokens: 256},
		},
		Price:    PriceConfig{CacheTTL: 10 * time.Minute, Timeout: 5 * time.Second},
		Visual:   VisualConfig{Model: "gemini-2.5-flash", Timeout: 15 * time.Second},
		Watchdog: WatchdogConfig{LogPath: "logs/replies.log", Target: "replybot"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $REPLYBOT_CONFIG), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Logging.Level = GetEnv(logLevelEnv, c.Logging.Level)
	c.Composer.FailureThreshold = GetEnvInt(failThresholdEnv, c.Composer.FailureThreshold)
	c.Price.Endpoint = GetEnv(priceURLEnv, c.Price.Endpoint)
	c.Price.APIKey = GetEnv(priceKeyEnv, c.Price.APIKey)
	c.Watchdog.LogPath = GetEnv(replyLogEnv, c.Watchdog.LogPath)
	c.Watchdog.Target = GetEnv(watchdogEnv, c.Watchdog.Target)
	c.Audit.DBPath = GetEnv(auditDBEnv, c.Audit.DBPath)
	c.Metrics.Addr = GetEnv(metricsAddrEnv, c.Metrics.Addr)
	c.Visual.APIKey = GetEnv(googleAPIKeyEnv, c.Visual.APIKey)

	for i := range c.Backends {
		b := &c.Backends[i]
		if b.APIKey != "" {
			continue
		}
		switch b.Kind {
		case KindGemini, KindADK:
			b.APIKey = os.Getenv(googleAPIKeyEnv)
		case KindOpenAI:
			b.APIKey = os.Getenv(openAIAPIKeyEnv)
		case KindDeepSeek:
			b.APIKey = os.Getenv(deepSeekKeyEnv)
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Composer.FailureThreshold <= 0 {
		return fmt.Errorf("%w: composer.failure_threshold must be positive", ErrInvalid)
	}
	if c.Composer.CharLimit <= 0 || c.Composer.CharLimit > 280 {
		return fmt.Errorf("%w: composer.char_limit must be in 1..280", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("%w: backends[%d] has no name", ErrInvalid, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate backend %q", ErrInvalid, b.Name)
		}
		seen[b.Name] = true
		switch b.Kind {
		case KindGemini, KindADK, KindOpenAI, KindDeepSeek:
		default:
			return fmt.Errorf("%w: backend %q has unknown kind %q", ErrInvalid, b.Name, b.Kind)
		}
		if b.Retries < 0 {
			return fmt.Errorf("%w: backend %q retries must not be negative", ErrInvalid, b.Name)
		}
	}
	return nil
}
