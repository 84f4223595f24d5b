package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentServerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Server ServerConfig
}

// CommonConfig contains configuration shared between entry points.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	OpenAI     OpenAI     `koanf:"openai"`
	Storage    Storage    `koanf:"storage"`
}

// ServerConfig contains API server specific configuration.
type ServerConfig struct {
	// Version of the server config.
	Version int `koanf:"version"`
	// Listen address for the HTTP server.
	ListenAddr string `koanf:"listen_addr"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Per-user request rate limiting.
	RateLimit RateLimit `koanf:"rate_limit"`
	// Pipeline tuning knobs.
	Pipeline Pipeline `koanf:"pipeline"`
	// Prompt construction knobs.
	Prompt Prompt `koanf:"prompt"`
	// Learning loop knobs.
	Learning Learning `koanf:"learning"`
	// Image model adapters.
	Adapters Adapters `koanf:"adapters"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Enable pprof debugging.
	EnablePprof bool `koanf:"enable_pprof"`
	// pprof server port.
	PprofPort int `koanf:"pprof_port"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// OpenAI contains vision LLM API configuration.
type OpenAI struct {
	// Base URL for the API.
	BaseURL string `koanf:"base_url"`
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Maximum concurrent requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Model name mappings.
	ModelMappings map[string]string `koanf:"model_mappings"`
	// Model to use for descriptor extraction.
	DescriptorModel string `koanf:"descriptor_model"`
	// Model to use for critique parsing.
	CritiqueModel string `koanf:"critique_model"`
}

// Storage contains S3-compatible object store configuration.
type Storage struct {
	// Endpoint host:port.
	Endpoint string `koanf:"endpoint"`
	// Access key ID.
	AccessKeyID string `koanf:"access_key_id"`
	// Secret access key.
	SecretAccessKey string `koanf:"secret_access_key"`
	// Bucket for portfolio uploads and generated images.
	Bucket string `koanf:"bucket"`
	// Region (usually "auto" for R2-style stores).
	Region string `koanf:"region"`
	// Use TLS for connections.
	UseSSL bool `koanf:"use_ssl"`
	// Public CDN base URL for served objects.
	CDNBaseURL string `koanf:"cdn_base_url"`
	// Signed URL lifetime in minutes.
	SignedURLTTL int `koanf:"signed_url_ttl"`
}

// Pipeline configures ingestion and generation fan-out.
type Pipeline struct {
	// Bounded parallelism for portfolio analysis.
	AnalysisConcurrency int `koanf:"analysis_concurrency"`
	// Over-generation buffer percentage.
	OvergenBufferPct int `koanf:"overgen_buffer_pct"`
	// Images generated per prompt.
	ImagesPerPrompt int `koanf:"images_per_prompt"`
	// Minimum confidence/completeness before a descriptor retry.
	ConfidenceRetry float64 `koanf:"confidence_retry"`
	// Quality score threshold for candidate acceptance.
	QualityThreshold float64 `koanf:"quality_threshold"`
	// Coverage target percentage for gap detection.
	CoverageTargetPct float64 `koanf:"coverage_target_pct"`
	// Daily generation spend ceiling per user, in cents.
	DailyBudgetCents int64 `koanf:"daily_budget_cents"`
}

// RateLimit contains request rate limiting configuration.
type RateLimit struct {
	// Requests allowed per window.
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

// Prompt configures the prompt builder.
type Prompt struct {
	// Hard word budget for rendered prompts.
	MaxWords int `koanf:"max_words"`
	// Profile frequency threshold for signature boosts.
	SignatureThreshold float64 `koanf:"signature_threshold"`
}

// Learning configures the bandit and RLHF stores.
type Learning struct {
	// Prior floor for Beta posteriors.
	BanditFloor float64 `koanf:"bandit_floor"`
	// EMA learning rate for token weights.
	RLHFLearningRate float64 `koanf:"rlhf_learning_rate"`
	// Epsilon for epsilon-greedy token selection.
	RLHFEpsilon float64 `koanf:"rlhf_epsilon"`
	// Impression time cap in milliseconds for implicit rewards.
	ImpressionCapMS int64 `koanf:"impression_cap_ms"`
}

// Adapters configures the available image model adapters.
type Adapters struct {
	// OpenAI-compatible image generation adapter.
	OpenAI OpenAIImageAdapter `koanf:"openai"`
	// Flux-style HTTP adapter.
	Flux FluxAdapter `koanf:"flux"`
}

// OpenAIImageAdapter contains settings for the OpenAI images adapter.
type OpenAIImageAdapter struct {
	// Enable this adapter.
	Enabled bool `koanf:"enabled"`
	// Model identifier.
	Model string `koanf:"model"`
	// Output size, e.g. "1024x1536".
	Size string `koanf:"size"`
	// Base cost per image in cents.
	BaseCostCents int64 `koanf:"base_cost_cents"`
}

// FluxAdapter contains settings for the Flux HTTP adapter.
type FluxAdapter struct {
	// Enable this adapter.
	Enabled bool `koanf:"enabled"`
	// API endpoint URL.
	Endpoint string `koanf:"endpoint"`
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Model identifier.
	Model string `koanf:"model"`
	// Base cost per image in cents.
	BaseCostCents int64 `koanf:"base_cost_cents"`
}

// LoadConfig loads the configuration from the config search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".atelier",
		homeDir + "/.atelier/config",
		"/etc/atelier/config",
		"/app/config",
		"config",
		".",
	}

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "server"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("server", config.Server.Version, CurrentServerVersion); err != nil {
		return nil, "", err
	}

	applyDefaults(&config)

	return &config, usedConfigPath, nil
}

// applyDefaults fills zero-valued tuning knobs with their documented defaults.
func applyDefaults(c *Config) {
	p := &c.Server.Pipeline
	if p.AnalysisConcurrency == 0 {
		p.AnalysisConcurrency = 4
	}

	if p.OvergenBufferPct == 0 {
		p.OvergenBufferPct = 20
	}

	if p.ImagesPerPrompt == 0 {
		p.ImagesPerPrompt = 2
	}

	if p.ConfidenceRetry == 0 {
		p.ConfidenceRetry = 0.5
	}

	if p.QualityThreshold == 0 {
		p.QualityThreshold = 60
	}

	if p.CoverageTargetPct == 0 {
		p.CoverageTargetPct = 80
	}

	if p.DailyBudgetCents == 0 {
		p.DailyBudgetCents = 500
	}

	if c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute = 60
	}

	if c.Server.Prompt.MaxWords == 0 {
		c.Server.Prompt.MaxWords = 50
	}

	if c.Server.Prompt.SignatureThreshold == 0 {
		c.Server.Prompt.SignatureThreshold = 0.3
	}

	l := &c.Server.Learning
	if l.BanditFloor == 0 {
		l.BanditFloor = 1
	}

	if l.RLHFLearningRate == 0 {
		l.RLHFLearningRate = 0.1
	}

	if l.RLHFEpsilon == 0 {
		l.RLHFEpsilon = 0.15
	}

	if l.ImpressionCapMS == 0 {
		l.ImpressionCapMS = 10000
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf("%w: %s.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}
