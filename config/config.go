package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MiB = 1024 * 1024

	DefaultModel         = "gemini-2.5-flash"
	DefaultFallbackModel = "gemini-2.5-pro"
)

var (
	orchestrationOnce   sync.Once
	orchestrationConfig *OrchestrationConfig
)

type ValidationConfig struct {
	MaxTotalSizeBytes int64 `yaml:"max_total_size_bytes"`
	MaxFileSizeBytes  int64 `yaml:"max_file_size_bytes"`
	MaxFiles          int   `yaml:"max_files"`
}

// FilesAPIConfig controls out-of-band upload of large media.
type FilesAPIConfig struct {
	Enabled            bool          `yaml:"enabled"`
	SizeThresholdBytes int64         `yaml:"size_threshold_bytes"`
	UploadTimeout      time.Duration `yaml:"upload_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	AutoCleanup        bool          `yaml:"auto_cleanup"`
}

type GenerationConfig struct {
	Model           string        `yaml:"model"`
	FallbackModel   string        `yaml:"fallback_model"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	TopP            float32       `yaml:"top_p"`
	TopK            int32         `yaml:"top_k"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

type LoggingConfig struct {
	Level                string `yaml:"level"`
	LogExecutionSteps    bool   `yaml:"log_execution_steps"`
	IncludeLogsInSummary bool   `yaml:"include_logs_in_summary"`
}

// OrchestrationConfig groups every tunable of the QA pipeline.
type OrchestrationConfig struct {
	Environment string           `yaml:"environment"`
	Validation  ValidationConfig `yaml:"validation"`
	FilesAPI    FilesAPIConfig   `yaml:"files_api"`
	Generation  GenerationConfig `yaml:"generation"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// DefaultOrchestrationConfig returns the development defaults.
func DefaultOrchestrationConfig() *OrchestrationConfig {
	return &OrchestrationConfig{
		Environment: "development",
		Validation: ValidationConfig{
			MaxTotalSizeBytes: 500 * MiB,
			MaxFileSizeBytes:  50 * MiB,
			MaxFiles:          10,
		},
		FilesAPI: FilesAPIConfig{
			Enabled:            true,
			SizeThresholdBytes: 20 * MiB,
			UploadTimeout:      120 * time.Second,
			MaxRetries:         3,
			RetryDelay:         2 * time.Second,
			AutoCleanup:        true,
		},
		Generation: GenerationConfig{
			Model:           DefaultModel,
			FallbackModel:   DefaultFallbackModel,
			Temperature:     0.2,
			MaxOutputTokens: 2048,
			TopP:            0.95,
			TopK:            40,
			Timeout:         60 * time.Second,
			MaxRetries:      2,
			RetryDelay:      time.Second,
		},
		Logging: LoggingConfig{
			Level:             "info",
			LogExecutionSteps: true,
		},
	}
}

// ForEnvironment returns the defaults adjusted for env.
func ForEnvironment(env string) *OrchestrationConfig {
	cfg := DefaultOrchestrationConfig()
	switch strings.ToLower(env) {
	case "production", "prod":
		cfg.Environment = "production"
		cfg.Generation.MaxRetries = 3
		cfg.Logging.Level = "warn"
		cfg.Logging.LogExecutionSteps = false
	case "staging":
		cfg.Environment = "staging"
		cfg.Logging.Level = "info"
	default:
		cfg.Environment = "development"
		cfg.Logging.Level = "debug"
		cfg.Logging.IncludeLogsInSummary = true
	}
	return cfg
}

// LoadOrchestrationConfig overlays the YAML document at path on top of the
// defaults for the environment it names (or cfg.Environment when absent).
func LoadOrchestrationConfig(path string) (*OrchestrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orchestration config: %w", err)
	}

	var probe struct {
		Environment string `yaml:"environment"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse orchestration config: %w", err)
	}

	cfg := ForEnvironment(probe.Environment)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse orchestration config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *OrchestrationConfig) Validate() error {
	switch {
	case c.Validation.MaxTotalSizeBytes <= 0:
		return fmt.Errorf("validation.max_total_size_bytes must be positive")
	case c.FilesAPI.SizeThresholdBytes < 0:
		return fmt.Errorf("files_api.size_threshold_bytes must not be negative")
	case c.FilesAPI.MaxRetries < 0 || c.Generation.MaxRetries < 0:
		return fmt.Errorf("retry counts must not be negative")
	case c.Generation.Model == "":
		return fmt.Errorf("generation.model is required")
	case c.Generation.Temperature < 0 || c.Generation.Temperature > 2:
		return fmt.Errorf("generation.temperature out of range: %v", c.Generation.Temperature)
	}
	return nil
}

// GetOrchestrationConfig builds the process-wide configuration once:
// APP_ENV picks the defaults, ORCHESTRATION_CONFIG may point at a YAML
// overlay, and a handful of environment variables override single fields.
func GetOrchestrationConfig() *OrchestrationConfig {
	orchestrationOnce.Do(func() {
		loadEnv()

		cfg := ForEnvironment(getEnv("APP_ENV", "development"))
		if path := os.Getenv("ORCHESTRATION_CONFIG"); path != "" {
			loaded, err := LoadOrchestrationConfig(path)
			if err != nil {
				panic(fmt.Sprintf("failed to load orchestration config: %v", err))
			}
			cfg = loaded
		}

		cfg.Generation.Model = getEnv("GEMINI_MODEL", cfg.Generation.Model)
		cfg.Generation.Temperature = float32(getFloatEnv("GENERATION_TEMPERATURE", float64(cfg.Generation.Temperature)))
		cfg.Generation.MaxRetries = getIntEnv("GENERATION_MAX_RETRIES", cfg.Generation.MaxRetries)
		cfg.FilesAPI.SizeThresholdBytes = getInt64Env("FILES_API_THRESHOLD_BYTES", cfg.FilesAPI.SizeThresholdBytes)
		cfg.FilesAPI.MaxRetries = getIntEnv("FILES_API_MAX_RETRIES", cfg.FilesAPI.MaxRetries)
		cfg.Validation.MaxTotalSizeBytes = getInt64Env("MAX_TOTAL_SIZE_BYTES", cfg.Validation.MaxTotalSizeBytes)

		orchestrationConfig = cfg
	})
	return orchestrationConfig
}
