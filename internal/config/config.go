package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/internal/llm"
	"github.com/MimeLyc/batch-sub-translator/internal/translator"
	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// Config holds all application configuration
// Values come from environment variables, then a JSON settings file,
// then command line flags, each layer overriding the previous one.
//
// Environment Variables:
// LLM Configuration:
// - OLLAMA_URL: generate endpoint (default: http://127.0.0.1:11434/api/generate)
// - OLLAMA_MODEL: model name (default: qwen3:30b-a3b)
// - LLM_TIMEOUT: per-attempt timeout in seconds (default: 180)
// - LLM_MAX_ATTEMPTS: attempts per entry (default: 3)
// - LLM_RETRY_BASE_DELAY_MS: first backoff delay (default: 1000)
// - LLM_RETRY_MAX_DELAY_MS: backoff cap (default: 30000)
// - LLM_TEMPERATURE: sampling temperature (default: unset, server default)
//
// Translate Configuration:
// - SOURCE_LANGUAGE_NAME: source language name (default: English)
// - SOURCE_LANGUAGE_CODE: source language code (default: en)
// - WORKERS: folders translated at the same time (default: 3)
// - MAX_LINES: fixed line cap per entry, 0 follows the source (default: 0)
// - MAX_CONSECUTIVE_FAILURES: failed entries before a file is abandoned, 0 disables (default: 3)
// - CRON_EXPR: run on this schedule instead of once (default: unset)
//
// System Configuration:
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - LOG_FORMAT: console or json (default: console)
// - LOG_FILE: additional JSON log file (default: unset)
// - HISTORY_DB: SQLite run history path (default: unset, disabled)
type Config struct {
	// LLM Configuration
	LLM LLMConfig `json:"llm"`

	// Translate Configuration
	Translate TranslateConfig `json:"translate"`

	// System Configuration
	System SystemConfig `json:"system"`
}

// LLMConfig holds the configuration for the Ollama client
type LLMConfig struct {
	URL              string   `json:"url"`
	Model            string   `json:"model"`
	Timeout          int      `json:"timeout"`
	MaxAttempts      int      `json:"max_attempts"`
	RetryBaseDelayMS int      `json:"retry_base_delay_ms"`
	RetryMaxDelayMS  int      `json:"retry_max_delay_ms"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type TranslateConfig struct {
	SourceLanguageName     string `json:"source_language_name"`
	SourceLanguageCode     string `json:"source_language_code"`
	TargetLanguageName     string `json:"target_language_name"`
	TargetLanguageCode     string `json:"target_language_code"`
	Force                  bool   `json:"force"`
	SkipIfTargetExists     bool   `json:"skip_if_target_exists"`
	Workers                int    `json:"workers"`
	MaxLines               int    `json:"max_lines"`
	MaxConsecutiveFailures int    `json:"max_consecutive_failures"`
	CronExpr               string `json:"cron_expr"`

	source language.Spec
	target language.Spec
}

// SystemConfig holds logging and history settings
type SystemConfig struct {
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogFile   string `json:"log_file"`
	HistoryDB string `json:"history_db"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			URL:              getEnvString("OLLAMA_URL", llm.DefaultURL),
			Model:            getEnvString("OLLAMA_MODEL", llm.DefaultModel),
			Timeout:          getEnvInt("LLM_TIMEOUT", int(llm.DefaultTimeout/time.Second)),
			MaxAttempts:      getEnvInt("LLM_MAX_ATTEMPTS", llm.DefaultMaxAttempts),
			RetryBaseDelayMS: getEnvInt("LLM_RETRY_BASE_DELAY_MS", int(llm.DefaultRetryBaseDelay/time.Millisecond)),
			RetryMaxDelayMS:  getEnvInt("LLM_RETRY_MAX_DELAY_MS", int(llm.DefaultRetryMaxDelay/time.Millisecond)),
			Temperature:      getEnvFloatPtr("LLM_TEMPERATURE"),
		},
		Translate: TranslateConfig{
			SourceLanguageName:     getEnvString("SOURCE_LANGUAGE_NAME", "English"),
			SourceLanguageCode:     getEnvString("SOURCE_LANGUAGE_CODE", "en"),
			SkipIfTargetExists:     true,
			Workers:                getEnvInt("WORKERS", 3),
			MaxLines:               getEnvInt("MAX_LINES", 0),
			MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", translator.DefaultMaxConsecutiveFailures),
			CronExpr:               getEnvString("CRON_EXPR", ""),
		},
		System: SystemConfig{
			LogLevel:  getEnvString("LOG_LEVEL", "info"),
			LogFormat: getEnvString("LOG_FORMAT", "console"),
			LogFile:   getEnvString("LOG_FILE", ""),
			HistoryDB: getEnvString("HISTORY_DB", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set win; missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	var errs []error

	source, err := language.NewSpec(c.Translate.SourceLanguageName, c.Translate.SourceLanguageCode)
	if err != nil {
		errs = append(errs, fmt.Errorf("source language: %w", err))
	}
	target, err := language.NewSpec(c.Translate.TargetLanguageName, c.Translate.TargetLanguageCode)
	if err != nil {
		errs = append(errs, fmt.Errorf("target language: %w", err))
	}
	c.Translate.source, c.Translate.target = source, target

	if c.Translate.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Translate.Workers))
	}
	if c.Translate.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("max lines cannot be negative, got %d", c.Translate.MaxLines))
	}
	if c.Translate.MaxConsecutiveFailures < 0 {
		errs = append(errs, fmt.Errorf("max consecutive failures cannot be negative, got %d", c.Translate.MaxConsecutiveFailures))
	}
	if expr := strings.TrimSpace(c.Translate.CronExpr); expr != "" {
		if _, err := cron.ParseStandard(expr); err != nil {
			errs = append(errs, fmt.Errorf("invalid cron_expr: %w", err))
		}
	}

	llmConfig := c.LLMClientConfig()
	if err := llmConfig.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	return errors.Join(errs...)
}

// Source returns the validated source language.
func (c *Config) Source() language.Spec {
	return c.Translate.source
}

// Target returns the validated target language.
func (c *Config) Target() language.Spec {
	return c.Translate.target
}

// LLMClientConfig converts the LLM section into the client configuration.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		URL:            c.LLM.URL,
		Model:          c.LLM.Model,
		Timeout:        time.Duration(c.LLM.Timeout) * time.Second,
		MaxAttempts:    c.LLM.MaxAttempts,
		RetryBaseDelay: time.Duration(c.LLM.RetryBaseDelayMS) * time.Millisecond,
		RetryMaxDelay:  time.Duration(c.LLM.RetryMaxDelayMS) * time.Millisecond,
		Temperature:    c.LLM.Temperature,
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.LogLevel {
	return log.ParseLevel(c.System.LogLevel)
}

// LogFormat returns the parsed log format.
func (c *Config) LogFormat() log.Format {
	return log.ParseFormat(c.System.LogFormat)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloatPtr returns nil when the variable is unset or not a number
func getEnvFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return &floatValue
		}
	}
	return nil
}
