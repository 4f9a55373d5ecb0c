package llm

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultURL            = "http://127.0.0.1:11434/api/generate"
	DefaultModel          = "qwen3:30b-a3b"
	DefaultTimeout        = 180 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// Config holds the configuration for the generation client
//
// Environment Variables (read by internal/config):
// - OLLAMA_URL: generate endpoint (default: http://127.0.0.1:11434/api/generate)
// - OLLAMA_MODEL: model name (default: qwen3:30b-a3b)
// - LLM_TIMEOUT: per-attempt timeout in seconds (default: 180)
// - LLM_MAX_ATTEMPTS: attempts per entry (default: 3)
// - LLM_RETRY_BASE_DELAY_MS / LLM_RETRY_MAX_DELAY_MS: backoff bounds
// - LLM_TEMPERATURE: sampling temperature, sent only when set
type Config struct {
	URL            string        `json:"url"`
	Model          string        `json:"model"`
	Timeout        time.Duration `json:"timeout"`
	MaxAttempts    int           `json:"max_attempts"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay"`
	Temperature    *float64      `json:"temperature,omitempty"`
}

// DefaultConfig returns a config pointing at a local Ollama server.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		Model:          DefaultModel,
		Timeout:        DefaultTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("URL must be an absolute http(s) URL: %q", c.URL)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// RetryPolicy returns the retry bounds of the config.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
	}
}
