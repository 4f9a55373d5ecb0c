package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/batch-sub-translator/internal/language"
	"github.com/MimeLyc/batch-sub-translator/pkg/file"
)

// Settings is the JSON settings file. Empty or zero fields leave the
// environment value in place.
type Settings struct {
	OllamaURL          string   `json:"ollama_url,omitempty"`
	Model              string   `json:"model,omitempty"`
	Timeout            int      `json:"timeout,omitempty"`
	MaxAttempts        int      `json:"max_attempts,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	SourceLanguageName string   `json:"source_language_name,omitempty"`
	SourceLanguageCode string   `json:"source_language_code,omitempty"`
	TargetLanguageName string   `json:"target_language_name,omitempty"`
	TargetLanguageCode string   `json:"target_language_code,omitempty"`
	SkipIfTargetExists *bool    `json:"skip_if_target_exists,omitempty"`
	Workers            int      `json:"workers,omitempty"`
	MaxLines           int      `json:"max_lines,omitempty"`
	CronExpr           string   `json:"cron_expr,omitempty"`
	HistoryDB          string   `json:"history_db,omitempty"`
	LogLevel           string   `json:"log_level,omitempty"`
	LogFormat          string   `json:"log_format,omitempty"`
}

// Validate checks the fields that are set.
func (s Settings) Validate() error {
	if s.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if s.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative")
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if s.MaxLines < 0 {
		return fmt.Errorf("max_lines cannot be negative")
	}
	if strings.TrimSpace(s.CronExpr) != "" {
		if _, err := cron.ParseStandard(s.CronExpr); err != nil {
			return fmt.Errorf("invalid cron_expr: %w", err)
		}
	}
	for field, code := range map[string]string{
		"source_language_code": s.SourceLanguageCode,
		"target_language_code": s.TargetLanguageCode,
	} {
		if strings.TrimSpace(code) == "" {
			continue
		}
		if _, ok := language.Parse(code); !ok {
			return fmt.Errorf("invalid %s: %q", field, code)
		}
	}
	return nil
}

// Settings returns the current configuration as a settings file.
func (c *Config) Settings() Settings {
	skip := c.Translate.SkipIfTargetExists
	return Settings{
		OllamaURL:          c.LLM.URL,
		Model:              c.LLM.Model,
		Timeout:            c.LLM.Timeout,
		MaxAttempts:        c.LLM.MaxAttempts,
		Temperature:        c.LLM.Temperature,
		SourceLanguageName: c.Translate.SourceLanguageName,
		SourceLanguageCode: c.Translate.SourceLanguageCode,
		TargetLanguageName: c.Translate.TargetLanguageName,
		TargetLanguageCode: c.Translate.TargetLanguageCode,
		SkipIfTargetExists: &skip,
		Workers:            c.Translate.Workers,
		MaxLines:           c.Translate.MaxLines,
		CronExpr:           c.Translate.CronExpr,
		HistoryDB:          c.System.HistoryDB,
		LogLevel:           c.System.LogLevel,
		LogFormat:          c.System.LogFormat,
	}
}

func WithSettings(settings Settings) Option {
	return func(c *Config) {
		setString(&c.LLM.URL, settings.OllamaURL)
		setString(&c.LLM.Model, settings.Model)
		setInt(&c.LLM.Timeout, settings.Timeout)
		setInt(&c.LLM.MaxAttempts, settings.MaxAttempts)
		if settings.Temperature != nil {
			c.LLM.Temperature = settings.Temperature
		}
		setString(&c.Translate.SourceLanguageName, settings.SourceLanguageName)
		setString(&c.Translate.SourceLanguageCode, settings.SourceLanguageCode)
		setString(&c.Translate.TargetLanguageName, settings.TargetLanguageName)
		setString(&c.Translate.TargetLanguageCode, settings.TargetLanguageCode)
		if settings.SkipIfTargetExists != nil {
			c.Translate.SkipIfTargetExists = *settings.SkipIfTargetExists
		}
		setInt(&c.Translate.Workers, settings.Workers)
		setInt(&c.Translate.MaxLines, settings.MaxLines)
		setString(&c.Translate.CronExpr, settings.CronExpr)
		setString(&c.System.HistoryDB, settings.HistoryDB)
		setString(&c.System.LogLevel, settings.LogLevel)
		setString(&c.System.LogFormat, settings.LogFormat)
	}
}

func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return settings, nil
}

func WriteSettingsFile(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return file.WriteAtomic(path, content, 0o600)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
