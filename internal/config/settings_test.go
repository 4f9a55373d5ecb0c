package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	valid := Settings{
		OllamaURL:          "http://127.0.0.1:11434/api/generate",
		CronExpr:           "*/5 * * * *",
		TargetLanguageCode: "nl",
	}
	require.NoError(t, valid.Validate())
	require.NoError(t, Settings{}.Validate())

	invalid := valid
	invalid.CronExpr = "bad cron"
	require.Error(t, invalid.Validate())

	invalidLang := valid
	invalidLang.TargetLanguageCode = "klingon!"
	require.Error(t, invalidLang.Validate())

	negative := valid
	negative.Workers = -1
	require.Error(t, negative.Validate())
}

func TestSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "srt-translate.json")
	skip := false
	input := Settings{
		Model:              "llama3",
		TargetLanguageName: "Dutch",
		TargetLanguageCode: "nl",
		SkipIfTargetExists: &skip,
		Workers:            4,
		CronExpr:           "0 0 * * *",
	}

	require.NoError(t, WriteSettingsFile(filePath, input))

	got, err := LoadSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestLoadSettingsFile_Invalid(t *testing.T) {
	tmp := t.TempDir()

	broken := filepath.Join(tmp, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o600))
	_, err := LoadSettingsFile(broken)
	require.Error(t, err)

	badCron := filepath.Join(tmp, "cron.json")
	require.NoError(t, os.WriteFile(badCron, []byte(`{"cron_expr":"nope"}`), 0o600))
	_, err = LoadSettingsFile(badCron)
	require.Error(t, err)

	_, err = LoadSettingsFile(filepath.Join(tmp, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithSettings_OverridesConfig(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "env-model")
	t.Setenv("WORKERS", "2")
	t.Setenv("CRON_EXPR", "0 1 * * *")

	skip := false
	override := Settings{
		Model:              "file-model",
		TargetLanguageName: "Dutch",
		TargetLanguageCode: "nl",
		SkipIfTargetExists: &skip,
		Workers:            5,
	}

	cfg, err := NewFromEnv(WithSettings(override))
	require.NoError(t, err)

	assert.Equal(t, "file-model", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Translate.Workers)
	assert.False(t, cfg.Translate.SkipIfTargetExists)
	assert.Equal(t, "0 1 * * *", cfg.Translate.CronExpr, "unset fields keep the environment value")
	assert.Equal(t, "nl", cfg.Target().Code)
}

func TestConfig_SettingsReflectsEffectiveValues(t *testing.T) {
	cfg, err := NewFromEnv(withTarget("Dutch", "nl"))
	require.NoError(t, err)

	settings := cfg.Settings()
	assert.Equal(t, cfg.LLM.Model, settings.Model)
	assert.Equal(t, "nl", settings.TargetLanguageCode)
	require.NotNil(t, settings.SkipIfTargetExists)
	assert.True(t, *settings.SkipIfTargetExists)
	require.NoError(t, settings.Validate())
}
