package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.SourceLang)
	assert.Equal(t, "zh-CN", cfg.TargetLang)
	assert.Equal(t, "google", cfg.Provider)
	assert.Equal(t, 5000, cfg.ChunkSize)
	assert.False(t, cfg.LaTeX)
	assert.True(t, cfg.TrimWhitespace)
	assert.Equal(t, "@", cfg.Sentinel)
	assert.Equal(t, 5*time.Second, cfg.MatchTimeout)
	assert.Equal(t, masking.DefaultEnvironments, cfg.Rules.Environments)
	assert.Equal(t, masking.DefaultCommands, cfg.Rules.Commands)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "provider-stats.json"), cfg.StatsFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
source_lang: de
target_lang: en
provider: deepl
chunk_size: 1200
latex: true
sentinel: auto
strict_restore: true
discard_commands: [ref, cite]
providers:
  deepl:
    api_key: secret:fx
    timeout: 45s
    max_retries: 5
  google:
    project_id: my-project
    access_token: tok
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "deepl", cfg.ProviderName())
	assert.Equal(t, 1200, cfg.ChunkSize)
	assert.True(t, cfg.LaTeX)
	assert.True(t, cfg.StrictRestore)
	assert.Equal(t, []string{"ref", "cite"}, cfg.Rules.Commands)

	deepl := cfg.ProviderSettings("deepl")
	assert.Equal(t, "secret:fx", deepl.APIKey)
	assert.Equal(t, 45*time.Second, deepl.Timeout)
	assert.Equal(t, 5, deepl.MaxRetries)
	assert.Equal(t, "my-project", cfg.ProviderSettings("google").ProjectID)

	tc := cfg.ToTranslationConfig()
	assert.Equal(t, "de", tc.SourceLanguage)
	assert.Equal(t, masking.AutoSentinel, tc.Sentinel)
	assert.True(t, tc.MaskingEnabled)
	assert.True(t, tc.TrimWhitespace)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "chunk_size: 100\n")
	t.Setenv("LATEX_TRANSLATOR_CHUNK_SIZE", "250")
	t.Setenv("LATEX_TRANSLATOR_TARGET_LANG", "fr")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, "fr", cfg.TargetLang)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "chunk_size: [not, a, number\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestTestModeTurnsOffTrim(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.TestMode = true
	cfg.Provider = ""

	assert.Equal(t, "raw", cfg.ProviderName())
	assert.False(t, cfg.ToTranslationConfig().TrimWhitespace)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ChunkSize = 0
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.TargetLang = " "
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Sentinel = "7"
	assert.ErrorIs(t, cfg.Validate(), masking.ErrInvalidSentinel)
}

func TestProviderSettingsEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg := NewDefaultConfig()
	cfg.Providers["openai"] = providers.Settings{Model: "gpt-4o"}

	s := cfg.ProviderSettings("OpenAI")
	assert.Equal(t, "sk-env", s.APIKey)
	assert.Equal(t, "gpt-4o", s.Model)
	assert.Equal(t, 2*time.Minute, s.Timeout)

	cfg.Providers["openai"] = providers.Settings{APIKey: "sk-file"}
	assert.Equal(t, "sk-file", cfg.ProviderSettings("openai").APIKey)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := NewDefaultConfig()
	cfg.Provider = "ollama"
	cfg.ChunkSize = 3000
	cfg.Providers["ollama"] = providers.Settings{Model: "qwen2.5:14b", Timeout: time.Minute}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", loaded.Provider)
	assert.Equal(t, 3000, loaded.ChunkSize)
	assert.Equal(t, "qwen2.5:14b", loaded.ProviderSettings("ollama").Model)
	assert.Equal(t, time.Minute, loaded.ProviderSettings("ollama").Timeout)
}
