package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 120000, cfg.Limits.MaxTokensPerRequest)
	assert.Equal(t, 5, cfg.Summarizer.SummaryWindow)
	assert.False(t, cfg.Approval.YoloMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `llm:
  model: gemini-2.5-pro
limits:
  max_tokens_per_request: 50000
approval:
  yolo_mode: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 50000, cfg.Limits.MaxTokensPerRequest)
	assert.True(t, cfg.Approval.YoloMode)

	// Untouched sections keep defaults.
	assert.Equal(t, 15, cfg.Limits.MaxRequestsPerMinute)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a mapping"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("LLM_MODEL", "gemini-from-env")
	t.Setenv("MAX_TOKENS_PER_REQUEST", "77000")
	t.Setenv("YOLO_MODE", "true")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gemini-from-file\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-from-env", cfg.LLM.Model)
	assert.Equal(t, 77000, cfg.Limits.MaxTokensPerRequest)
	assert.True(t, cfg.Approval.YoloMode)
}

func TestGeminiKeyIsFallbackOnly(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)

	t.Setenv("LLM_API_KEY", "llm-key")
	cfg, err = Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "llm-key", cfg.LLM.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", loaded.LLM.Model)
}

func TestTimeoutParsing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 300*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetHookTimeout())

	cfg.LLM.Timeout = "garbage"
	assert.Equal(t, 300*time.Second, cfg.GetLLMTimeout())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.MaxTokensPerRequest = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Summarizer.SummaryWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Summarizer.ToolResultInsanityThreshold = 1
	assert.Error(t, cfg.Validate())
}
