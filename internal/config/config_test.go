package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SKALD_CONFIG", "")
	t.Setenv("SKALD_CONFIG_CONTENT", "")
	t.Setenv("SKALD_MODEL", "")
	t.Setenv("SKALD_SHELL", "")
	t.Setenv("SKALD_LOG_LEVEL", "")
	t.Setenv("SKALD_COMMAND_TIMEOUT", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultTimeoutSecs, cfg.CommandTimeoutSecs)
	assert.Empty(t, cfg.APIKey("anthropic"))
}

func TestProjectConfigFile(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	content := `{
		// model choice
		"model": "gpt-4o",
		"temperature": 0.2,
		"command_timeout_secs": 60
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skald.json"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 60, cfg.CommandTimeoutSecs)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
}

func TestProjectOverridesGlobal(t *testing.T) {
	isolateEnv(t)

	globalDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "skald")
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "skald.json"),
		[]byte(`{"model": "global-model", "max_tokens": 1000}`), 0o644))

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "skald.json"),
		[]byte(`{"model": "project-model"}`), 0o644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Model)
	assert.Equal(t, 1000, cfg.MaxTokens)
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SKALD_MODEL", "claude-3-5-haiku-20241022")
	t.Setenv("SKALD_SHELL", "/bin/zsh")
	t.Setenv("SKALD_COMMAND_TIMEOUT", "5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "g-test")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", cfg.Model)
	assert.Equal(t, "/bin/zsh", cfg.Shell)
	assert.Equal(t, 5, cfg.CommandTimeoutSecs)
	assert.Equal(t, "sk-test", cfg.APIKey("anthropic"))
	assert.Equal(t, "g-test", cfg.APIKey("gemini"))
}

func TestInlineConfigContent(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SKALD_CONFIG_CONTENT", `{"model": "inline-model"}`)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "inline-model", cfg.Model)
}

func TestInterpolation(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TEST_SKALD_KEY", "from-env")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("be terse\n"), 0o644))
	content := `{
		"system_prompt": "{file:prompt.txt}",
		"provider": {"anthropic": {"api_key": "{env:TEST_SKALD_KEY}"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skald.json"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "be terse", cfg.SystemPrompt)
	assert.Equal(t, "from-env", cfg.APIKey("anthropic"))
}

func TestInvalidTimeoutIgnored(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SKALD_COMMAND_TIMEOUT", "not-a-number")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeoutSecs, cfg.CommandTimeoutSecs)
}
