package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// ProviderConfig holds credentials and overrides for one LLM backend.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// Config is the resolved skald configuration.
type Config struct {
	Model              string                    `json:"model,omitempty"`
	Temperature        float64                   `json:"temperature,omitempty"`
	MaxTokens          int                       `json:"max_tokens,omitempty"`
	SystemPrompt       string                    `json:"system_prompt,omitempty"`
	Shell              string                    `json:"shell,omitempty"`
	CommandTimeoutSecs int                       `json:"command_timeout_secs,omitempty"`
	LogLevel           string                    `json:"log_level,omitempty"`
	Provider           map[string]ProviderConfig `json:"provider,omitempty"`
}

// Default values applied before any file or environment source.
const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
	DefaultTimeoutSecs = 30
)

// Load resolves configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config (~/.config/skald/skald.json or .jsonc)
// 3. Project config (skald.json, .skald/skald.json)
// 4. SKALD_CONFIG file
// 5. SKALD_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*Config, error) {
	config := &Config{
		Model:              DefaultModel,
		Temperature:        DefaultTemperature,
		MaxTokens:          DefaultMaxTokens,
		CommandTimeoutSecs: DefaultTimeoutSecs,
		Provider:           make(map[string]ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 2. XDG global config
	globalPath := GetPaths().Config
	loadOnce(GlobalConfigPath(), globalPath)
	loadOnce(filepath.Join(globalPath, "skald.jsonc"), globalPath)

	// 3. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".skald")
		loadOnce(filepath.Join(directory, "skald.json"), directory)
		loadOnce(filepath.Join(directory, "skald.jsonc"), directory)
		loadOnce(ProjectConfigPath(directory), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "skald.jsonc"), projectConfigDir)
	}

	// 4. SKALD_CONFIG file override
	if configPath := os.Getenv("SKALD_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 5. SKALD_CONFIG_CONTENT inline JSON
	if content := os.Getenv("SKALD_CONFIG_CONTENT"); content != "" {
		var inline Config
		if err := json.Unmarshal([]byte(content), &inline); err == nil {
			mergeConfig(config, &inline)
		}
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		path := filePattern.FindStringSubmatch(match)[1]
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(content))
	})

	return []byte(str)
}

// mergeConfig overlays non-zero fields of src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.Shell != "" {
		dst.Shell = src.Shell
	}
	if src.CommandTimeoutSecs != 0 {
		dst.CommandTimeoutSecs = src.CommandTimeoutSecs
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	for name, pc := range src.Provider {
		existing := dst.Provider[name]
		if pc.APIKey != "" {
			existing.APIKey = pc.APIKey
		}
		if pc.BaseURL != "" {
			existing.BaseURL = pc.BaseURL
		}
		dst.Provider[name] = existing
	}
}

// applyEnvOverrides applies SKALD_* and provider API key variables.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SKALD_MODEL"); v != "" {
		config.Model = v
	}
	if v := os.Getenv("SKALD_SHELL"); v != "" {
		config.Shell = v
	}
	if v := os.Getenv("SKALD_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("SKALD_COMMAND_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.CommandTimeoutSecs = secs
		}
	}
	for providerName, envKey := range map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"gemini":    "GEMINI_API_KEY",
	} {
		if key := os.Getenv(envKey); key != "" {
			pc := config.Provider[providerName]
			pc.APIKey = key
			config.Provider[providerName] = pc
		}
	}
}

// APIKey returns the configured key for a provider, empty when absent.
func (c *Config) APIKey(providerName string) string {
	return c.Provider[providerName].APIKey
}
