package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ProviderConfig represents configuration for a single LLM provider.
type ProviderConfig struct {
	Options ProviderOptions `yaml:"options" json:"options"`
}

// ProviderOptions contains the SDK-level options for a provider.
type ProviderOptions struct {
	APIKey      string  `yaml:"apiKey" json:"apiKey" envconfig:"API_KEY"`
	BaseURL     string  `yaml:"baseURL" json:"baseURL" envconfig:"BASE_URL"`
	Model       string  `yaml:"model" json:"model" envconfig:"MODEL"`
	ProjectID   string  `yaml:"projectID" json:"projectID" envconfig:"PROJECT_ID"` // For Vertex AI
	Location    string  `yaml:"location" json:"location" envconfig:"LOCATION"`     // For Vertex AI
	Timeout     int     `yaml:"timeout" json:"timeout" envconfig:"TIMEOUT"`        // Request timeout in ms
	Temperature float64 `yaml:"temperature" json:"temperature" envconfig:"TEMP"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" envconfig:"MAX_TOKENS"`
}

// SecurityConfig drives the sandbox and the approval gate.
type SecurityConfig struct {
	// Approval gate thresholds. Confirm flags default to true; disabling
	// one is an explicit policy override that auto-approves that level.
	AutoApprove           bool `yaml:"auto_approve" envconfig:"AUTO_APPROVE"`
	AutoApproveLowRisk    bool `yaml:"auto_approve_low" envconfig:"AUTO_APPROVE_LOW"`
	AutoApproveMediumRisk bool `yaml:"auto_approve_medium" envconfig:"AUTO_APPROVE_MEDIUM"`
	ConfirmHighRisk       bool `yaml:"confirm_high" envconfig:"CONFIRM_HIGH"`
	ConfirmCriticalRisk   bool `yaml:"confirm_critical" envconfig:"CONFIRM_CRITICAL"`

	// Sandbox policy.
	SandboxEnabled  bool     `yaml:"sandbox_enabled" envconfig:"SANDBOX_ENABLED"`
	WorkspaceRoot   string   `yaml:"workspace_root" envconfig:"WORKSPACE_ROOT"`
	AllowedPaths    []string `yaml:"allowed_paths" envconfig:"ALLOWED_PATHS"`
	BlockedPaths    []string `yaml:"blocked_paths" envconfig:"BLOCKED_PATHS"`
	AllowedCommands []string `yaml:"allowed_commands" envconfig:"ALLOWED_COMMANDS"`
	BlockedCommands []string `yaml:"blocked_commands" envconfig:"BLOCKED_COMMANDS"`

	// Shell execution bounds.
	CommandTimeoutSec int   `yaml:"command_timeout_sec" envconfig:"COMMAND_TIMEOUT_SEC"`
	MaxOutputBytes    int64 `yaml:"max_output_bytes" envconfig:"MAX_OUTPUT_BYTES"`

	// Checkpoint capture behavior. When false (default) unreadable files
	// are skipped with a log line instead of aborting the checkpoint.
	FailOnCaptureError bool `yaml:"fail_on_capture_error" envconfig:"FAIL_ON_CAPTURE_ERROR"`
}

// CommandTimeout returns the shell timeout as a duration.
func (s SecurityConfig) CommandTimeout() time.Duration {
	if s.CommandTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.CommandTimeoutSec) * time.Second
}

// HTTPConfig contains HTTP API related settings.
type HTTPConfig struct {
	Enable bool   `yaml:"enable" envconfig:"ENABLE"`
	Addr   string `yaml:"addr" envconfig:"ADDR"`
	APIKey string `yaml:"api_key" envconfig:"API_KEY"`
}

// Config is the root configuration structure.
type Config struct {
	// ActiveProvider explicitly sets the active provider (optional).
	// If not set, auto-detection is used based on available API keys.
	ActiveProvider string `yaml:"active_provider" envconfig:"ACTIVE_PROVIDER"`

	// LogLevel controls structured logging verbosity (DEBUG, INFO, WARN, ERROR).
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// Providers is a map of provider ID to its configuration.
	Providers map[string]ProviderConfig `yaml:"provider"`

	// Security settings for the sandbox and approval gate.
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`

	// HTTP server settings.
	HTTP HTTPConfig `yaml:"http" envconfig:"HTTP"`

	// DataDir is where session artifacts (checkpoints, history, rules)
	// are persisted. Defaults to .steward under the working directory.
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
}

// ProviderEnvVars maps provider IDs to their environment variable names
// for auto-detection. The first env var in the list that is set wins.
var ProviderEnvVars = map[string]struct {
	APIKey  []string
	BaseURL []string
	Model   []string
}{
	"gemini": {
		APIKey: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		Model:  []string{"GEMINI_MODEL"},
	},
	"openai": {
		APIKey:  []string{"OPENAI_API_KEY"},
		BaseURL: []string{"OPENAI_API_BASE", "OPENAI_BASE_URL"},
		Model:   []string{"OPENAI_MODEL"},
	},
	"openrouter": {
		APIKey:  []string{"OPENROUTER_API_KEY"},
		BaseURL: []string{"OPENROUTER_BASE_URL"},
		Model:   []string{"OPENROUTER_MODEL"},
	},
	"ollama": {
		BaseURL: []string{"OLLAMA_BASE_URL"},
		Model:   []string{"OLLAMA_MODEL"},
	},
}

// ProviderDefaults contains default options for each provider.
var ProviderDefaults = map[string]ProviderOptions{
	"gemini": {
		Model: "gemini-2.0-flash",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "anthropic/claude-sonnet-4",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "qwen2.5-coder",
	},
}

// GetActiveProvider returns the active provider ID and its configuration.
// Priority: ActiveProvider field > first provider with API key in env >
// first configured provider.
func (c *Config) GetActiveProvider() (string, ProviderOptions, error) {
	if c.ActiveProvider != "" {
		if p, ok := c.Providers[c.ActiveProvider]; ok {
			opts := mergeOptions(ProviderDefaults[c.ActiveProvider], p.Options)
			return c.ActiveProvider, opts, nil
		}
		if opts, ok := c.detectProviderFromEnv(c.ActiveProvider); ok {
			return c.ActiveProvider, opts, nil
		}
		return "", ProviderOptions{}, fmt.Errorf("active provider %q not configured", c.ActiveProvider)
	}

	// Auto-detect from environment variables.
	for _, providerID := range []string{"openai", "gemini", "openrouter", "ollama"} {
		opts, ok := c.detectProviderFromEnv(providerID)
		if !ok {
			continue
		}
		return providerID, opts, nil
	}

	// First configured provider with an API key.
	for providerID, p := range c.Providers {
		if p.Options.APIKey != "" {
			opts := mergeOptions(ProviderDefaults[providerID], p.Options)
			return providerID, opts, nil
		}
	}

	return "", ProviderOptions{}, fmt.Errorf("no provider configured or detected")
}

// detectProviderFromEnv checks if a provider can be configured from env vars.
func (c *Config) detectProviderFromEnv(providerID string) (ProviderOptions, bool) {
	envVars, ok := ProviderEnvVars[providerID]
	if !ok {
		return ProviderOptions{}, false
	}

	var apiKey string
	for _, envVar := range envVars.APIKey {
		if v := os.Getenv(envVar); v != "" {
			apiKey = v
			break
		}
	}
	// Ollama is keyless; everything else needs a key to be detected.
	if apiKey == "" && providerID != "ollama" {
		return ProviderOptions{}, false
	}
	if providerID == "ollama" {
		found := false
		for _, envVar := range envVars.BaseURL {
			if os.Getenv(envVar) != "" {
				found = true
				break
			}
		}
		if !found {
			return ProviderOptions{}, false
		}
	}

	opts := ProviderDefaults[providerID]
	opts.APIKey = apiKey

	for _, envVar := range envVars.BaseURL {
		if v := os.Getenv(envVar); v != "" {
			opts.BaseURL = v
			break
		}
	}
	for _, envVar := range envVars.Model {
		if v := os.Getenv(envVar); v != "" {
			opts.Model = v
			break
		}
	}

	if p, ok := c.Providers[providerID]; ok {
		opts = mergeOptions(opts, p.Options)
	}

	return opts, true
}

// mergeOptions merges two ProviderOptions, with 'override' taking precedence.
func mergeOptions(base, override ProviderOptions) ProviderOptions {
	result := base
	if override.APIKey != "" {
		result.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.ProjectID != "" {
		result.ProjectID = override.ProjectID
	}
	if override.Location != "" {
		result.Location = override.Location
	}
	if override.Timeout != 0 {
		result.Timeout = override.Timeout
	}
	if override.Temperature > 0 {
		result.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		result.MaxTokens = override.MaxTokens
	}
	return result
}

// Load reads configuration from the specified path, or defaults if path
// is empty. Priority: env vars > config file > defaults.
func Load(path string) (*Config, error) {
	// Try loading .env files (ignore error if not present)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			defaultPath := filepath.Join(home, ".steward", "config.yaml")
			if _, err := os.Stat(defaultPath); err == nil {
				path = defaultPath
			}
		}

		localPath := "steward.yaml"
		if _, err := os.Stat(localPath); err == nil {
			path = localPath
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Env vars (STEWARD_ prefix) override values from the config file.
	if err := envconfig.Process("STEWARD", cfg); err != nil {
		return nil, fmt.Errorf("failed to process env vars: %w", err)
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ".steward"
	}

	return cfg, nil
}

// Default returns a configuration with safe defaults: sandbox on, low
// risk auto-approved, high and critical risk gated.
func Default() *Config {
	return &Config{
		Providers: make(map[string]ProviderConfig),
		Security: SecurityConfig{
			AutoApproveLowRisk:  true,
			ConfirmHighRisk:     true,
			ConfirmCriticalRisk: true,
			SandboxEnabled:      true,
			CommandTimeoutSec:   60,
			MaxOutputBytes:      1 << 20,
		},
	}
}
