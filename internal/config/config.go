// Package config holds all aide configuration.
//
// Configuration is loaded from .aide/config.yaml (project level, falling back
// to ~/.aide/config.yaml) and then overridden by environment variables. Every
// tunable of the agent core is enumerated here so components never read the
// environment themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all aide configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider endpoint
	LLM LLMConfig `yaml:"llm"`

	// Filesystem locations
	Paths PathsConfig `yaml:"paths"`

	// Rate limiter budgets
	Limits LimitsConfig `yaml:"limits"`

	// History summarization triggers
	Summarizer SummarizerConfig `yaml:"summarizer"`

	// Tool approval behavior
	Approval ApprovalConfig `yaml:"approval"`

	// Hook execution
	Hooks HooksConfig `yaml:"hooks"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model provider endpoint.
type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// HistoryDir holds one JSON document per conversation plus the
	// last-session pointer file.
	HistoryDir string `yaml:"history_dir"`

	// JournalDir is the user's journal; paths inside it are auto-approved
	// for file tools and it backs the note store database.
	JournalDir string `yaml:"journal_dir"`

	// PromptDir overrides packaged prompt bodies per project.
	PromptDir string `yaml:"prompt_dir"`
}

// LimitsConfig configures the rate limiter and context fitter.
type LimitsConfig struct {
	MaxTokensPerRequest  int `yaml:"max_tokens_per_request"`
	MaxTokensPerMinute   int `yaml:"max_tokens_per_minute"`
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
}

// SummarizerConfig configures history summarization.
type SummarizerConfig struct {
	// ConversationalTokenThreshold triggers whole-history summarization.
	ConversationalTokenThreshold int `yaml:"conversational_token_threshold"`

	// SummaryWindow is how many most-recent messages stay unsummarized.
	SummaryWindow int `yaml:"summary_window"`

	// ToolResultMessageThreshold triggers in-place tool result summarization.
	ToolResultMessageThreshold int `yaml:"tool_result_message_threshold"`

	// ToolResultInsanityThreshold pre-truncates a tool result before any
	// summarization is attempted.
	ToolResultInsanityThreshold int `yaml:"tool_result_insanity_threshold"`

	// LongMessageTokenThreshold injects a consolidation reminder into the
	// agent loop once the accumulated prompt grows past it.
	LongMessageTokenThreshold int `yaml:"long_message_token_threshold"`

	// LongMessageWarningPrompt overrides the injected reminder text.
	LongMessageWarningPrompt string `yaml:"long_message_warning_prompt"`
}

// ApprovalConfig configures the tool-call approval pipeline.
type ApprovalConfig struct {
	// YoloMode disables the interactive prompt. Auto-deny policies still run.
	YoloMode bool `yaml:"yolo_mode"`

	// DiffEditCommandTpl spawns an external diff editor for the `edit`
	// response. Must contain {old} and {new} placeholders.
	DiffEditCommandTpl string `yaml:"diff_edit_command_tpl"`
}

// HooksConfig configures the hook dispatcher.
type HooksConfig struct {
	MaxWorkers     int    `yaml:"max_workers"`
	DefaultTimeout string `yaml:"default_timeout"`

	// WatchDirs enables reloading per-directory hook files on change.
	WatchDirs bool `yaml:"watch_dirs"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Name:    "aide",
		Version: "0.9.0",

		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "",
			Timeout: "300s",
		},

		Paths: PathsConfig{
			HistoryDir: filepath.Join(home, ".aide", "history"),
			JournalDir: filepath.Join(home, ".aide", "journal"),
			PromptDir:  "",
		},

		Limits: LimitsConfig{
			MaxTokensPerRequest:  120000,
			MaxTokensPerMinute:   200000,
			MaxRequestsPerMinute: 15,
		},

		Summarizer: SummarizerConfig{
			ConversationalTokenThreshold: 20000,
			SummaryWindow:                5,
			ToolResultMessageThreshold:   4000,
			ToolResultInsanityThreshold:  40000,
			LongMessageTokenThreshold:    16000,
		},

		Approval: ApprovalConfig{
			YoloMode:           false,
			DiffEditCommandTpl: "",
		},

		Hooks: HooksConfig{
			MaxWorkers:     4,
			DefaultTimeout: "60s",
			WatchDirs:      false,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the given YAML file, falling back to
// defaults when the file is absent, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDefault loads config from ./.aide/config.yaml, falling back to
// ~/.aide/config.yaml.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(filepath.Join(".aide", "config.yaml")); err == nil {
		return Load(filepath.Join(".aide", "config.yaml"))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Load(filepath.Join(".aide", "config.yaml"))
	}
	return Load(filepath.Join(home, ".aide", "config.yaml"))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv("LLM_HISTORY_DIR"); v != "" {
		c.Paths.HistoryDir = v
	}
	if v := os.Getenv("LLM_JOURNAL_DIR"); v != "" {
		c.Paths.JournalDir = v
	}
	if v := os.Getenv("LLM_PROMPT_DIR"); v != "" {
		c.Paths.PromptDir = v
	}

	setEnvInt(&c.Limits.MaxTokensPerRequest, "MAX_TOKENS_PER_REQUEST")
	setEnvInt(&c.Limits.MaxTokensPerMinute, "MAX_TOKENS_PER_MINUTE")
	setEnvInt(&c.Limits.MaxRequestsPerMinute, "MAX_REQUESTS_PER_MINUTE")

	setEnvInt(&c.Summarizer.ConversationalTokenThreshold, "CONVERSATIONAL_TOKEN_THRESHOLD")
	setEnvInt(&c.Summarizer.SummaryWindow, "SUMMARY_WINDOW")
	setEnvInt(&c.Summarizer.ToolResultMessageThreshold, "TOOL_RESULT_MESSAGE_THRESHOLD")
	setEnvInt(&c.Summarizer.ToolResultInsanityThreshold, "TOOL_RESULT_INSANITY_THRESHOLD")
	setEnvInt(&c.Summarizer.LongMessageTokenThreshold, "LONG_MESSAGE_TOKEN_THRESHOLD")
	if v := os.Getenv("LONG_MESSAGE_WARNING_PROMPT"); v != "" {
		c.Summarizer.LongMessageWarningPrompt = v
	}

	if v := os.Getenv("DIFF_EDIT_COMMAND_TPL"); v != "" {
		c.Approval.DiffEditCommandTpl = v
	}
	if v := os.Getenv("YOLO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Approval.YoloMode = b
		}
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// GetLLMTimeout parses the LLM timeout duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// GetHookTimeout parses the default hook timeout duration.
func (c *Config) GetHookTimeout() time.Duration {
	d, err := time.ParseDuration(c.Hooks.DefaultTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate checks the configuration for basic sanity.
func (c *Config) Validate() error {
	if c.Limits.MaxTokensPerRequest <= 0 {
		return fmt.Errorf("max_tokens_per_request must be positive")
	}
	if c.Summarizer.SummaryWindow < 1 {
		return fmt.Errorf("summary_window must be at least 1")
	}
	if c.Summarizer.ToolResultInsanityThreshold < c.Summarizer.ToolResultMessageThreshold {
		return fmt.Errorf("tool_result_insanity_threshold must not be below tool_result_message_threshold")
	}
	return nil
}
