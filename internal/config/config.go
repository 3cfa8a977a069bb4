// Package config loads and validates the copydesk configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete copydesk configuration
type Config struct {
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Approval      ApprovalConfig      `mapstructure:"approval"`
	Publish       PublishConfig       `mapstructure:"publish"`
	Events        EventsConfig        `mapstructure:"events"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// PipelineConfig controls the quality gate pipeline
type PipelineConfig struct {
	// VoiceThreshold is the minimum voice-alignment score in [0,1]
	VoiceThreshold float64 `mapstructure:"voice_threshold"`
	// SemanticThreshold flags semantic similarity above this value
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`
	// LexicalThreshold flags sequence-match ratio above this value
	LexicalThreshold float64 `mapstructure:"lexical_threshold"`
	// AIPatternThreshold fails the AI-pattern gate above this value
	AIPatternThreshold float64 `mapstructure:"ai_pattern_threshold"`
	// GroundingThreshold is the minimum claim-attribution confidence
	GroundingThreshold float64 `mapstructure:"grounding_threshold"`
	// MaxRegenerations is the per-draft regeneration budget
	MaxRegenerations int `mapstructure:"max_regenerations"`
	// GuardrailFile is the path to the YAML brand-safety rules
	GuardrailFile string `mapstructure:"guardrail_file"`
}

// ApprovalConfig controls the review queue
type ApprovalConfig struct {
	// StaleThresholdHours flags drafts in review longer than this
	StaleThresholdHours int `mapstructure:"stale_threshold_hours"`
	// SweepIntervalMinutes is how often the stale monitor runs
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

// PublishConfig controls publish execution
type PublishConfig struct {
	// TickIntervalSeconds is how often the scheduler drains the queue
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
	// StartPaused starts the process with publishing paused
	StartPaused bool `mapstructure:"start_paused"`
	// RateLimits maps platform name to its sliding-window budget.
	// Platforms absent from the map are unrestricted (fail-open).
	RateLimits map[string]RateLimitConfig `mapstructure:"rate_limits"`
}

// RateLimitConfig is one platform's sliding-window budget
type RateLimitConfig struct {
	MaxCalls      int `mapstructure:"max_calls"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// Window returns the window as a time.Duration
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

// EventsConfig controls the event bus
type EventsConfig struct {
	// QueueCapacity is the per-subscriber buffer size
	QueueCapacity int `mapstructure:"queue_capacity"`
	// MaxSubscribers caps concurrent subscribers
	MaxSubscribers int `mapstructure:"max_subscribers"`
}

// StorageConfig selects and configures persistence
type StorageConfig struct {
	// Driver is "memory" or "postgres"
	Driver string `mapstructure:"driver"`
	// PostgresDSN is the connection string for the postgres driver
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// NotificationsConfig controls outbound notification channels
type NotificationsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig configures the telegram channel
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// GenerationConfig configures the generation collaborator
type GenerationConfig struct {
	// GeminiAPIKey authenticates against the Gemini API. Usually set via
	// the COPYDESK_GENERATION_GEMINI_API_KEY environment variable.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	// Model is the Gemini model name
	Model string `mapstructure:"model"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Dir is the log directory; empty logs to stderr
	Dir string `mapstructure:"dir"`
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			VoiceThreshold:     0.60,
			SemanticThreshold:  0.85,
			LexicalThreshold:   0.70,
			AIPatternThreshold: 0.50,
			GroundingThreshold: 0.40,
			MaxRegenerations:   3,
			GuardrailFile:      "",
		},
		Approval: ApprovalConfig{
			StaleThresholdHours:  4,
			SweepIntervalMinutes: 30,
		},
		Publish: PublishConfig{
			TickIntervalSeconds: 30,
			StartPaused:         false,
			RateLimits: map[string]RateLimitConfig{
				"instagram": {MaxCalls: 25, WindowMinutes: 24 * 60},
				"linkedin":  {MaxCalls: 200, WindowMinutes: 60},
			},
		},
		Events: EventsConfig{
			QueueCapacity:  100,
			MaxSubscribers: 10,
		},
		Storage: StorageConfig{
			Driver:      "memory",
			PostgresDSN: "",
		},
		Notifications: NotificationsConfig{
			Telegram: TelegramConfig{Enabled: false},
		},
		Generation: GenerationConfig{
			Model: "gemini-2.5-flash",
		},
		Logging: LoggingConfig{
			Dir:   "",
			Level: "INFO",
		},
	}
}

// StaleThreshold returns the staleness threshold as a time.Duration
func (c *ApprovalConfig) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdHours) * time.Hour
}

// SweepInterval returns the sweep interval as a time.Duration
func (c *ApprovalConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// TickInterval returns the scheduler tick interval as a time.Duration
func (c *PublishConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("pipeline.voice_threshold", defaults.Pipeline.VoiceThreshold)
	viper.SetDefault("pipeline.semantic_threshold", defaults.Pipeline.SemanticThreshold)
	viper.SetDefault("pipeline.lexical_threshold", defaults.Pipeline.LexicalThreshold)
	viper.SetDefault("pipeline.ai_pattern_threshold", defaults.Pipeline.AIPatternThreshold)
	viper.SetDefault("pipeline.grounding_threshold", defaults.Pipeline.GroundingThreshold)
	viper.SetDefault("pipeline.max_regenerations", defaults.Pipeline.MaxRegenerations)
	viper.SetDefault("pipeline.guardrail_file", defaults.Pipeline.GuardrailFile)

	viper.SetDefault("approval.stale_threshold_hours", defaults.Approval.StaleThresholdHours)
	viper.SetDefault("approval.sweep_interval_minutes", defaults.Approval.SweepIntervalMinutes)

	viper.SetDefault("publish.tick_interval_seconds", defaults.Publish.TickIntervalSeconds)
	viper.SetDefault("publish.start_paused", defaults.Publish.StartPaused)
	viper.SetDefault("publish.rate_limits", defaults.Publish.RateLimits)

	viper.SetDefault("events.queue_capacity", defaults.Events.QueueCapacity)
	viper.SetDefault("events.max_subscribers", defaults.Events.MaxSubscribers)

	viper.SetDefault("storage.driver", defaults.Storage.Driver)
	viper.SetDefault("storage.postgres_dsn", defaults.Storage.PostgresDSN)

	viper.SetDefault("notifications.telegram.enabled", defaults.Notifications.Telegram.Enabled)
	viper.SetDefault("notifications.telegram.token", defaults.Notifications.Telegram.Token)
	viper.SetDefault("notifications.telegram.chat_id", defaults.Notifications.Telegram.ChatID)

	viper.SetDefault("generation.gemini_api_key", defaults.Generation.GeminiAPIKey)
	viper.SetDefault("generation.model", defaults.Generation.Model)

	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load unmarshals and validates the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "copydesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".copydesk"
	}
	return filepath.Join(home, ".config", "copydesk")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
