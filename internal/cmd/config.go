package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/copydesk/copydesk/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View copydesk configuration",
	Long: `View copydesk configuration.

Without arguments, displays the current configuration.
Use 'config init' to create a config file with the default values.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/copydesk/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.ConfigFile())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("pipeline:")
	fmt.Printf("  voice_threshold: %.2f\n", cfg.Pipeline.VoiceThreshold)
	fmt.Printf("  semantic_threshold: %.2f\n", cfg.Pipeline.SemanticThreshold)
	fmt.Printf("  lexical_threshold: %.2f\n", cfg.Pipeline.LexicalThreshold)
	fmt.Printf("  ai_pattern_threshold: %.2f\n", cfg.Pipeline.AIPatternThreshold)
	fmt.Printf("  grounding_threshold: %.2f\n", cfg.Pipeline.GroundingThreshold)
	fmt.Printf("  max_regenerations: %d\n", cfg.Pipeline.MaxRegenerations)
	fmt.Printf("  guardrail_file: %s\n", cfg.Pipeline.GuardrailFile)

	fmt.Println("approval:")
	fmt.Printf("  stale_threshold_hours: %d\n", cfg.Approval.StaleThresholdHours)
	fmt.Printf("  sweep_interval_minutes: %d\n", cfg.Approval.SweepIntervalMinutes)

	fmt.Println("publish:")
	fmt.Printf("  tick_interval_seconds: %d\n", cfg.Publish.TickIntervalSeconds)
	fmt.Printf("  start_paused: %v\n", cfg.Publish.StartPaused)
	fmt.Println("  rate_limits:")
	names := make([]string, 0, len(cfg.Publish.RateLimits))
	for name := range cfg.Publish.RateLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rl := cfg.Publish.RateLimits[name]
		fmt.Printf("    %s: %d calls / %d min\n", name, rl.MaxCalls, rl.WindowMinutes)
	}

	fmt.Println("events:")
	fmt.Printf("  queue_capacity: %d\n", cfg.Events.QueueCapacity)
	fmt.Printf("  max_subscribers: %d\n", cfg.Events.MaxSubscribers)

	fmt.Println("storage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)

	fmt.Println("notifications:")
	fmt.Printf("  telegram.enabled: %v\n", cfg.Notifications.Telegram.Enabled)

	fmt.Println("generation:")
	fmt.Printf("  model: %s\n", cfg.Generation.Model)

	fmt.Println("logging:")
	fmt.Printf("  dir: %s\n", cfg.Logging.Dir)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Copydesk configuration

# Quality gate pipeline thresholds
pipeline:
  # Minimum voice-alignment score in (0, 1]
  voice_threshold: 0.60
  # Flag semantic similarity to prior posts above this value
  semantic_threshold: 0.85
  # Flag lexical sequence-match ratio above this value
  lexical_threshold: 0.70
  # Fail the AI-pattern gate above this score
  ai_pattern_threshold: 0.50
  # Minimum claim-attribution confidence
  grounding_threshold: 0.40
  # Per-draft regeneration budget
  max_regenerations: 3
  # Path to the YAML brand-safety guardrail rules
  guardrail_file: ""

# Review queue settings
approval:
  # Flag drafts stuck in review longer than this
  stale_threshold_hours: 4
  # How often the stale monitor sweeps
  sweep_interval_minutes: 30

# Publish execution settings
publish:
  # How often the scheduler drains the queue
  tick_interval_seconds: 30
  # Start with publishing paused
  start_paused: false
  # Per-platform sliding-window budgets. Platforms absent from the map
  # are unrestricted.
  rate_limits:
    instagram:
      max_calls: 25
      window_minutes: 1440
    linkedin:
      max_calls: 200
      window_minutes: 60

# Event bus settings
events:
  queue_capacity: 100
  max_subscribers: 10

# Persistence. driver is "memory" or "postgres"
storage:
  driver: memory
  postgres_dsn: ""

# Outbound notification channels
notifications:
  telegram:
    enabled: false
    token: ""
    chat_id: 0

# Draft generation
generation:
  # Set the API key via COPYDESK_GENERATION_GEMINI_API_KEY instead of
  # writing it here.
  model: gemini-2.5-flash

# Structured logging. Empty dir logs to stderr
logging:
  dir: ""
  level: INFO
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}
