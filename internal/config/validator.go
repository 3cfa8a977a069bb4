package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pipeline.voice_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// ValidStorageDrivers returns the list of valid storage drivers
func ValidStorageDrivers() []string {
	return []string{"memory", "postgres"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateApproval()...)
	errors = append(errors, c.validatePublish()...)
	errors = append(errors, c.validateEvents()...)
	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	thresholds := []struct {
		field string
		value float64
	}{
		{"pipeline.voice_threshold", c.Pipeline.VoiceThreshold},
		{"pipeline.semantic_threshold", c.Pipeline.SemanticThreshold},
		{"pipeline.lexical_threshold", c.Pipeline.LexicalThreshold},
		{"pipeline.ai_pattern_threshold", c.Pipeline.AIPatternThreshold},
		{"pipeline.grounding_threshold", c.Pipeline.GroundingThreshold},
	}
	for _, t := range thresholds {
		if t.value <= 0 || t.value > 1 {
			errors = append(errors, ValidationError{
				Field:   t.field,
				Value:   t.value,
				Message: "must be in (0, 1]",
			})
		}
	}

	if c.Pipeline.MaxRegenerations < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_regenerations",
			Value:   c.Pipeline.MaxRegenerations,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateApproval() []ValidationError {
	var errors []ValidationError

	if c.Approval.StaleThresholdHours <= 0 {
		errors = append(errors, ValidationError{
			Field:   "approval.stale_threshold_hours",
			Value:   c.Approval.StaleThresholdHours,
			Message: "must be positive",
		})
	}
	if c.Approval.SweepIntervalMinutes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "approval.sweep_interval_minutes",
			Value:   c.Approval.SweepIntervalMinutes,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validatePublish() []ValidationError {
	var errors []ValidationError

	if c.Publish.TickIntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "publish.tick_interval_seconds",
			Value:   c.Publish.TickIntervalSeconds,
			Message: "must be positive",
		})
	}

	for platform, rl := range c.Publish.RateLimits {
		if rl.MaxCalls <= 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("publish.rate_limits.%s.max_calls", platform),
				Value:   rl.MaxCalls,
				Message: "must be positive",
			})
		}
		if rl.WindowMinutes <= 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("publish.rate_limits.%s.window_minutes", platform),
				Value:   rl.WindowMinutes,
				Message: "must be positive",
			})
		}
	}

	return errors
}

func (c *Config) validateEvents() []ValidationError {
	var errors []ValidationError

	if c.Events.QueueCapacity <= 0 {
		errors = append(errors, ValidationError{
			Field:   "events.queue_capacity",
			Value:   c.Events.QueueCapacity,
			Message: "must be positive",
		})
	}
	if c.Events.MaxSubscribers <= 0 {
		errors = append(errors, ValidationError{
			Field:   "events.max_subscribers",
			Value:   c.Events.MaxSubscribers,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStorageDrivers(), c.Storage.Driver) {
		errors = append(errors, ValidationError{
			Field:   "storage.driver",
			Value:   c.Storage.Driver,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStorageDrivers(), ", ")),
		})
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.postgres_dsn",
			Value:   "",
			Message: "required for the postgres driver",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
