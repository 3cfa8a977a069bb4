package config

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default config must validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestValidate_Thresholds(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.VoiceThreshold = 1.5
	cfg.Pipeline.GroundingThreshold = 0

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), ValidationErrors(errs))
	}
	if errs[0].Field != "pipeline.voice_threshold" {
		t.Errorf("Expected voice_threshold error first, got %s", errs[0].Field)
	}
}

func TestValidate_RateLimits(t *testing.T) {
	cfg := Default()
	cfg.Publish.RateLimits["broken"] = RateLimitConfig{MaxCalls: 0, WindowMinutes: -5}

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), ValidationErrors(errs))
	}
	for _, e := range errs {
		if !strings.HasPrefix(e.Field, "publish.rate_limits.broken") {
			t.Errorf("Unexpected error field %s", e.Field)
		}
	}
}

func TestValidate_StorageDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "sqlite"
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Expected 1 error for unknown driver, got %d", len(errs))
	}

	cfg.Storage.Driver = "postgres"
	cfg.Storage.PostgresDSN = ""
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Expected 1 error for missing DSN, got %d", len(errs))
	}

	cfg.Storage.PostgresDSN = "postgres://localhost/copydesk"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Expected no errors with DSN set, got %v", ValidationErrors(errs))
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Lowercase level should validate, got %v", ValidationErrors(errs))
	}

	cfg.Logging.Level = "verbose"
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Expected 1 error for unknown level, got %d", len(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("Expected count header, got %q", msg)
	}
	if !strings.Contains(msg, "a: bad (got: 1)") {
		t.Errorf("Expected formatted entry, got %q", msg)
	}
}

func TestRateLimitConfig_Window(t *testing.T) {
	r := RateLimitConfig{MaxCalls: 25, WindowMinutes: 1440}
	if r.Window().Hours() != 24 {
		t.Errorf("Expected 24h window, got %v", r.Window())
	}
}
