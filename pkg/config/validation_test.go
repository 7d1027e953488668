package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected default config to pass validation, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid log format")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for telemetry enabled without endpoint")
	}
}

func TestValidate_TelemetrySampleRateOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.SampleRate = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for out-of-range sample rate")
	}
}

func TestValidate_UnknownStoreBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "postgres"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unknown store backend")
	}
	if !strings.Contains(err.Error(), "badger or memory") {
		t.Errorf("expected backend error message, got: %v", err)
	}
}

func TestValidate_BadgerRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "badger"
	cfg.Store.Path = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for missing badger path")
	}
}

func TestValidate_RecordingEnabledWithoutPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recording.Enabled = true
	cfg.Recording.Path = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for recording enabled without path")
	}
}

func TestValidate_NonPositiveGetResponseTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Executor.GetResponseTimeout = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for non-positive get-response timeout")
	}
}
