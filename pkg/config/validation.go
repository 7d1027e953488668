package config

import "fmt"

// Validate checks a fully-defaulted Config for internally consistent
// values. Hand-rolled rather than struct-tag-driven: this package
// declined go-playground/validator (see DESIGN.md) since every check
// here is a handful of plain conditionals, not worth a reflection-based
// validator dependency.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry.enabled is true")
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", cfg.Telemetry.SampleRate)
	}

	switch cfg.Store.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("store.backend must be badger or memory, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "badger" && cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required for the badger backend")
	}

	if cfg.Recording.Enabled && cfg.Recording.Path == "" {
		return fmt.Errorf("recording.path is required when recording.enabled is true")
	}

	if cfg.Executor.GetResponseTimeout <= 0 {
		return fmt.Errorf("executor.get_response_timeout must be positive, got %v", cfg.Executor.GetResponseTimeout)
	}

	return nil
}
