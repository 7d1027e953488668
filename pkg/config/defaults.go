package config

import (
	"strings"
	"time"

	"github.com/flowbridge/syncd/internal/bytesize"
)

// ApplyDefaults fills in zero-valued fields with sensible defaults after
// a config file has been loaded.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applySwitchDefaults(&cfg.Switch)
	applyStoreDefaults(&cfg.Store)
	applyRecordingDefaults(&cfg.Recording)
	applyExecutorDefaults(&cfg.Executor)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applySwitchDefaults(cfg *SwitchConfig) {
	if cfg.HardwareInfo == "" {
		cfg.HardwareInfo = "default"
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "badger"
	}
	if cfg.Path == "" {
		cfg.Path = "/var/lib/syncd/db"
	}
}

func applyRecordingDefaults(cfg *RecordingConfig) {
	if cfg.Path == "" {
		cfg.Path = "/var/log/syncd/syncd.rec"
	}
	if cfg.MaxSize == 0 {
		size, _ := bytesize.ParseByteSize("1Gi")
		cfg.MaxSize = size
	}
}

func applyExecutorDefaults(cfg *ExecutorConfig) {
	if cfg.GetResponseTimeout == 0 {
		cfg.GetResponseTimeout = 360 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":9116"
	}
}

// DefaultConfig returns a fully defaulted configuration, used when no
// config file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
