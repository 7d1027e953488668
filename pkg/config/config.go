// Package config loads and validates syncd's static configuration:
// switch profile, KV store connection, recording stream, and executor
// behavior. Dynamic state (the ASIC view itself) lives in the KV store,
// not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flowbridge/syncd/internal/bytesize"
)

// Config is syncd's static configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (SYNCD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Switch    SwitchConfig    `mapstructure:"switch" yaml:"switch"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Executor  ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// SwitchConfig names which vendor profile and hardware identity this
// process attaches to.
type SwitchConfig struct {
	// ProfileMapPath points at the vendor profile-map file (SAI
	// init_config.ini equivalent) passed to the driver at startup.
	ProfileMapPath string `mapstructure:"profile_map_path" yaml:"profile_map_path"`

	// HardwareInfo is the SWITCH_HARDWARE_INFO create-only attribute
	// value identifying which physical/virtual switch instance to bind.
	HardwareInfo string `mapstructure:"hardware_info" yaml:"hardware_info"`

	// Index is this switch's 8-bit VID switch index (§3).
	Index uint8 `mapstructure:"index" yaml:"index"`
}

// StoreConfig configures the KV store connection backing the four
// persisted tables (§6).
type StoreConfig struct {
	// Backend selects the kvstore implementation: "badger" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the on-disk directory for the badger backend.
	Path string `mapstructure:"path" yaml:"path"`
}

// RecordingConfig configures the recording stream (§4.10).
type RecordingConfig struct {
	// Enabled turns the recording stream on. Off by default, matching
	// the original tool's "recording needs to be enabled explicitly".
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the recording file's location.
	Path string `mapstructure:"path" yaml:"path"`

	// MaxSize bounds how large the recording file is allowed to grow
	// before an operator-driven rotation is expected; informational
	// only, this package does not itself rotate.
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size"`
}

// ExecutorConfig controls executor behavior (§4.8).
type ExecutorConfig struct {
	// WarmBoot, when true, makes startup prefer hard reinit (§4.9) over
	// an ordinary initial APPLY whenever the database already holds
	// desired state.
	WarmBoot bool `mapstructure:"warm_boot" yaml:"warm_boot"`

	// ToleratedWorkarounds lists additional attribute names (beyond the
	// built-in SWITCH_SRC_MAC_ADDRESS) whose set failures should be
	// swallowed rather than treated as fatal. Empty by default: §7
	// only documents the one vendor workaround.
	ToleratedWorkarounds []string `mapstructure:"tolerated_workarounds" yaml:"tolerated_workarounds"`

	// GetResponseTimeout is the get-response channel's expiry window
	// (§5: "imposes a 360-second timeout").
	GetResponseTimeout time.Duration `mapstructure:"get_response_timeout" yaml:"get_response_timeout"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls internal/telemetry.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration, producing an actionable error (pointing
// at `syncd init`) when no config file exists at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"initialize one first:\n  syncd init\n\n"+
				"or pass an explicit path:\n  syncd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"create it first:\n  syncd init --config %s", configPath, configPath)
	}
	return Load(configPath)
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SYNCD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "syncd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "syncd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path, exposed for
// the init command.
func GetConfigDir() string {
	return getConfigDir()
}
