// Package config loads xdbg's configuration from files and environment:
// the adapter preset name and launch defaults that seed both the CLI
// flags and the debugger engine's initial Launch call.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	// Global settings
	Quiet   bool `mapstructure:"quiet"`
	Verbose bool `mapstructure:"verbose"`

	// Default values for launching a debug session
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// DefaultsConfig holds default values for the launch/attach request.
type DefaultsConfig struct {
	Adapter     string   `mapstructure:"adapter"`
	Program     string   `mapstructure:"program"`
	Args        []string `mapstructure:"args"`
	StopOnEntry bool     `mapstructure:"stop_on_entry"`

	MuteOutputCategories []string `mapstructure:"mute_output_categories"`
	ExceptionFilters     []string `mapstructure:"exception_filters"`

	AttachHost string `mapstructure:"attach_host"`
	AttachPort int    `mapstructure:"attach_port"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Quiet:   false,
		Verbose: false,
		Defaults: DefaultsConfig{
			Adapter:              "go-delve",
			StopOnEntry:          false,
			MuteOutputCategories: []string{"telemetry"},
		},
	}
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("xdbg")
	v.SetConfigType("yaml")

	// Add config paths (searched in the order added; the first file found is used)
	// 1. System-wide config
	v.AddConfigPath("/etc/xdbg/")
	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "xdbg"))
	}
	// 3. Home directory (as .xdbgrc.yaml or .xdbg.yaml)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".xdbg")
	}
	// 4. Current directory
	v.AddConfigPath(".")

	// Also check for .xdbgrc file
	v.SetConfigName(".xdbgrc")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	// Environment variables
	v.SetEnvPrefix("XDBG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Bind specific environment variables
	v.BindEnv("quiet", "XDBG_QUIET")
	v.BindEnv("verbose", "XDBG_VERBOSE")
	v.BindEnv("defaults.adapter", "XDBG_ADAPTER")
	v.BindEnv("defaults.program", "XDBG_PROGRAM")

	// Set defaults
	cfg := Default()
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("defaults.adapter", cfg.Defaults.Adapter)
	v.SetDefault("defaults.stop_on_entry", cfg.Defaults.StopOnEntry)
	v.SetDefault("defaults.mute_output_categories", cfg.Defaults.MuteOutputCategories)

	// Try to read config file (ignore if not found). viper searches for
	// one config name at a time, so each accepted name is tried in turn.
	for _, name := range []string{"xdbg", ".xdbg", ".xdbgrc"} {
		v.SetConfigName(name)
		err := v.ReadInConfig()
		if err == nil {
			break
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, err
		}
		// Config file not found under this name; use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path of the xdbg or .xdbgrc config file found in
// the home directory or the current directory, or "" if there is none.
// It runs its own search: it does not report which file a previous Load
// used, and it does not look in the system or user config directories.
func ConfigFile() string {
	v := viper.New()

	v.SetConfigName("xdbg")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	// Try .xdbgrc
	v.SetConfigName(".xdbgrc")
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	return ""
}
