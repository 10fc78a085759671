// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Host player connection
	Host HostConfig `mapstructure:"host"`

	// Remote session identification
	Remote RemoteConfig `mapstructure:"remote"`

	// Bridge behavior knobs
	Bridge BridgeConfig `mapstructure:"bridge"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// HostConfig identifies the media player we attach to
type HostConfig struct {
	// Socket is the player's JSON IPC socket path (--input-ipc-server)
	Socket string `mapstructure:"socket"`
}

// RemoteConfig identifies the remote display-server session
type RemoteConfig struct {
	Display  string `mapstructure:"display"`   // WAYLAND_DISPLAY value of the remote session
	Output   string `mapstructure:"output"`    // output name to forward onto
	Seat     string `mapstructure:"seat"`      // seat name to bind devices to
	WMSocket string `mapstructure:"wm_socket"` // optional window-manager IPC socket
}

// BridgeConfig contains bridge behavior settings
type BridgeConfig struct {
	// RequireOutputVisibility adds visibility on the matched output to
	// the window eligibility predicate. Off by default: some compositors
	// send a spurious output leave for floating fullscreen windows.
	RequireOutputVisibility bool `mapstructure:"require_output_visibility"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Host:   HostConfig{Socket: ""},
		Remote: RemoteConfig{Display: "", Output: "", Seat: "", WMSocket: ""},
		Bridge: BridgeConfig{RequireOutputVisibility: false},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waybridge")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "waybridge"))
		}
		viper.AddConfigPath("/etc/waybridge")
		viper.AddConfigPath(".")
	}

	viper.SetDefault("host.socket", DefaultConfig.Host.Socket)
	viper.SetDefault("remote.display", DefaultConfig.Remote.Display)
	viper.SetDefault("remote.output", DefaultConfig.Remote.Output)
	viper.SetDefault("remote.seat", DefaultConfig.Remote.Seat)
	viper.SetDefault("remote.wm_socket", DefaultConfig.Remote.WMSocket)
	viper.SetDefault("bridge.require_output_visibility", DefaultConfig.Bridge.RequireOutputVisibility)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Validate checks that every required value is present. The
// window-manager socket is the only optional remote setting.
func (c *Config) Validate() error {
	if c.Host.Socket == "" {
		return fmt.Errorf("host.socket is required")
	}
	if c.Remote.Display == "" {
		return fmt.Errorf("remote.display is required")
	}
	if c.Remote.Output == "" {
		return fmt.Errorf("remote.output is required")
	}
	if c.Remote.Seat == "" {
		return fmt.Errorf("remote.seat is required")
	}
	return nil
}
