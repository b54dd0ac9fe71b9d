// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Pin driver names.
const (
	DriverSysfs  = "sysfs"
	DriverRPIO   = "rpio"
	DriverDryRun = "dry-run"
)

// Default configuration values.
const (
	DefaultDriver    = DriverSysfs
	DefaultSysfsBase = "/sys/class/gpio"
	DefaultSweepHold = time.Second
	DefaultBackend   = "malgo"
	DefaultVolume    = 100
)

// Config represents the pyramid configuration.
type Config struct {
	Pins  PinsConfig  `toml:"pins" yaml:"pins"`
	Audio AudioConfig `toml:"audio" yaml:"audio"`
	Play  PlayConfig  `toml:"play" yaml:"play"`
}

// PinsConfig describes the pin bank. The order of Numbers is the dance
// index order.
type PinsConfig struct {
	Driver    string   `toml:"driver" yaml:"driver"`         // sysfs, rpio, dry-run
	Numbers   []int    `toml:"numbers" yaml:"numbers"`       // driver pin ids
	SysfsBase string   `toml:"sysfs_base" yaml:"sysfs_base"` // sysfs driver only
	SweepHold Duration `toml:"sweep_hold" yaml:"sweep_hold"` // per-pin hold during the self-test sweep
}

// AudioConfig holds playback settings.
type AudioConfig struct {
	Backend string `toml:"backend" yaml:"backend"` // malgo, speaker
	Device  string `toml:"device" yaml:"device"`   // Empty = system default
	Volume  int    `toml:"volume" yaml:"volume"`   // 0-100
}

// PlayConfig holds defaults for the play command.
type PlayConfig struct {
	Loop      *Duration `toml:"loop,omitempty" yaml:"loop,omitempty"` // Unset = play once
	Dance     string    `toml:"dance" yaml:"dance"`
	DanceFile string    `toml:"dance_file" yaml:"dance_file"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Pins: PinsConfig{
			Driver:    DefaultDriver,
			SysfsBase: DefaultSysfsBase,
			SweepHold: Duration(DefaultSweepHold),
		},
		Audio: AudioConfig{
			Backend: DefaultBackend,
			Volume:  DefaultVolume,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pyramid", "config.toml")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// No config file, use defaults
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains([]string{DriverSysfs, DriverRPIO, DriverDryRun}, c.Pins.Driver) {
		return fmt.Errorf("invalid pin driver %q, must be one of: %s, %s, %s",
			c.Pins.Driver, DriverSysfs, DriverRPIO, DriverDryRun)
	}

	seen := make(map[int]bool, len(c.Pins.Numbers))
	for _, n := range c.Pins.Numbers {
		if n < 0 {
			return fmt.Errorf("pin number must not be negative, got %d", n)
		}
		if seen[n] {
			return fmt.Errorf("pin %d listed more than once", n)
		}
		seen[n] = true
	}

	if c.Pins.SweepHold < 0 {
		return fmt.Errorf("sweep_hold must not be negative")
	}

	// Validate volume
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.Play.Loop != nil && *c.Play.Loop < 0 {
		return fmt.Errorf("loop delay must not be negative")
	}

	if c.Play.Dance != "" && c.Play.DanceFile != "" {
		return fmt.Errorf("dance and dance_file are mutually exclusive")
	}

	return nil
}

// LoadDance returns the dance timeline text, reading DanceFile when set.
// Newlines in a dance file are treated as step separators.
func (c *PlayConfig) LoadDance() (string, error) {
	if c.DanceFile == "" {
		return c.Dance, nil
	}
	return ReadDanceFile(c.DanceFile)
}

// ReadDanceFile reads a dance timeline from path. Steps may be split across
// lines, and lines starting with '#' are ignored.
func ReadDanceFile(path string) (string, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to read dance file: %w", err)
	}

	var steps []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		steps = append(steps, strings.Trim(line, ";"))
	}
	return strings.Join(steps, ";"), nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
