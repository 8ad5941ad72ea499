// Package config loads the manager's settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nickbeth/wsl-usb-manager/internal/scheduling"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// FileName is the name of the settings file inside the settings directory.
const FileName = "config.yaml"

// ErrInvalidConfig is returned when a settings file has invalid values.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the manager's settings.
type Config struct {
	Executable      string        `json:"executable"       yaml:"executable"`
	WaitTimeout     time.Duration `json:"wait_timeout"     yaml:"wait_timeout"`
	PollInterval    time.Duration `json:"poll_interval"    yaml:"poll_interval"`
	RefreshSchedule string        `json:"refresh_schedule" yaml:"refresh_schedule"`
	LogLevel        string        `json:"log_level"        yaml:"log_level"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Executable:      usbipd.Executable,
		WaitTimeout:     usbipd.DefaultWaitTimeout,
		PollInterval:    usbipd.DefaultPollInterval,
		RefreshSchedule: "30s",
		LogLevel:        "info",
	}
}

// SettingsDir returns the per-user settings directory.
func SettingsDir() (string, error) {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData != "" {
		return filepath.Join(localAppData, "WSL USB Manager"), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "wsl-usb-manager"), nil
}

// DefaultPath returns the settings file path inside SettingsDir.
func DefaultPath() (string, error) {
	dir, err := SettingsDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, FileName), nil
}

// Parse decodes settings, filling anything left out with defaults.
func Parse(data []byte) (*Config, error) {
	err := validateDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := Default()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the settings file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", path, err)
	}

	return cfg, nil
}

// LoadOrCreate reads the settings file at path, writing the defaults first if it doesn't exist.
func LoadOrCreate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = Default()

	err = cfg.Save(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Created default settings file", "path", path)

	return cfg, nil
}

// Save writes the settings to path, creating its parent directory.
func (c *Config) Save(path string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Executable) == "" {
		return fmt.Errorf("%w: executable can't be empty", ErrInvalidConfig)
	}

	if c.WaitTimeout <= 0 {
		return fmt.Errorf("%w: wait_timeout must be positive", ErrInvalidConfig)
	}

	if c.PollInterval <= 0 || c.PollInterval > c.WaitTimeout {
		return fmt.Errorf("%w: poll_interval must be positive and no longer than wait_timeout", ErrInvalidConfig)
	}

	_, err := scheduling.ParseSchedule(c.RefreshSchedule)
	if err != nil {
		return fmt.Errorf("%w: refresh_schedule: %w", ErrInvalidConfig, err)
	}

	_, err = c.Level()
	if err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Level returns the configured minimum log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.LogLevel))
	if err != nil {
		return slog.LevelInfo, err
	}

	return level, nil
}

// NewClient returns a usbipd client using these settings.
func (c *Config) NewClient() *usbipd.Client {
	client := usbipd.NewClient(usbipd.NewExecutor(c.Executable))
	client.WaitTimeout = c.WaitTimeout
	client.PollInterval = c.PollInterval

	return client
}
