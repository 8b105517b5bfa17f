package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Device    DeviceConfig    `yaml:"device"`
	Limits    LimitsConfig    `yaml:"limits"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TransportConfig selects how the MCP server is exposed: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DeviceConfig points at the pump controller.
type DeviceConfig struct {
	BaseURL    string        `yaml:"base_url"`
	SerialPort string        `yaml:"serial_port"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LimitsConfig bounds command volumes in microlitres, both ends exclusive.
type LimitsConfig struct {
	MinVolumeUL float64 `yaml:"min_volume_ul"`
	MaxVolumeUL float64 `yaml:"max_volume_ul"`
}

type ReconcileConfig struct {
	// PreserveEdited stops a fallback recompute from overwriting the value
	// the operator just typed.
	PreserveEdited bool `yaml:"preserve_edited"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "flowpanel.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Device: DeviceConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: 10 * time.Second,
		},
		Limits: LimitsConfig{
			MinVolumeUL: 0,
			MaxVolumeUL: 1000,
		},
	}
}

// Load reads configuration from the YAML file named by FLOWPANEL_CONFIG_PATH,
// if set, and environment variables.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("FLOWPANEL_CONFIG_PATH"))
}

// LoadFrom reads configuration from an optional YAML file at path and then
// applies environment overrides.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("FLOWPANEL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("FLOWPANEL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FLOWPANEL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("FLOWPANEL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("FLOWPANEL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("FLOWPANEL_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("FLOWPANEL_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FLOWPANEL_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if deviceURL := os.Getenv("FLOWPANEL_DEVICE_URL"); deviceURL != "" {
		cfg.Device.BaseURL = deviceURL
	}
	if serialPort := os.Getenv("FLOWPANEL_SERIAL_PORT"); serialPort != "" {
		cfg.Device.SerialPort = serialPort
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q (want http or stdio)", c.Transport.Mode)
	}
	u, err := url.Parse(c.Device.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid device base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("device base_url must be an http or https URL")
	}
	if c.Device.Timeout < 0 {
		return errors.New("device timeout must not be negative")
	}
	if c.Limits.MaxVolumeUL <= c.Limits.MinVolumeUL {
		return fmt.Errorf("limits: max_volume_ul (%g) must exceed min_volume_ul (%g)", c.Limits.MaxVolumeUL, c.Limits.MinVolumeUL)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
