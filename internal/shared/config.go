package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Remote      RemoteConfig      `toml:"remote"`
	Sync        SyncConfig        `toml:"sync"`
	Player      PlayerConfig      `toml:"player"`
}

// CredentialsConfig contains streaming service credentials.
type CredentialsConfig struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AppToken     string `toml:"app_token"`
}

// DatabaseConfig contains catalog database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RemoteConfig contains tunables for the remote service client.
type RemoteConfig struct {
	RequestTimeoutMS int     `toml:"request_timeout_ms"`
	RateLimitRPS     float64 `toml:"rate_limit_rps"`
}

// SyncConfig contains retry policy settings for library synchronization.
type SyncConfig struct {
	MaxAttempts   int `toml:"max_attempts"`
	BackoffBaseMS int `toml:"backoff_base_ms"`
	BackoffCapMS  int `toml:"backoff_cap_ms"`
}

// PlayerConfig contains audio player settings.
type PlayerConfig struct {
	Volume         int `toml:"volume"`
	StallTimeoutMS int `toml:"stall_timeout_ms"`
}

// RequestTimeout returns the remote request timeout as a [time.Duration].
func (r RemoteConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutMS) * time.Millisecond
}

// BackoffBase returns the initial retry delay as a [time.Duration].
func (s SyncConfig) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMS) * time.Millisecond
}

// BackoffCap returns the maximum retry delay as a [time.Duration].
func (s SyncConfig) BackoffCap() time.Duration {
	return time.Duration(s.BackoffCapMS) * time.Millisecond
}

// StallTimeout returns the stall recovery deadline as a [time.Duration].
func (p PlayerConfig) StallTimeout() time.Duration {
	return time.Duration(p.StallTimeoutMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
