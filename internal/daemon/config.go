// Package daemon manages the TrendScout daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Auth      AuthConfig      `toml:"auth"`
	Redis     RedisConfig     `toml:"redis"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Worker    WorkerConfig    `toml:"worker"`
	Storage   StorageConfig   `toml:"storage"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AuthConfig controls token issuing. An empty secret makes the daemon
// generate an ephemeral one, which invalidates tokens across restarts.
type AuthConfig struct {
	Secret      string `toml:"secret"`
	TokenExpiry string `toml:"token_expiry"`
}

// RedisConfig locates the queue backend.
type RedisConfig struct {
	Addr  string `toml:"addr"`
	DB    int    `toml:"db"`
	Queue string `toml:"queue"`
}

// OllamaConfig locates the inference backend.
type OllamaConfig struct {
	Host    string `toml:"host"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// WorkerConfig controls the in-process worker pool.
type WorkerConfig struct {
	Count       int    `toml:"count"`
	PollTimeout string `toml:"poll_timeout"`
}

// StorageConfig controls where task state lives.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	File string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := trendscoutHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Auth: AuthConfig{
			TokenExpiry: "24h",
		},
		Redis: RedisConfig{
			Addr:  "127.0.0.1:6379",
			Queue: "trendscout:tasks",
		},
		Ollama: OllamaConfig{
			Host:    "http://127.0.0.1:11434",
			Model:   "llama3.2",
			Timeout: "5m",
		},
		Worker: WorkerConfig{
			Count:       2,
			PollTimeout: "2s",
		},
		Storage: StorageConfig{
			Dir: homeDir,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $TRENDSCOUT_HOME/config.toml, falling back
// to defaults when the file does not exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(trendscoutHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $TRENDSCOUT_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(trendscoutHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// trendscoutHome returns the TrendScout data directory.
func trendscoutHome() string {
	if env := os.Getenv("TRENDSCOUT_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trendscout")
}

// TrendscoutHome is exported for use by other packages.
func TrendscoutHome() string {
	return trendscoutHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
