// Package cli wires configuration, definition sources and engine
// construction for the cairn command. Commands stay thin; everything
// they share lives here.
package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/cairn/internal/dto"
	"github.com/aretw0/cairn/pkg/weights"
)

// Config is the cairn.yaml configuration file. Every section is
// optional; zero values fall back to the defaults below.
type Config struct {
	Source  SourceConfig   `mapstructure:"source"`
	Engine  EngineConfig   `mapstructure:"engine"`
	Weights weights.Config `mapstructure:"weights"`
	Storage StorageConfig  `mapstructure:"storage"`
	Server  ServerConfig   `mapstructure:"server"`
}

// SourceConfig names the workflow definition to load. Path accepts a
// loam directory or a .yaml/.yml/.json/.flow file; the --dir flag
// overrides it.
type SourceConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig maps onto the engine options of the same names. Nil
// booleans keep the engine defaults.
type EngineConfig struct {
	ModelID         string        `mapstructure:"model_id"`
	PredictionCount int           `mapstructure:"prediction_count"`
	WarmupThreshold uint64        `mapstructure:"warmup_threshold"`
	SessionTimeout  time.Duration `mapstructure:"session_timeout"`
	ChainLimit      int           `mapstructure:"chain_limit"`
	TruncateLimit   int           `mapstructure:"truncate_limit"`
	Validation      *bool         `mapstructure:"validation"`
	SessionTracking *bool         `mapstructure:"session_tracking"`
}

// StorageConfig selects where weights and events persist.
type StorageConfig struct {
	// Type is "file", "redis" or "none".
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the connection settings for redis storage.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// ServerConfig tunes the serve command.
type ServerConfig struct {
	Port    int  `mapstructure:"port"`
	Metrics bool `mapstructure:"metrics"`
}

// Storage types.
const (
	StorageNone  = "none"
	StorageFile  = "file"
	StorageRedis = "redis"
)

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Weights: weights.DefaultConfig(),
		Storage: StorageConfig{
			Type: StorageNone,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Server: ServerConfig{
			Port:    8080,
			Metrics: true,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. Unknown keys
// fail the load so typos surface instead of silently defaulting.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := dto.DecodeStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Weights.Validate(); err != nil {
		return cfg, err
	}
	switch cfg.Storage.Type {
	case "", StorageNone, StorageFile, StorageRedis:
	default:
		return cfg, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	return cfg, nil
}
