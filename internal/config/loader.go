// Package config loads visiond runtime configuration from a file and applies
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	RuntimeDir string `json:"runtime_dir" yaml:"runtime_dir" toml:"runtime_dir"`
	// ModelsDir is scanned for *.gguf files by the /models listing.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	// ServerBin points at a pre-installed llama-server; set, it skips
	// provisioning entirely.
	ServerBin string `json:"server_bin" yaml:"server_bin" toml:"server_bin"`
	// ServerURL overrides the release download URL.
	ServerURL string `json:"server_url" yaml:"server_url" toml:"server_url"`
	// ServerTag overrides the release tag.
	ServerTag string `json:"server_tag" yaml:"server_tag" toml:"server_tag"`
	// BundledBin is the fallback binary shipped with the application.
	BundledBin string `json:"bundled_bin" yaml:"bundled_bin" toml:"bundled_bin"`
	// NoGPU avoids the accelerated backend even when a GPU is present.
	NoGPU bool `json:"no_gpu" yaml:"no_gpu" toml:"no_gpu"`

	// KeepAliveMS is the idle-reaper duration in milliseconds; 0 disables.
	KeepAliveMS int `json:"keepalive_ms" yaml:"keepalive_ms" toml:"keepalive_ms"`
	// StartupTimeoutMS bounds the health gate.
	StartupTimeoutMS int `json:"startup_timeout_ms" yaml:"startup_timeout_ms" toml:"startup_timeout_ms"`
	// RequestTimeoutMS bounds each inference HTTP call.
	RequestTimeoutMS int `json:"request_timeout_ms" yaml:"request_timeout_ms" toml:"request_timeout_ms"`
	// MaxResponseMB caps the inference response body size.
	MaxResponseMB int `json:"max_response_mb" yaml:"max_response_mb" toml:"max_response_mb"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv layers VISIOND_* environment overrides on top of cfg.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("VISIOND_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("VISIOND_RUNTIME_DIR"); v != "" {
		cfg.RuntimeDir = v
	}
	if v := os.Getenv("VISIOND_MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
	}
	if v := os.Getenv("VISIOND_SERVER_BIN"); v != "" {
		cfg.ServerBin = v
	}
	if v := os.Getenv("VISIOND_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("VISIOND_SERVER_TAG"); v != "" {
		cfg.ServerTag = v
	}
	if v := os.Getenv("VISIOND_NO_GPU"); v == "1" || strings.EqualFold(v, "true") {
		cfg.NoGPU = true
	}
	if v := os.Getenv("VISIOND_KEEPALIVE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KeepAliveMS = n
		}
	}
	if v := os.Getenv("VISIOND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// KeepAlive returns the idle-reaper duration; zero when disabled.
func (c Config) KeepAlive() time.Duration {
	if c.KeepAliveMS <= 0 {
		return 0
	}
	return time.Duration(c.KeepAliveMS) * time.Millisecond
}

// StartupTimeout returns the health-gate bound; zero means package default.
func (c Config) StartupTimeout() time.Duration {
	if c.StartupTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.StartupTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the per-request bound; zero means package default.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MaxResponseBytes returns the response ceiling; zero means package default.
func (c Config) MaxResponseBytes() int64 {
	if c.MaxResponseMB <= 0 {
		return 0
	}
	return int64(c.MaxResponseMB) << 20
}
