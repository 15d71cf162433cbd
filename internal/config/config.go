// Package config holds the application configuration: model backends,
// pipeline policy constants and the server address.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Models   ModelsConfig   `json:"models"`
	Pipeline PipelineConfig `json:"pipeline"`
	Regions  RegionsConfig  `json:"regions"`
	Server   ServerConfig   `json:"server"`
}

// ModelsConfig points at the model backends.
type ModelsConfig struct {
	OllamaURL     string `json:"ollama_url"`
	CaptionModel  string `json:"caption_model"`
	ClipServerURL string `json:"clip_server_url"`
}

// PipelineConfig holds orchestration policy constants. The defaults are
// documented starting points, not load-bearing values.
type PipelineConfig struct {
	TopK                  int     `json:"top_k"`
	ScoreFloor            float64 `json:"score_floor"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
	SerializeDevice       bool    `json:"serialize_device"`
}

// RegionsConfig holds region extraction policy constants.
type RegionsConfig struct {
	ThresholdFraction float64 `json:"threshold_fraction"`
	MinArea           int     `json:"min_area"`
}

// ServerConfig holds the HTTP boundary address.
type ServerConfig struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// Address joins host and port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			OllamaURL:     "http://localhost:11434",
			CaptionModel:  "llava:7b",
			ClipServerURL: "http://localhost:8090",
		},
		Pipeline: PipelineConfig{
			TopK:                  5,
			ScoreFloor:            0.18,
			RequestTimeoutSeconds: 120,
			SerializeDevice:       true,
		},
		Regions: RegionsConfig{
			ThresholdFraction: 0.5,
			MinArea:           4,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8000",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults.
func LoadFromFile(filename string) (*Config, error) {
	config := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides backend and server settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Models.OllamaURL = v
	}
	if v := os.Getenv("CAPTION_MODEL"); v != "" {
		c.Models.CaptionModel = v
	}
	if v := os.Getenv("CLIP_SERVER_URL"); v != "" {
		c.Models.ClipServerURL = v
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// RequestTimeout returns the per-request budget as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Pipeline.RequestTimeoutSeconds) * time.Second
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Models.OllamaURL == "" {
		return fmt.Errorf("models.ollama_url cannot be empty")
	}
	if c.Models.CaptionModel == "" {
		return fmt.Errorf("models.caption_model cannot be empty")
	}
	if c.Models.ClipServerURL == "" {
		return fmt.Errorf("models.clip_server_url cannot be empty")
	}
	if c.Pipeline.TopK < 1 {
		return fmt.Errorf("pipeline.top_k must be positive")
	}
	if c.Pipeline.ScoreFloor < -1 || c.Pipeline.ScoreFloor > 1 {
		return fmt.Errorf("pipeline.score_floor must be between -1 and 1")
	}
	if c.Pipeline.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.request_timeout_seconds must be positive")
	}
	if c.Regions.ThresholdFraction <= 0 || c.Regions.ThresholdFraction >= 1 {
		return fmt.Errorf("regions.threshold_fraction must be between 0 and 1")
	}
	if c.Regions.MinArea < 1 {
		return fmt.Errorf("regions.min_area must be positive")
	}
	return nil
}
