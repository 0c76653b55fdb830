package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all runtime configuration parameters
type Config struct {
	BaseURL                string `json:"base_url" validate:"required,url"`
	MaxDepth               int    `json:"max_depth" validate:"gte=0"`
	FollowerThreshold      int    `json:"follower_threshold" validate:"gt=0"`
	FollowersDownloadLimit int    `json:"followers_download_limit" validate:"gte=0"`
	PacingDelayMs          int    `json:"pacing_delay_ms" validate:"gte=0"`
	RequestTimeoutMs       int    `json:"request_timeout_ms" validate:"gte=1000"`
	DBPath                 string `json:"db_path" validate:"required"`
	ReportPath             string `json:"report_path" validate:"required"`
	LogLevel               string `json:"log_level" validate:"oneof=debug info warn error"`
}

// ValidationError reports malformed configuration or input, rejected before
// any traversal starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

var validate = validator.New()

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.spotify.com"
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 1
	}
	if cfg.FollowerThreshold == 0 {
		cfg.FollowerThreshold = 1000
	}
	if cfg.FollowersDownloadLimit == 0 {
		cfg.FollowersDownloadLimit = 250
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.PacingDelayMs == 0 {
		cfg.PacingDelayMs = 300
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "followgraph.db"
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = "crawl-report.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
}

// Validate checks field constraints via struct tags
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &ValidationError{
			Field:  first.Field(),
			Reason: fmt.Sprintf("failed %q constraint (value %v)", first.Tag(), first.Value()),
		}
	}
	return &ValidationError{Field: "config", Reason: err.Error()}
}

// PacingDelay returns the configured delay between profile source calls
func (c *Config) PacingDelay() time.Duration {
	return time.Duration(c.PacingDelayMs) * time.Millisecond
}

// RequestTimeout returns the configured HTTP request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}
