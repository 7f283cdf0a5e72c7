// Package config provides the settings directory and configuration
// loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the CLI configuration that can be loaded from a JSON file
// in the settings directory. All fields are optional; missing values use
// defaults or must be provided via CLI flags.
type Config struct {
	// Login
	PhoneNo string `json:"phone_no,omitempty" validate:"omitempty,e164"` // Phone number in international format

	// Document download
	OutputPath     string `json:"output,omitempty"`                     // Directory documents are downloaded into
	FilenameFormat string `json:"format,omitempty"`                     // Filename template for downloaded documents
	LastDays       int    `json:"last_days,omitempty" validate:"gte=0"` // Limit history to the last n days; 0 means no limit
	Workers        int    `json:"workers,omitempty" validate:"gte=0"`   // Parallel download workers; 0 means default

	// Transaction export
	Lang string `json:"lang,omitempty" validate:"omitempty,oneof=auto cs de en es fr it nl pt ru"`

	// Behavior
	Verbosity string `json:"verbosity,omitempty" validate:"omitempty,oneof=debug info warning error"`
}

// Load loads configuration from a JSON file.
// A missing file is not an error; it yields the zero Config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are not checked here; those are handled by CLI flag
// validation after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.PhoneNo == "" {
		result.PhoneNo = defaults.PhoneNo
	}
	if result.OutputPath == "" {
		result.OutputPath = defaults.OutputPath
	}
	if result.FilenameFormat == "" {
		result.FilenameFormat = defaults.FilenameFormat
	}
	if result.Lang == "" {
		result.Lang = defaults.Lang
	}
	if result.Verbosity == "" {
		result.Verbosity = defaults.Verbosity
	}

	if result.LastDays == 0 {
		result.LastDays = defaults.LastDays
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	return result
}
