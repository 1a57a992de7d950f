// Package config handles configuration loading and validation for surveyclean.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"surveyclean/internal/audit"
	"surveyclean/internal/header"
	"surveyclean/internal/organizer"
	"surveyclean/internal/scanner"
	"surveyclean/internal/watcher"
)

// Paths used when neither the config file nor the command line names one.
const (
	DefaultInput  = "durham_2020_raw.csv"
	DefaultOutput = "durham_2020_cleaner_headers.csv"
	DefaultFile   = ".surveyclean.json"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
	WriteFailed     ConfigErrorType = "WRITE_FAILED"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("cannot read configuration file %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	case WriteFailed:
		return fmt.Sprintf("failed to write configuration file %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// BatchConfig controls how batch mode walks a directory.
type BatchConfig struct {
	Recursive     bool   `json:"recursive"`
	SymlinkPolicy string `json:"symlinkPolicy,omitempty"` // "follow", "skip", or "error"
}

// Configuration holds all settings for surveyclean.
type Configuration struct {
	Input           string               `json:"input,omitempty"`
	Output          string               `json:"output,omitempty"`
	Mode            string               `json:"mode,omitempty"`
	Encoding        string               `json:"encoding,omitempty"`
	OutputSuffix    string               `json:"outputSuffix,omitempty"`
	OutputDirectory string               `json:"outputDirectory,omitempty"` // Batch/watch destination; empty writes beside each input
	Overwrite       bool                 `json:"overwrite"`
	Batch           *BatchConfig         `json:"batch,omitempty"`
	Audit           *audit.Config        `json:"audit,omitempty"`
	Watch           *watcher.WatchConfig `json:"watch,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	cfg := &Configuration{Overwrite: true}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Configuration) ApplyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Mode == "" {
		c.Mode = string(header.ModePermissive)
	}
	if c.Encoding == "" {
		c.Encoding = "utf-8"
	}
	if c.OutputSuffix == "" {
		c.OutputSuffix = organizer.DefaultSuffix
	}
	if c.Batch == nil {
		c.Batch = &BatchConfig{}
	}
	if c.Batch.SymlinkPolicy == "" {
		c.Batch.SymlinkPolicy = scanner.SymlinkPolicySkip
	}
	if c.Audit == nil {
		defaults := audit.DefaultConfig()
		c.Audit = &defaults
	} else if c.Audit.LogDirectory == "" {
		c.Audit.LogDirectory = audit.DefaultConfig().LogDirectory
	}
	if c.Watch == nil {
		c.Watch = watcher.DefaultWatchConfig()
	}
}

// HeaderMode returns the parsed normalization mode.
func (c *Configuration) HeaderMode() (header.Mode, error) {
	return header.ParseMode(c.Mode)
}

// ScanOptions returns the scanner settings for batch mode.
func (c *Configuration) ScanOptions() scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	if c.Batch != nil {
		if c.Batch.Recursive {
			opts.MaxDepth = -1
		}
		if c.Batch.SymlinkPolicy != "" {
			opts.SymlinkPolicy = c.Batch.SymlinkPolicy
		}
	}
	return opts
}

// Validate returns the first validation error as a *ConfigError.
func (c *Configuration) Validate() error {
	result := ValidateConfig(c)
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	return &ConfigError{
		Type:    ValidationError,
		Message: first.Field + ": " + first.Message,
	}
}

// Load reads, defaults and validates a configuration file.
func Load(filePath string) (*Configuration, error) {
	cfg, err := decode(filePath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(filePath string) (*Configuration, error) {
	cfg, err := Load(filePath)
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Type == FileNotFound && cfgErr.Message == "" {
		return Default(), nil
	}
	return cfg, err
}

func decode(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Type: FileNotFound, Path: filePath}
		}
		return nil, &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error()}
	}

	cfg := &Configuration{Overwrite: true}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Type: InvalidJSON, Path: filePath, Message: err.Error()}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save serializes and writes a configuration to the given path.
func Save(config *Configuration, filePath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return &ConfigError{Type: InvalidJSON, Path: filePath, Message: err.Error()}
	}

	if err := os.WriteFile(filePath, append(data, '\n'), 0644); err != nil {
		return &ConfigError{Type: WriteFailed, Path: filePath, Message: err.Error()}
	}
	return nil
}
