// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"toxic-scan/internal/logging"
	"toxic-scan/internal/matcher"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings for the CLI
	Defaults struct {
		Format  string `yaml:"format"`
		NoColor bool   `yaml:"no_color"`
		Debug   bool   `yaml:"debug"`
		Workers int    `yaml:"workers"`
	} `yaml:"defaults"`

	// Pattern catalog source
	Catalog struct {
		Path     string        `yaml:"path"`
		Watch    bool          `yaml:"watch"`
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"catalog"`

	// Regex engine selection
	Engine struct {
		Name         string        `yaml:"name"`
		MatchTimeout time.Duration `yaml:"match_timeout"`
	} `yaml:"engine"`

	Highlight struct {
		EscapeUnmatched bool `yaml:"escape_unmatched"`
	} `yaml:"highlight"`

	// Input limits enforced by the CLI and the HTTP API
	Limits struct {
		MaxTextLength int   `yaml:"max_text_length"`
		MaxFileSize   int64 `yaml:"max_file_size"`
	} `yaml:"limits"`

	Server struct {
		Address         string        `yaml:"address"`
		Mode            string        `yaml:"mode"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Persistence of analyses, statistics and custom patterns
	Store struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
		PruneSchedule string `yaml:"prune_schedule"`
	} `yaml:"store"`

	Logging logging.Config `yaml:"logging"`
}

// Supported output formats
var Formats = []string{"text", "json", "yaml", "csv", "html"}

// Default limits
const (
	DefaultMaxTextLength = 10000
	DefaultMaxFileSize   = 5 * 1024 * 1024
)

// Default returns a configuration with every default applied
func Default() *Config {
	config := &Config{}

	config.Defaults.Format = "text"
	config.Defaults.Workers = 4

	config.Catalog.Path = filepath.Join("data", "toxic_patterns.json")
	config.Catalog.Debounce = 500 * time.Millisecond

	config.Engine.Name = matcher.EngineRE2
	config.Engine.MatchTimeout = matcher.DefaultMatchTimeout

	config.Limits.MaxTextLength = DefaultMaxTextLength
	config.Limits.MaxFileSize = DefaultMaxFileSize

	config.Server.Address = ":8080"
	config.Server.Mode = "release"
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.ShutdownTimeout = 10 * time.Second

	config.Store.Enabled = true
	config.Store.Path = "toxic-scan.db"
	config.Store.RetentionDays = 90
	config.Store.PruneSchedule = "0 3 * * *"

	config.Logging.Level = "info"

	return config
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	defaultStoreEnabled := config.Store.Enabled

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// A store section without an explicit enabled flag keeps the default
	if !containsField(data, "store", "enabled") {
		config.Store.Enabled = defaultStoreEnabled
	}

	// Relative catalog and store paths resolve against the config file
	baseDir := filepath.Dir(cleanPath)
	if containsField(data, "catalog", "path") {
		config.Catalog.Path = resolvePath(baseDir, config.Catalog.Path)
	}
	if containsField(data, "store", "path") {
		config.Store.Path = resolvePath(baseDir, config.Store.Path)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"toxic-scan.yaml", "toxic-scan.yml", "config.yaml", ".toxic-scan.yaml"} {
		if fileExists(name) {
			return name
		}
	}

	if dir := os.Getenv("TOXIC_CONFIG_DIR"); dir != "" {
		configFile := filepath.Join(dir, "config.yaml")
		if fileExists(configFile) {
			return configFile
		}
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	xdgConfigFile := filepath.Join(xdgConfig, "toxic-scan", "config.yaml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig checks value ranges and names
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if !isFormat(config.Defaults.Format) {
		return fmt.Errorf("unsupported format %q (available: %s)", config.Defaults.Format, strings.Join(Formats, ", "))
	}
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if _, err := matcher.NewEngine(config.Engine.Name, config.Engine.MatchTimeout); err != nil {
		return err
	}
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path must be set")
	}
	if config.Limits.MaxTextLength <= 0 {
		return fmt.Errorf("max_text_length must be positive")
	}
	if config.Limits.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if config.Store.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	if config.Store.Enabled && config.Store.PruneSchedule != "" {
		if _, err := cron.ParseStandard(config.Store.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune_schedule %q: %w", config.Store.PruneSchedule, err)
		}
	}

	return nil
}

func isFormat(name string) bool {
	for _, f := range Formats {
		if f == name {
			return true
		}
	}
	return false
}

// ApplyEnv overlays TOXIC_* environment variables, loading a .env file
// from the working directory first when one exists
func ApplyEnv(config *Config) error {
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("error loading .env: %w", err)
		}
	}

	config.Catalog.Path = getEnv("TOXIC_CATALOG_PATH", config.Catalog.Path)
	config.Catalog.Watch = getEnvBool("TOXIC_CATALOG_WATCH", config.Catalog.Watch)
	config.Engine.Name = getEnv("TOXIC_ENGINE", config.Engine.Name)
	config.Server.Address = getEnv("TOXIC_SERVER_ADDR", config.Server.Address)
	config.Store.Enabled = getEnvBool("TOXIC_STORE_ENABLED", config.Store.Enabled)
	config.Store.Path = getEnv("TOXIC_STORE_PATH", config.Store.Path)
	config.Limits.MaxTextLength = getEnvInt("TOXIC_MAX_TEXT_LENGTH", config.Limits.MaxTextLength)
	config.Logging.Level = getEnv("TOXIC_LOG_LEVEL", config.Logging.Level)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		config.Defaults.NoColor = true
	}

	return ValidateConfig(config)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults; callers should not crash on a missing/bad config file.
		cfg = Default()
	}
	return cfg
}
