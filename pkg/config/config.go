// Package config loads, defaults and validates the server configuration and
// provides the factories that construct stores from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/s3dav/pkg/adapter/webdav"
)

// Config represents the complete s3dav configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (S3DAV_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store configuration pattern: the Type field of each store section selects
// the implementation, and only the matching type-specific option map is
// decoded and used.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// Blob specifies the blob store type and type-specific configuration.
	Blob BlobConfig `mapstructure:"blob"`

	// Metadata specifies the metadata store type and type-specific
	// configuration.
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Adapters contains protocol adapter configurations.
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// BlobConfig specifies blob store configuration.
type BlobConfig struct {
	// Type selects the blob store implementation.
	// Valid values: s3, memory.
	Type string `mapstructure:"type" validate:"required,oneof=s3 memory"`

	// S3 contains S3-specific configuration. Only used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`

	// Memory contains memory-specific configuration.
	// Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`
}

// MetadataConfig specifies metadata store configuration.
type MetadataConfig struct {
	// Type selects the metadata store implementation.
	// Valid values: dynamo, badger, memory.
	Type string `mapstructure:"type" validate:"required,oneof=dynamo badger memory"`

	// Table is the name of the metadata table holding hierarchy records.
	Table string `mapstructure:"table" validate:"required"`

	// Provision creates the table at startup when it does not exist,
	// blocking until the backend reports it ready.
	Provision bool `mapstructure:"provision"`

	// Dynamo contains DynamoDB-specific configuration.
	// Only used when Type = "dynamo".
	Dynamo map[string]any `mapstructure:"dynamo"`

	// Badger contains BadgerDB-specific configuration.
	// Only used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`

	// Memory contains memory-specific configuration.
	// Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// WebDAV contains WebDAV protocol configuration.
	// Uses the webdav.WebDAVConfig type directly to avoid duplication.
	WebDAV webdav.WebDAVConfig `mapstructure:"webdav"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the S3DAV_ prefix with underscores.
	// Example: S3DAV_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("S3DAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is not an error; defaults and environment take over.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path, using
// XDG_CONFIG_HOME when set and falling back to ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "s3dav")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "s3dav")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
