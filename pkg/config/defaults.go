package config

import (
	"strings"
	"time"
)

// Default values applied when the corresponding setting is absent from every
// configuration source.
const (
	DefaultLogLevel        = "INFO"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultBlobType        = "memory"
	DefaultMetadataType    = "memory"
	DefaultMetadataTable   = "s3dav-metadata"
)

// ApplyDefaults fills in zero values with sensible defaults.
//
// Defaults favor a zero-configuration local run: both stores default to
// their in-memory implementations, the table is provisioned automatically
// and the WebDAV adapter is enabled. Production deployments select the s3
// and dynamo types explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Blob.Type == "" {
		cfg.Blob.Type = DefaultBlobType
	}

	if cfg.Metadata.Type == "" {
		cfg.Metadata.Type = DefaultMetadataType
		cfg.Metadata.Provision = true
	}
	if cfg.Metadata.Table == "" {
		cfg.Metadata.Table = DefaultMetadataTable
	}
	if cfg.Metadata.Type == "memory" {
		// The memory store is empty on every start; the table always has
		// to be provisioned.
		cfg.Metadata.Provision = true
	}

	if !cfg.Adapters.WebDAV.Enabled && cfg.Adapters.WebDAV.Port == 0 {
		// No adapter section at all: enable WebDAV on its default port so
		// a bare binary serves something.
		cfg.Adapters.WebDAV.Enabled = true
	}
}
