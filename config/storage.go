package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageMode selects where the session snapshot is persisted.
type StorageMode string

const (
	// StorageModeFile writes a JSON file per namespace under a private directory.
	StorageModeFile StorageMode = "file"
	// StorageModeRedis stores the snapshot under a Redis key.
	StorageModeRedis StorageMode = "redis"
	// StorageModePostgres stores the snapshot in the session_snapshots table.
	StorageModePostgres StorageMode = "postgres"
	// StorageModeNone keeps the session in memory only.
	StorageModeNone StorageMode = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageMode.
func (m *StorageMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "postgres", "none":
		*m = StorageMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageMode: %q (valid options: file, redis, postgres, none)", v)
	}
}

// StorageConfig controls snapshot persistence.
type StorageConfig struct {
	Mode StorageMode `env:"AUTH_STORAGE" envDefault:"file"`

	// Dir is the file store directory. Empty means ~/.identity-session.
	Dir string `env:"AUTH_STORAGE_DIR"`

	// TTL expires Redis snapshots. Zero keeps them until cleared.
	TTL time.Duration `env:"AUTH_STORAGE_TTL" envDefault:"0s"`

	// RunMigrationsOnStart applies the Postgres schema before use.
	RunMigrationsOnStart bool `env:"AUTH_STORAGE_RUN_MIGRATIONS" envDefault:"true"`
}

// Sanitize normalises storage configuration values.
func (c *StorageConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = StorageModeFile
	}
	c.Dir = strings.TrimSpace(c.Dir)
	if c.TTL < 0 {
		c.TTL = 0
	}
}
