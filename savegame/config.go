package savegame

import (
	"context"
	"fmt"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverS3     = "s3"
)

// Config selects and parameterizes the save store.
type Config struct {
	Driver          string `json:"driver,omitempty" env:"DRIVER"`
	Path            string `json:"path,omitempty" env:"PATH"` // file root directory or sqlite database file
	Bucket          string `json:"bucket,omitempty" env:"BUCKET"`
	Region          string `json:"region,omitempty" env:"REGION"`
	Endpoint        string `json:"endpoint,omitempty" env:"ENDPOINT"`
	Prefix          string `json:"prefix,omitempty" env:"PREFIX"`
	AccessKeyID     string `json:"access_key_id,omitempty" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key,omitempty" env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `json:"path_style,omitempty" env:"PATH_STYLE"`
}

// DefaultConfig returns the in-memory store configuration.
func DefaultConfig() Config {
	return Config{Driver: DriverMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Bucket != "" {
		c.Bucket = source.Bucket
	}
	if source.Region != "" {
		c.Region = source.Region
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
	if source.AccessKeyID != "" {
		c.AccessKeyID = source.AccessKeyID
	}
	if source.SecretAccessKey != "" {
		c.SecretAccessKey = source.SecretAccessKey
	}
	if source.PathStyle {
		c.PathStyle = true
	}
}

// NewStore creates the Store named by cfg.Driver.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%s store: path required", DriverFile)
		}
		return NewFileStore(cfg.Path), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%s store: path required", DriverSQLite)
		}
		return NewSQLiteStore(ctx, cfg.Path)
	case DriverS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown save store driver %q", cfg.Driver)
	}
}
