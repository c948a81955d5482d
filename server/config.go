package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/dbh"
	"github.com/inkpressd/inkpress/server/cache"
	"github.com/inkpressd/inkpress/server/storage"
)

// Config is the JSON config file. Only DB is required; everything else
// has a sensible default or is optional.
type Config struct {
	// HTTP listen address, eg ":8080"
	HTTP string `json:"http"`

	DB dbh.DBConfig `json:"db"`

	// Redis is optional. When absent, list/search caching is disabled.
	Redis *cache.Config `json:"redis"`

	ImageStorage StorageConfig `json:"imageStorage"`
}

// StorageConfig selects exactly one blob store backend. When none is
// configured we fall back to a local directory.
type StorageConfig struct {
	Filesystem *FilesystemStorageConfig `json:"filesystem"`
	GCS        *GCSStorageConfig        `json:"gcs"`
	S3         *storage.S3Config        `json:"s3"`
}

type FilesystemStorageConfig struct {
	Root string `json:"root"`
}

type GCSStorageConfig struct {
	Bucket string `json:"bucket"`
}

const defaultHTTPAddr = ":8080"
const defaultStorageRoot = "inkpress-images"

func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to read config file %v: %w", filename, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Failed to parse config file %v: %w", filename, err)
	}
	if cfg.HTTP == "" {
		cfg.HTTP = defaultHTTPAddr
	}
	nStorage := 0
	if cfg.ImageStorage.Filesystem != nil {
		nStorage++
	}
	if cfg.ImageStorage.GCS != nil {
		nStorage++
	}
	if cfg.ImageStorage.S3 != nil {
		nStorage++
	}
	if nStorage > 1 {
		return nil, fmt.Errorf("Config specifies more than one imageStorage backend")
	}
	if nStorage == 0 {
		cfg.ImageStorage.Filesystem = &FilesystemStorageConfig{Root: defaultStorageRoot}
	}
	return cfg, nil
}
