// Package config loads aquamind settings from an optional YAML file and
// AQUAMIND_* environment variables.
package config

import (
	"aquamind/pkg/lifecycle"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the YAML file read when no path is given explicitly.
const EnvConfigFile = "AQUAMIND_CONFIG"

type Config struct {
	Storage    StorageConfig     `yaml:"storage"`
	Blob       BlobConfig        `yaml:"blob"`
	Log        LogConfig         `yaml:"log"`
	HTTP       HTTPConfig        `yaml:"http"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	StagesFile string            `yaml:"stages_file"`
	Stages     []lifecycle.Stage `yaml:"stages"`
}

// ---- STORAGE ----

type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ---- BLOB ----

type BlobConfig struct {
	Driver string   `yaml:"driver"` // fs|s3|memory
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// ---- LOG / HTTP ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Backend string `yaml:"backend"` // prometheus|expvar
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "aquamind.db"},
		Blob:    BlobConfig{Driver: "fs", FSRoot: "./blobdata"},
		Log:     LogConfig{Level: "INFO", Format: "json"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Backend: "prometheus"},
	}
}

// Load builds a Config from defaults, the YAML file at path (if any, falling
// back to $AQUAMIND_CONFIG), then environment overrides. The result is
// normalized and validated.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path == "" {
		path = getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	if cfg.StagesFile != "" {
		stages, err := LoadStages(cfg.StagesFile)
		if err != nil {
			return nil, err
		}
		cfg.Stages = stages
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStages reads a YAML list of stages.
func LoadStages(path string) ([]lifecycle.Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages: %w", err)
	}
	var stages []lifecycle.Stage
	if err := decodeStrict(data, &stages); err != nil {
		return nil, fmt.Errorf("parse stages %s: %w", path, err)
	}
	return stages, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.Driver, "AQUAMIND_STORAGE_DRIVER")
	set(&cfg.Storage.SQLitePath, "AQUAMIND_SQLITE_PATH")
	set(&cfg.Storage.PostgresDSN, "AQUAMIND_POSTGRES_DSN")
	set(&cfg.Blob.Driver, "AQUAMIND_BLOB_DRIVER")
	set(&cfg.Blob.FSRoot, "AQUAMIND_BLOB_FS_ROOT")
	set(&cfg.Blob.S3.Bucket, "AQUAMIND_BLOB_S3_BUCKET")
	set(&cfg.Blob.S3.Region, "AQUAMIND_BLOB_S3_REGION")
	set(&cfg.Blob.S3.Endpoint, "AQUAMIND_BLOB_S3_ENDPOINT")
	set(&cfg.Blob.S3.AccessKeyID, "AQUAMIND_BLOB_S3_ACCESS_KEY_ID")
	set(&cfg.Blob.S3.SecretAccessKey, "AQUAMIND_BLOB_S3_SECRET_ACCESS_KEY")
	set(&cfg.Log.Level, "AQUAMIND_LOG_LEVEL")
	set(&cfg.Log.Format, "AQUAMIND_LOG_FORMAT")
	set(&cfg.HTTP.Addr, "AQUAMIND_HTTP_ADDR")
	set(&cfg.Metrics.Backend, "AQUAMIND_METRICS_BACKEND")
	set(&cfg.StagesFile, "AQUAMIND_STAGES_FILE")
	if v := getenv("AQUAMIND_BLOB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AQUAMIND_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}

// StageTable builds the lifecycle table from the configured stages, or
// returns the default salmon table when none are configured.
func (c *Config) StageTable() (*lifecycle.Table, error) {
	if len(c.Stages) == 0 {
		return lifecycle.DefaultTable(), nil
	}
	return lifecycle.NewTable(c.Stages)
}
