package config

import (
	"aquamind/internal/logging"
	"fmt"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}

	switch cfg.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if cfg.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required when blob.driver is s3")
		}
		if (cfg.Blob.S3.AccessKeyID == "") != (cfg.Blob.S3.SecretAccessKey == "") {
			return fmt.Errorf("blob.s3: access_key_id and secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("blob.driver: unknown driver %q", cfg.Blob.Driver)
	}

	if !logging.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}

	if cfg.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}

	switch cfg.Metrics.Backend {
	case "prometheus", "expvar":
	default:
		return fmt.Errorf("metrics.backend: unknown backend %q", cfg.Metrics.Backend)
	}

	if _, err := cfg.StageTable(); err != nil {
		return fmt.Errorf("stages: %w", err)
	}
	return nil
}
