package config

import "strings"

// Normalize trims values and lowercases driver and format names. It is
// called before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	cfg.Storage.Driver = lower(cfg.Storage.Driver)
	cfg.Storage.SQLitePath = strings.TrimSpace(cfg.Storage.SQLitePath)
	cfg.Storage.PostgresDSN = strings.TrimSpace(cfg.Storage.PostgresDSN)

	cfg.Blob.Driver = lower(cfg.Blob.Driver)
	cfg.Blob.FSRoot = strings.TrimSpace(cfg.Blob.FSRoot)
	cfg.Blob.S3.Bucket = strings.TrimSpace(cfg.Blob.S3.Bucket)
	cfg.Blob.S3.Region = strings.TrimSpace(cfg.Blob.S3.Region)
	cfg.Blob.S3.Endpoint = strings.TrimSpace(cfg.Blob.S3.Endpoint)

	cfg.Log.Level = strings.ToUpper(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = lower(cfg.Log.Format)
	cfg.HTTP.Addr = strings.TrimSpace(cfg.HTTP.Addr)
	cfg.Metrics.Backend = lower(cfg.Metrics.Backend)
}
