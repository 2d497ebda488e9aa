package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", env(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	table, err := cfg.StageTable()
	if err != nil || table.Len() != 6 {
		t.Fatalf("expected default stage table, got %v %v", table, err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, "aquamind.yaml", `
storage:
  driver: Postgres
  postgres_dsn: postgres://db/aquamind
blob:
  driver: s3
  s3:
    bucket: reports
    region: eu-west-1
log:
  level: debug
  format: TEXT
metrics:
  backend: " Expvar "
`)
	cfg, err := Load(path, env(map[string]string{
		"AQUAMIND_HTTP_ADDR":          "127.0.0.1:9090",
		"AQUAMIND_BLOB_S3_PATH_STYLE": "true",
		"AQUAMIND_BLOB_S3_ENDPOINT":   "http://minio:9000",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://db/aquamind" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	wantS3 := S3Config{Bucket: "reports", Region: "eu-west-1", Endpoint: "http://minio:9000", PathStyle: true}
	if diff := cmp.Diff(wantS3, cfg.Blob.S3); diff != "" {
		t.Fatalf("s3 mismatch (-want +got):\n%s", diff)
	}
	if cfg.Log.Level != "DEBUG" || cfg.Log.Format != "text" || cfg.HTTP.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected log/http: %+v %+v", cfg.Log, cfg.HTTP)
	}
	if cfg.Metrics.Backend != "expvar" {
		t.Fatalf("metrics backend = %q", cfg.Metrics.Backend)
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := writeFile(t, "c.yaml", "storage:\n  driver: memory\n")
	cfg, err := Load("", env(map[string]string{EnvConfigFile: path}))
	if err != nil || cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver from env file: %+v %v", cfg, err)
	}
}

func TestLoadStagesFile(t *testing.T) {
	stages := writeFile(t, "stages.yaml", `
- name: Egg
  duration_days: 60
- name: Fry
  duration_days: 90
  aliases: [fingerling]
`)
	cfg, err := Load("", env(map[string]string{"AQUAMIND_STAGES_FILE": stages}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table, err := cfg.StageTable()
	if err != nil {
		t.Fatalf("StageTable: %v", err)
	}
	if table.TotalDays() != 150 {
		t.Fatalf("total days = %d", table.TotalDays())
	}
	if _, idx, ok := table.Lookup("Fingerling"); !ok || idx != 1 {
		t.Fatalf("alias lookup failed")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "unknown field", file: "storage:\n  engine: x\n", want: "field engine not found"},
		{name: "bad yaml", file: "storage: [", want: "parse config"},
		{name: "bad storage driver", env: map[string]string{"AQUAMIND_STORAGE_DRIVER": "mongo"}, want: "storage.driver"},
		{name: "bad blob driver", env: map[string]string{"AQUAMIND_BLOB_DRIVER": "gcs"}, want: "blob.driver"},
		{name: "s3 without bucket", env: map[string]string{"AQUAMIND_BLOB_DRIVER": "s3"}, want: "bucket is required"},
		{name: "half credentials", env: map[string]string{"AQUAMIND_BLOB_DRIVER": "s3", "AQUAMIND_BLOB_S3_BUCKET": "b", "AQUAMIND_BLOB_S3_ACCESS_KEY_ID": "k"}, want: "set together"},
		{name: "bad path style", env: map[string]string{"AQUAMIND_BLOB_S3_PATH_STYLE": "maybe"}, want: "PATH_STYLE"},
		{name: "bad level", env: map[string]string{"AQUAMIND_LOG_LEVEL": "trace"}, want: "log.level"},
		{name: "bad metrics backend", env: map[string]string{"AQUAMIND_METRICS_BACKEND": "statsd"}, want: "metrics.backend"},
		{name: "bad format", env: map[string]string{"AQUAMIND_LOG_FORMAT": "xml"}, want: "log.format"},
		{name: "missing stages file", env: map[string]string{"AQUAMIND_STAGES_FILE": "/nonexistent/stages.yaml"}, want: "read stages"},
		{name: "invalid stages", file: "stages:\n  - name: Egg\n    duration_days: 0\n", want: "stages:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, "c.yaml", tt.file)
			}
			_, err := Load(path, env(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil)); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestNormalizeNil(t *testing.T) {
	Normalize(nil)
}

func TestValidateEmptyAddr(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Addr = ""
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected addr error")
	}
}
