package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testEnv(t *testing.T) func(string) string {
	t.Helper()
	dir := t.TempDir()
	vars := map[string]string{
		"AQUAMIND_STORAGE_DRIVER": "sqlite",
		"AQUAMIND_SQLITE_PATH":    filepath.Join(dir, "aquamind.db"),
		"AQUAMIND_BLOB_DRIVER":    "fs",
		"AQUAMIND_BLOB_FS_ROOT":   filepath.Join(dir, "blobs"),
		"AQUAMIND_LOG_LEVEL":      "ERROR",
	}
	return func(k string) string { return vars[k] }
}

func execute(t *testing.T, getenv func(string) string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(getenv)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestStagesCommand(t *testing.T) {
	out, err := execute(t, testEnv(t), "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, want := range []string{"Egg", "Post-Smolt", "Adult", "950"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stages output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressCommand(t *testing.T) {
	env := testEnv(t)
	out, err := execute(t, env, "progress", "--stage", "fry", "--days", "150")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if strings.TrimSpace(out) != "fry: 50.00% (green)" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, env, "-o", "json", "progress", "--stage", "Kraken", "--days", "10")
	if err != nil {
		t.Fatalf("progress json: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["progress"].(float64) != 0 {
		t.Fatalf("unknown stage should yield 0, got %v", payload["progress"])
	}

	if _, err := execute(t, env, "progress", "--stage", "fry", "--strict"); err == nil {
		t.Fatalf("expected strict error without days")
	}
	if _, err := execute(t, env, "-o", "xml", "stages"); err == nil {
		t.Fatalf("expected error for unsupported output")
	}
}

func TestHealthCommand(t *testing.T) {
	out, err := execute(t, testEnv(t), "health", "--survival", "84.9")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "poor") {
		t.Fatalf("expected poor, got %q", out)
	}
}

const batchesYAML = `batches:
  - batch_number: B-001
    species: Atlantic Salmon
    lifecycle_stage: Fry
    start_date: 2025-01-01T00:00:00Z
    initial_count: 1000
    current_count: 950
    biomass_kg: 95
  - batch_number: B-002
    species: Atlantic Salmon
    lifecycle_stage: Smolt
    start_date: 2024-06-01T00:00:00Z
    initial_count: 2000
    current_count: 1500
    biomass_kg: 300
`

func TestBatchesImportListAndDashboard(t *testing.T) {
	env := testEnv(t)
	path := writeFile(t, "batches.yaml", batchesYAML)
	out, err := execute(t, env, "batches", "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "imported 2 batches") {
		t.Fatalf("unexpected import output %q", out)
	}

	out, err = execute(t, env, "batches", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "B-001") || !strings.Contains(out, "B-002") {
		t.Fatalf("list missing batches:\n%s", out)
	}

	out, err = execute(t, env, "dashboard")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !strings.Contains(out, "2 batches, 2450 fish") {
		t.Fatalf("unexpected dashboard summary:\n%s", out)
	}

	out, err = execute(t, env, "dashboard", "--export", "--format", "json,csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Count(out, "exported dashboards/") != 2 {
		t.Fatalf("expected two exports:\n%s", out)
	}
	if _, err := execute(t, env, "dashboard", "--export", "--format", "pdf"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestBatchesImportJSONAndRejects(t *testing.T) {
	env := testEnv(t)
	path := writeFile(t, "batches.json", `[{"batch_number":"B-9","lifecycle_stage":"Parr","initial_count":10,"current_count":10}]`)
	out, err := execute(t, env, "-o", "json", "batches", "import", path)
	if err != nil {
		t.Fatalf("import json: %v", err)
	}
	var payload struct {
		Batches []struct {
			ID string `json:"id"`
		} `json:"batches"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil || len(payload.Batches) != 1 {
		t.Fatalf("decode import output %q: %v", out, err)
	}
	if out, err = execute(t, env, "batches", "show", payload.Batches[0].ID); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "B-9") || !strings.Contains(out, "Parr") {
		t.Fatalf("unexpected show output %q", out)
	}

	dup := writeFile(t, "dup.json", `{"batches":[{"batch_number":"B-9","lifecycle_stage":"Parr"}]}`)
	if _, err := execute(t, env, "batches", "import", dup); err == nil {
		t.Fatalf("expected duplicate batch number to be rejected")
	}
	empty := writeFile(t, "empty.yaml", "batches: []\n")
	if _, err := execute(t, env, "batches", "import", empty); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if _, err := execute(t, env, "batches", "show", "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	c := &cli{getenv: testEnv(t), output: "text"}
	if err := c.init(io.Discard); err != nil {
		t.Fatalf("init: %v", err)
	}
	handler, closeFn, err := c.buildHandler(context.Background())
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	defer func() { _ = closeFn() }()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, ln, handler) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestBuildHandlerExpvarBackend(t *testing.T) {
	base := testEnv(t)
	getenv := func(k string) string {
		if k == "AQUAMIND_METRICS_BACKEND" {
			return "expvar"
		}
		return base(k)
	}
	c := &cli{getenv: getenv, output: "text"}
	if err := c.init(io.Discard); err != nil {
		t.Fatalf("init: %v", err)
	}
	handler, closeFn, err := c.buildHandler(context.Background())
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	defer func() { _ = closeFn() }()

	body := strings.NewReader(`{"batch_number":"B-1","lifecycle_stage":"Fry","initial_count":10,"current_count":10}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batches", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"create_batch"`) {
		t.Fatalf("expected create_batch totals in /debug/vars, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected no prometheus endpoint with expvar backend, got %d", rec.Code)
	}
}
