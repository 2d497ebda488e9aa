package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aquamind/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}

	info, err := store.Put(ctx, "dashboards/2025/03/01/a.csv", strings.NewReader("batch,stage\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"batches": "1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 12 || len(info.ETag) != 64 || !strings.HasPrefix(info.URL, "file://") {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := store.Put(ctx, "dashboards/2025/03/01/a.csv", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "dashboards/2025/03/01/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "batch,stage\n" || got.Metadata["batches"] != "1" || got.ContentType != "text/csv" {
		t.Fatalf("get mismatch: %q %+v", body, got)
	}

	if _, err := store.Put(ctx, "other/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 2 || all[0].Key != "dashboards/2025/03/01/a.csv" {
		t.Fatalf("list all: %+v %v", all, err)
	}
	some, err := store.List(ctx, "other/")
	if err != nil || len(some) != 1 {
		t.Fatalf("list prefix: %+v %v", some, err)
	}

	url, err := store.PresignURL(ctx, "other/b.json", core.SignedURLOptions{})
	if err != nil || !strings.HasSuffix(url, "/other/b.json") {
		t.Fatalf("presign: %q %v", url, err)
	}
	if _, err := store.PresignURL(ctx, "other/b.json", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "missing", core.SignedURLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	ok, err := store.Delete(ctx, "other/b.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "other/b.json")
	if err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "other/b.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "other/b.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
}

func TestInvalidKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs", "../up", "a/../../up", "x.meta.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Errorf("Put(%q) succeeded", key)
		}
		if _, err := store.Head(ctx, key); err == nil {
			t.Errorf("Head(%q) succeeded", key)
		}
		if _, err := store.Delete(ctx, key); err == nil {
			t.Errorf("Delete(%q) succeeded", key)
		}
	}
}

func TestCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "a.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.json"+metaSuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "a.json"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list error")
	}
}

func TestNewDefaultRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	store, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if filepath.Base(store.Root()) != "blobdata" {
		t.Fatalf("root = %s", store.Root())
	}
}
