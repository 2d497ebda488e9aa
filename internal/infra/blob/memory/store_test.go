package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"aquamind/internal/blob/core"
)

func TestStore(t *testing.T) {
	s := New()
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}

	md := map[string]string{"k": "v"}
	info, err := s.Put(ctx, "b/2", strings.NewReader("two"), core.PutOptions{ContentType: "text/plain", Metadata: md})
	if err != nil || info.Size != 3 || info.ETag == "" {
		t.Fatalf("put: %+v %v", info, err)
	}
	md["k"] = "mutated"
	if _, err := s.Put(ctx, "b/1", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "b/1", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}

	got, rc, err := s.Get(ctx, "b/2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "two" || got.Metadata["k"] != "v" {
		t.Fatalf("get mismatch: %q %+v", body, got)
	}

	list, _ := s.List(ctx, "b/")
	if len(list) != 2 || list[0].Key != "b/1" {
		t.Fatalf("list: %+v", list)
	}

	url, err := s.PresignURL(ctx, "b/1", core.SignedURLOptions{})
	if err != nil || url != "mem://blob/b/1?expires=2025-03-01T00%3A15%3A00Z" {
		t.Fatalf("presign: %q %v", url, err)
	}
	if _, err := s.PresignURL(ctx, "b/1", core.SignedURLOptions{Method: "put"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if _, err := s.PresignURL(ctx, "nope", core.SignedURLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if ok, _ := s.Delete(ctx, "b/1"); !ok {
		t.Fatalf("expected delete")
	}
	if ok, _ := s.Delete(ctx, "b/1"); ok {
		t.Fatalf("expected second delete to report false")
	}
	if _, err := s.Head(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "b/1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
