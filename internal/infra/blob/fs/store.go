// Package fs stores blobs as files under a root directory, with content
// type, metadata and checksum kept in a JSON sidecar next to each file.
package fs

import (
	"aquamind/internal/blob/core"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const metaSuffix = ".meta.json"

// Store implements core.Store on the local filesystem.
type Store struct {
	root string
}

// New returns a store rooted at root (default ./blobdata), creating it.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./blobdata"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	StoredAt    time.Time         `json:"stored_at"`
}

func (m sidecar) info(key, u string) core.Info {
	return core.Info{
		Key:          key,
		Size:         m.Size,
		ContentType:  m.ContentType,
		ETag:         m.ETag,
		Metadata:     core.CloneMetadata(m.Metadata),
		LastModified: m.StoredAt,
		URL:          u,
	}
}

// cleanKey rejects empty, absolute and escaping keys and sidecar names.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty blob key")
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return "", fmt.Errorf("blob key %q must be relative", key)
	}
	clean := path.Clean(filepath.ToSlash(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("blob key %q escapes the store", key)
	}
	if strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("blob key %q uses a reserved suffix", key)
	}
	return clean, nil
}

func (s *Store) paths(key string) (string, string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	data := filepath.Join(s.root, filepath.FromSlash(k))
	return k, data, data + metaSuffix, nil
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	k, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.Info{}, err
	}
	f, err := os.OpenFile(dataPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, iofs.ErrExist) {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, k)
	}
	if err != nil {
		return core.Info{}, err
	}
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dataPath)
		return core.Info{}, err
	}
	meta := sidecar{
		ContentType: opts.ContentType,
		Metadata:    core.CloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		StoredAt:    time.Now().UTC(),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		err = os.WriteFile(metaPath, b, 0o644)
	}
	if err != nil {
		_ = os.Remove(dataPath)
		return core.Info{}, fmt.Errorf("write blob metadata: %w", err)
	}
	return meta.info(k, s.fileURL(dataPath)), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	k, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	meta, err := readSidecar(metaPath, k)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, k)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	return meta.info(k, s.fileURL(dataPath)), f, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	k, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	meta, err := readSidecar(metaPath, k)
	if err != nil {
		return core.Info{}, err
	}
	return meta.info(k, s.fileURL(dataPath)), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	_, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		dataPath := strings.TrimSuffix(p, metaSuffix)
		rel, err := filepath.Rel(s.root, dataPath)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		meta, err := readSidecar(p, key)
		if err != nil {
			return err
		}
		infos = append(infos, meta.info(key, s.fileURL(dataPath)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns a file:// URL; the filesystem has no access control to
// sign against, so expiry is ignored.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	k, dataPath, _, err := s.paths(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dataPath); err != nil {
		return "", fmt.Errorf("%w: %s", core.ErrNotFound, k)
	}
	return s.fileURL(dataPath), nil
}

func (s *Store) fileURL(p string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

func readSidecar(p, key string) (sidecar, error) {
	b, err := os.ReadFile(p)
	if errors.Is(err, iofs.ErrNotExist) {
		return sidecar{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return sidecar{}, err
	}
	var m sidecar
	if err := json.Unmarshal(b, &m); err != nil {
		return sidecar{}, fmt.Errorf("decode blob metadata %s: %w", key, err)
	}
	return m, nil
}
