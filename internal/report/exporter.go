// Package report renders dashboards as JSON or CSV and stores them in the
// blob store.
package report

import (
	"aquamind/internal/blob"
	"aquamind/internal/core"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format names a rendering of a dashboard.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Prefix is the blob key prefix for every dashboard export.
const Prefix = "dashboards/"

// ParseFormat accepts any casing of a supported format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Artifact describes one stored rendering.
type Artifact struct {
	ID          string            `json:"id"`
	Format      Format            `json:"format"`
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Exporter writes dashboard snapshots to a blob store.
type Exporter struct {
	store  blob.Store
	logger core.Logger
	newID  func() string
	expiry time.Duration
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithLogger routes exporter logs to logger.
func WithLogger(logger core.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithURLExpiry sets the lifetime of presigned artifact URLs.
func WithURLExpiry(d time.Duration) Option {
	return func(e *Exporter) { e.expiry = d }
}

// NewExporter returns an exporter writing to store.
func NewExporter(store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{store: store, logger: core.NopLogger{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the blob key of an export id rendered as format at t.
func Key(t time.Time, id string, format Format) string {
	t = t.UTC()
	return path.Join(strings.TrimSuffix(Prefix, "/"), t.Format("2006"), t.Format("01"), t.Format("02"), id+"."+string(format))
}

// Export renders dash in each format (JSON when none are given) and stores
// the results under one shared id.
func (e *Exporter) Export(ctx context.Context, dash core.Dashboard, formats ...Format) ([]Artifact, error) {
	if len(formats) == 0 {
		formats = []Format{FormatJSON}
	}
	id := e.newID()
	artifacts := make([]Artifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := render(dash, format)
		if err != nil {
			return nil, err
		}
		meta := map[string]string{
			"export_id":    id,
			"generated_at": dash.GeneratedAt.UTC().Format(time.RFC3339),
			"batches":      strconv.Itoa(len(dash.Batches)),
		}
		key := Key(dash.GeneratedAt, id, format)
		info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: meta})
		if err != nil {
			return nil, fmt.Errorf("store %s export: %w", format, err)
		}
		art := Artifact{
			ID:          id,
			Format:      format,
			Key:         info.Key,
			ContentType: contentType,
			SizeBytes:   info.Size,
			Metadata:    meta,
			CreatedAt:   info.LastModified,
		}
		if url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: e.expiry}); err == nil {
			art.URL = url
		} else {
			e.logger.Debug("presign unavailable", "key", key, "error", err)
		}
		artifacts = append(artifacts, art)
	}
	e.logger.Info("dashboard exported", "export_id", id, "formats", len(artifacts), "driver", string(e.store.Driver()))
	return artifacts, nil
}

// List returns stored exports, oldest key first.
func (e *Exporter) List(ctx context.Context) ([]blob.Info, error) {
	return e.store.List(ctx, Prefix)
}

func render(dash core.Dashboard, format Format) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal dashboard: %w", err)
		}
		return b, "application/json", nil
	case FormatCSV:
		b, err := renderCSV(dash)
		return b, "text/csv", err
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

var csvHeader = []string{
	"batch_number", "species", "stage", "days_active", "stage_progress", "progress_color",
	"survival_rate", "health_status", "expected_stage", "lagging", "current_count", "biomass_kg",
}

func renderCSV(dash core.Dashboard) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, ov := range dash.Batches {
		record := []string{
			ov.BatchNumber,
			ov.Species,
			ov.Stage,
			strconv.Itoa(ov.DaysActive),
			formatFloat(ov.StageProgress),
			string(ov.ProgressColor),
			formatFloat(ov.SurvivalRate),
			string(ov.HealthStatus),
			ov.ExpectedStage,
			strconv.FormatBool(ov.Lagging),
			strconv.Itoa(ov.CurrentCount),
			formatFloat(ov.BiomassKg),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
