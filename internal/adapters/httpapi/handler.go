// Package httpapi serves the lifecycle calculator, batch service and
// dashboard exports over HTTP/JSON.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"aquamind/internal/core"
	"aquamind/internal/report"
	"aquamind/pkg/domain"
	"aquamind/pkg/lifecycle"
)

const maxBody = 1 << 20

// Handler routes /api/v1 requests to the batch service.
type Handler struct {
	Service  *core.Service
	Exporter *report.Exporter // optional; export routes 404 without it
	Metrics  http.Handler     // optional; served at /metrics
	Vars     http.Handler     // optional; served at /debug/vars
	Logger   core.Logger
}

// NewHandler constructs a handler for svc.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "batch service not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case path == "/metrics":
		if h.Metrics == nil {
			http.NotFound(w, r)
			return
		}
		h.Metrics.ServeHTTP(w, r)
	case path == "/debug/vars":
		if h.Vars == nil {
			http.NotFound(w, r)
			return
		}
		h.Vars.ServeHTTP(w, r)
	case strings.HasPrefix(path, "/api/v1/lifecycle/"):
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleLifecycle(w, r, strings.TrimPrefix(path, "/api/v1/lifecycle/"))
	case path == "/api/v1/batches":
		h.handleBatches(w, r)
	case strings.HasPrefix(path, "/api/v1/batches/"):
		h.handleBatch(w, r, strings.Split(strings.TrimPrefix(path, "/api/v1/batches/"), "/"))
	case path == "/api/v1/dashboard":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		dash, err := h.Service.Dashboard(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	case path == "/api/v1/dashboard/exports":
		if h.Exporter == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleLifecycle(w http.ResponseWriter, r *http.Request, action string) {
	table := h.Service.StageTable()
	q := r.URL.Query()
	switch action {
	case "stages":
		writeJSON(w, http.StatusOK, map[string]any{
			"stages":     table.Stages(),
			"total_days": table.TotalDays(),
		})
	case "progress":
		days := math.NaN()
		if raw := q.Get("days"); raw != "" {
			v, err := parseFinite(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid days %q", raw))
				return
			}
			days = v
		}
		stage := q.Get("stage")
		progress := table.Progress(stage, days)
		color := lifecycle.ProgressColorFor(progress)
		resp := map[string]any{
			"stage":    stage,
			"progress": progress,
			"color":    color,
			"class":    color.Class(),
		}
		if s, _, ok := table.Lookup(stage); ok {
			resp["resolved_stage"] = s.Name
		}
		if !math.IsNaN(days) {
			resp["days_active"] = days
		}
		writeJSON(w, http.StatusOK, resp)
	case "health":
		raw := q.Get("survival")
		survival, err := parseFinite(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid survival %q", raw))
			return
		}
		status := lifecycle.HealthStatusFor(survival)
		writeJSON(w, http.StatusOK, map[string]any{
			"survival_rate": survival,
			"status":        status,
			"class":         status.Class(),
		})
	default:
		writeError(w, http.StatusNotFound, "lifecycle endpoint not found")
	}
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"batches": h.Service.ListBatches(r.Context())})
	case http.MethodPost:
		var batch domain.Batch
		if !decodeBody(w, r, &batch) {
			return
		}
		created, res, err := h.Service.CreateBatch(r.Context(), batch)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"batch": created, "violations": res.Violations})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// batchPatch carries the mutable batch fields; nil fields are left alone.
type batchPatch struct {
	LifecycleStage *string             `json:"lifecycle_stage"`
	Status         *domain.BatchStatus `json:"status"`
	CurrentCount   *int                `json:"current_count"`
	BiomassKg      *float64            `json:"biomass_kg"`
	ContainerID    *string             `json:"container_id"`
	Notes          *string             `json:"notes"`
}

func (p batchPatch) apply(b *domain.Batch) error {
	if p.LifecycleStage != nil {
		b.LifecycleStage = *p.LifecycleStage
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.CurrentCount != nil {
		b.CurrentCount = *p.CurrentCount
	}
	if p.BiomassKg != nil {
		b.BiomassKg = *p.BiomassKg
	}
	if p.ContainerID != nil {
		b.ContainerID = p.ContainerID
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	return nil
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request, segments []string) {
	id := segments[0]
	if id == "" || len(segments) > 2 {
		writeError(w, http.StatusNotFound, "batch endpoint not found")
		return
	}
	ctx := r.Context()
	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			batch, err := h.Service.GetBatch(ctx, id)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"batch": batch})
		case http.MethodPatch:
			var patch batchPatch
			if !decodeBody(w, r, &patch) {
				return
			}
			updated, res, err := h.Service.UpdateBatch(ctx, id, patch.apply)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"batch": updated, "violations": res.Violations})
		case http.MethodDelete:
			if _, err := h.Service.DeleteBatch(ctx, id); err != nil {
				h.writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch segments[1] {
	case "overview":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		ov, err := h.Service.BatchOverview(ctx, id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	case "samples":
		switch r.Method {
		case http.MethodGet:
			samples, err := h.Service.ListGrowthSamples(ctx, id)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"samples": samples})
		case http.MethodPost:
			var sample domain.GrowthSample
			if !decodeBody(w, r, &sample) {
				return
			}
			sample.BatchID = id
			created, res, err := h.Service.RecordGrowthSample(ctx, sample)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"sample": created, "violations": res.Violations})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "feedings":
		switch r.Method {
		case http.MethodGet:
			feedings, err := h.Service.ListFeedings(ctx, id)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"feedings": feedings})
		case http.MethodPost:
			var feeding domain.FeedingEvent
			if !decodeBody(w, r, &feeding) {
				return
			}
			feeding.BatchID = id
			created, res, err := h.Service.RecordFeeding(ctx, feeding)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"feeding": created, "violations": res.Violations})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "batch endpoint not found")
	}
}

type exportRequest struct {
	Formats []string `json:"formats"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := h.Exporter.List(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exports": items})
	case http.MethodPost:
		var req exportRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		formats := make([]report.Format, 0, len(req.Formats))
		for _, raw := range req.Formats {
			f, err := report.ParseFormat(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			formats = append(formats, f)
		}
		dash, err := h.Service.Dashboard(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		artifacts, err := h.Exporter.Export(r.Context(), dash, formats...)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"artifacts": artifacts})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var nf domain.ErrNotFound
	var rve domain.RuleViolationError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &rve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"violations": rve.Result.Violations,
		})
	default:
		if h.Logger != nil {
			h.Logger.Error("request failed", "error", err)
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseFinite parses a float query value, rejecting NaN and infinities.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}

// writeJSON encodes payload before touching the response so an encoding
// failure still yields a JSON 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(map[string]any{"error": "encode response: " + err.Error()})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
