package core

import (
	"aquamind/pkg/analytics"
	"aquamind/pkg/domain"
	"aquamind/pkg/lifecycle"
	"context"
	"time"
)

// Overview is the lifecycle and health summary of one batch.
type Overview struct {
	BatchID       string                  `json:"batch_id"`
	BatchNumber   string                  `json:"batch_number"`
	Species       string                  `json:"species,omitempty"`
	Status        BatchStatus             `json:"status"`
	Stage         string                  `json:"stage"`
	StageKey      string                  `json:"stage_key,omitempty"`
	DaysActive    int                     `json:"days_active"`
	StageProgress float64                 `json:"stage_progress"`
	ProgressColor lifecycle.ProgressColor `json:"progress_color"`
	ProgressClass string                  `json:"progress_class"`
	SurvivalRate  float64                 `json:"survival_rate"`
	HealthStatus  lifecycle.HealthStatus  `json:"health_status"`
	HealthClass   string                  `json:"health_class"`
	ExpectedStage string                  `json:"expected_stage,omitempty"`
	Lagging       bool                    `json:"lagging"`
	CurrentCount  int                     `json:"current_count"`
	BiomassKg     float64                 `json:"biomass_kg"`
	Performance   *analytics.Metrics      `json:"performance,omitempty"`
}

// Dashboard aggregates the overviews of all active batches.
type Dashboard struct {
	GeneratedAt     time.Time                      `json:"generated_at"`
	Batches         []Overview                     `json:"batches"`
	HealthCounts    map[lifecycle.HealthStatus]int `json:"health_counts"`
	StageCounts     map[string]int                 `json:"stage_counts"`
	TotalPopulation int                            `json:"total_population"`
	TotalBiomassKg  float64                        `json:"total_biomass_kg"`
	LaggingBatches  int                            `json:"lagging_batches"`
}

// BuildOverview derives an Overview from a batch and its records as of now.
func BuildOverview(table *lifecycle.Table, batch Batch, samples []GrowthSample, feedings []FeedingEvent, now time.Time) Overview {
	if table == nil {
		table = lifecycle.DefaultTable()
	}
	days := lifecycle.DaysActive(batch.StartDate, now)
	progress := table.Progress(batch.LifecycleStage, float64(days))
	color := lifecycle.ProgressColorFor(progress)
	survival := analytics.SurvivalRate(batch.CurrentCount, batch.InitialCount)
	health := lifecycle.HealthStatusFor(survival)

	ov := Overview{
		BatchID:       batch.ID,
		BatchNumber:   batch.BatchNumber,
		Species:       batch.Species,
		Status:        batch.Status,
		Stage:         batch.LifecycleStage,
		DaysActive:    days,
		StageProgress: progress,
		ProgressColor: color,
		ProgressClass: color.Class(),
		SurvivalRate:  survival,
		HealthStatus:  health,
		HealthClass:   health.Class(),
		CurrentCount:  batch.CurrentCount,
		BiomassKg:     batch.BiomassKg,
	}
	current, idx, known := table.Lookup(batch.LifecycleStage)
	if known {
		ov.Stage = current.Name
		ov.StageKey = current.Key
	}
	if expected, want, ok := table.StageForDays(float64(days)); ok && !batch.StartDate.IsZero() {
		ov.ExpectedStage = expected.Name
		ov.Lagging = known && want > idx
	}

	if len(samples) > 0 {
		points := make([]analytics.Sample, len(samples))
		for i, sm := range samples {
			points[i] = analytics.Sample{
				Date:            sm.SampleDate,
				PopulationCount: sm.PopulationCount,
				BiomassKg:       sm.BiomassKg,
				GrowthRate:      sm.GrowthRate,
				ConditionFactor: sm.ConditionFactor,
			}
		}
		feed := 0.0
		for _, f := range feedings {
			feed += f.FeedKg
		}
		if m, ok := analytics.Performance(points, feed); ok {
			ov.Performance = &m
		}
	}
	return ov
}

// BatchOverview returns the overview of a single batch.
func (s *Service) BatchOverview(ctx context.Context, id string) (Overview, error) {
	start := time.Now()
	var ov Overview
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		batch, ok := v.FindBatch(id)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityBatch, ID: id}
		}
		ov = BuildOverview(s.table, batch, v.ListGrowthSamples(id), v.ListFeedingEvents(id), s.clock.Now())
		return nil
	})
	s.observe(ctx, "batch_overview", start, err)
	return ov, err
}

// Dashboard summarises every active batch ordered by batch number.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	start := time.Now()
	now := s.clock.Now()
	dash := Dashboard{
		GeneratedAt:  now,
		Batches:      []Overview{},
		HealthCounts: make(map[lifecycle.HealthStatus]int, len(lifecycle.HealthStatuses())),
		StageCounts:  make(map[string]int),
	}
	for _, hs := range lifecycle.HealthStatuses() {
		dash.HealthCounts[hs] = 0
	}
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		for _, batch := range v.ListBatches() {
			if batch.Status != domain.BatchStatusActive {
				continue
			}
			ov := BuildOverview(s.table, batch, v.ListGrowthSamples(batch.ID), v.ListFeedingEvents(batch.ID), now)
			dash.Batches = append(dash.Batches, ov)
			dash.HealthCounts[ov.HealthStatus]++
			dash.StageCounts[ov.Stage]++
			dash.TotalPopulation += ov.CurrentCount
			dash.TotalBiomassKg += ov.BiomassKg
			if ov.Lagging {
				dash.LaggingBatches++
			}
		}
		return nil
	})
	s.observe(ctx, "dashboard", start, err)
	return dash, err
}
