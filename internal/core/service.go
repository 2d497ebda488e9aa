// Package core hosts the batch service: transactional CRUD over the
// persistent store, the batch rules, and the lifecycle overviews built from
// stored batches.
package core

import (
	"aquamind/internal/infra/persistence/memory"
	"aquamind/pkg/domain"
	"aquamind/pkg/lifecycle"
	"context"
	"time"
)

// Service exposes transactional batch operations and derived views.
type Service struct {
	store   domain.PersistentStore
	table   *lifecycle.Table
	logger  Logger
	metrics MetricsRecorder
	clock   Clock
}

// Option customises a Service.
type Option func(*Service)

// WithLogger routes service logs to logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics reports every operation to recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithClock overrides the time source used for days-active calculations
// and, for stores that support it, record timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStageTable replaces the default salmon stage table used by views. The
// store's rules engine should be built from the same table.
func WithStageTable(table *lifecycle.Table) Option {
	return func(s *Service) {
		if table != nil {
			s.table = table
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		table:   lifecycle.DefaultTable(),
		logger:  NopLogger{},
		metrics: noopMetrics{},
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.bindClock()
	return svc
}

// clockSetter is implemented by stores that stamp records themselves.
type clockSetter interface {
	SetNowFunc(func() time.Time)
}

func (s *Service) bindClock() {
	if cs, ok := s.store.(clockSetter); ok {
		cs.SetNowFunc(s.clock.Now)
	}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine gets DefaultRulesEngine for the configured stage table.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	svc := NewService(nil, opts...)
	if engine == nil {
		engine = DefaultRulesEngine(svc.table)
	}
	svc.store = memory.NewStore(engine)
	svc.bindClock()
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// StageTable returns the stage table used for overviews.
func (s *Service) StageTable() *lifecycle.Table { return s.table }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock.Now() }

func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.observe(ctx, op, start, err)
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	return res, err
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "duration", elapsed, "error", err)
		return
	}
	s.logger.Debug("operation completed", "operation", op, "duration", elapsed)
}

// CreateBatch persists a new batch.
func (s *Service) CreateBatch(ctx context.Context, batch Batch) (Batch, Result, error) {
	var created Batch
	res, err := s.run(ctx, "create_batch", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateBatch(batch)
		return err
	})
	if err == nil {
		s.logger.Info("batch created", "batch_id", created.ID, "batch_number", created.BatchNumber)
	}
	return created, res, err
}

// ImportBatches creates all batches in a single transaction.
func (s *Service) ImportBatches(ctx context.Context, batches []Batch) ([]Batch, Result, error) {
	created := make([]Batch, 0, len(batches))
	res, err := s.run(ctx, "import_batches", func(tx domain.Transaction) error {
		for _, b := range batches {
			c, err := tx.CreateBatch(b)
			if err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	s.logger.Info("batches imported", "count", len(created))
	return created, res, nil
}

// UpdateBatch applies mutator to the stored batch.
func (s *Service) UpdateBatch(ctx context.Context, id string, mutator func(*Batch) error) (Batch, Result, error) {
	var updated Batch
	res, err := s.run(ctx, "update_batch", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateBatch(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteBatch removes a batch with its samples and feedings.
func (s *Service) DeleteBatch(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_batch", func(tx domain.Transaction) error {
		return tx.DeleteBatch(id)
	})
}

// GetBatch returns the batch with id or a domain.ErrNotFound.
func (s *Service) GetBatch(ctx context.Context, id string) (Batch, error) {
	start := time.Now()
	b, ok := s.store.GetBatch(id)
	var err error
	if !ok {
		err = domain.ErrNotFound{Entity: domain.EntityBatch, ID: id}
	}
	s.observe(ctx, "get_batch", start, err)
	return b, err
}

// ListBatches returns all batches ordered by batch number.
func (s *Service) ListBatches(ctx context.Context) []Batch {
	start := time.Now()
	out := s.store.ListBatches()
	s.observe(ctx, "list_batches", start, nil)
	return out
}

// RecordGrowthSample stores a sample. When it is the batch's newest sample
// with a population, the batch's current count and biomass follow it.
func (s *Service) RecordGrowthSample(ctx context.Context, sample GrowthSample) (GrowthSample, Result, error) {
	var created GrowthSample
	res, err := s.run(ctx, "record_growth_sample", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateGrowthSample(sample)
		if err != nil || created.PopulationCount <= 0 {
			return err
		}
		for _, other := range tx.Snapshot().ListGrowthSamples(created.BatchID) {
			if other.SampleDate.After(created.SampleDate) {
				return nil
			}
		}
		_, err = tx.UpdateBatch(created.BatchID, func(b *Batch) error {
			b.CurrentCount = created.PopulationCount
			if created.BiomassKg > 0 {
				b.BiomassKg = created.BiomassKg
			}
			return nil
		})
		return err
	})
	return created, res, err
}

// RecordFeeding stores a feeding event.
func (s *Service) RecordFeeding(ctx context.Context, feeding FeedingEvent) (FeedingEvent, Result, error) {
	var created FeedingEvent
	res, err := s.run(ctx, "record_feeding", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateFeedingEvent(feeding)
		return err
	})
	return created, res, err
}

// ListGrowthSamples returns a batch's samples in date order.
func (s *Service) ListGrowthSamples(ctx context.Context, batchID string) ([]GrowthSample, error) {
	start := time.Now()
	if _, ok := s.store.GetBatch(batchID); !ok {
		err := domain.ErrNotFound{Entity: domain.EntityBatch, ID: batchID}
		s.observe(ctx, "list_growth_samples", start, err)
		return nil, err
	}
	out := s.store.ListGrowthSamples(batchID)
	s.observe(ctx, "list_growth_samples", start, nil)
	return out, nil
}

// ListFeedings returns a batch's feeding events in time order.
func (s *Service) ListFeedings(ctx context.Context, batchID string) ([]FeedingEvent, error) {
	start := time.Now()
	if _, ok := s.store.GetBatch(batchID); !ok {
		err := domain.ErrNotFound{Entity: domain.EntityBatch, ID: batchID}
		s.observe(ctx, "list_feedings", start, err)
		return nil, err
	}
	out := s.store.ListFeedingEvents(batchID)
	s.observe(ctx, "list_feedings", start, nil)
	return out, nil
}
