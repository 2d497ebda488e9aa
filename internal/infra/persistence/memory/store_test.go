package memory

import (
	"aquamind/pkg/domain"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindBatch("missing"); ok {
			t.Fatalf("expected missing batch lookup")
		}
		created, err := tx.CreateBatch(domain.Batch{BatchNumber: "B-001", LifecycleStage: "Fry", InitialCount: 1000, CurrentCount: 990})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.Status != domain.BatchStatusActive {
			t.Fatalf("expected default active status, got %q", created.Status)
		}
		view := tx.Snapshot()
		if len(view.ListBatches()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListBatches()) != 1 {
		t.Fatalf("expected persisted batch")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListBatches()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListBatches()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateBatch(domain.Batch{BatchNumber: "Fail"})
		return e
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListBatches()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func TestUpdateBatchErrors(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateBatch("missing", func(*domain.Batch) error { return nil })
		var nf domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("expected not found, got %v", err)
		}
		b, err := tx.CreateBatch(domain.Batch{BatchNumber: "B-1"})
		if err != nil {
			return err
		}
		if _, err = tx.UpdateBatch(b.ID, func(*domain.Batch) error { return fmt.Errorf("boom") }); err == nil {
			t.Fatalf("expected mutator error")
		}
		if _, err := tx.CreateBatch(domain.Batch{Base: domain.Base{ID: b.ID}}); err == nil {
			t.Fatalf("expected duplicate id error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestUpdateBatchKeepsIdentityAndStamps(t *testing.T) {
	store := NewStore(nil)
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return t0 })
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		b, err := tx.CreateBatch(domain.Batch{BatchNumber: "B-7", LifecycleStage: "Parr"})
		id = b.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	t1 := t0.Add(time.Hour)
	store.SetNowFunc(func() time.Time { return t1 })
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateBatch(id, func(b *domain.Batch) error {
			b.ID = "hijack"
			b.LifecycleStage = "Smolt"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := store.GetBatch(id)
	if !ok {
		t.Fatalf("batch missing after update")
	}
	if got.LifecycleStage != "Smolt" || !got.CreatedAt.Equal(t0) || !got.UpdatedAt.Equal(t1) {
		t.Fatalf("unexpected batch after update: %+v", got)
	}
}

func TestDeleteBatchCascades(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		b, err := tx.CreateBatch(domain.Batch{BatchNumber: "B-2"})
		if err != nil {
			return err
		}
		id = b.ID
		if _, err := tx.CreateGrowthSample(domain.GrowthSample{BatchID: id, SampleDate: day.AddDate(0, 0, 7)}); err != nil {
			return err
		}
		if _, err := tx.CreateGrowthSample(domain.GrowthSample{BatchID: id, SampleDate: day}); err != nil {
			return err
		}
		_, err = tx.CreateFeedingEvent(domain.FeedingEvent{BatchID: id, FedAt: day, FeedKg: 12})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	samples := store.ListGrowthSamples(id)
	if len(samples) != 2 || !samples[0].SampleDate.Equal(day) {
		t.Fatalf("expected date-ordered samples, got %+v", samples)
	}
	if len(store.ListFeedingEvents(id)) != 1 {
		t.Fatalf("expected one feeding")
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteBatch(id)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.ListGrowthSamples(id)) != 0 || len(store.ListFeedingEvents(id)) != 0 {
		t.Fatalf("expected cascaded delete")
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error { return tx.DeleteBatch(id) })
	var nf domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestChildRecordsRequireBatch(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateGrowthSample(domain.GrowthSample{BatchID: "nope"}); err == nil {
			t.Fatalf("expected sample error")
		}
		if _, err := tx.CreateFeedingEvent(domain.FeedingEvent{BatchID: "nope"}); err == nil {
			t.Fatalf("expected feeding error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestViewIsolation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateBatch(domain.Batch{BatchNumber: "B-3"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListBatches()) != 1 {
			return fmt.Errorf("expected one batch in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	var snap Snapshot
	if _, ok := snap.Bucket("batches"); !ok {
		t.Fatalf("expected batches bucket")
	}
	if _, ok := snap.Bucket("unknown"); ok {
		t.Fatalf("unexpected bucket")
	}
}
