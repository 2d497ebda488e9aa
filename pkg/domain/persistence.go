package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateBatch(Batch) (Batch, error)
	UpdateBatch(id string, mutator func(*Batch) error) (Batch, error)
	DeleteBatch(id string) error
	CreateGrowthSample(GrowthSample) (GrowthSample, error)
	CreateFeedingEvent(FeedingEvent) (FeedingEvent, error)
	FindBatch(id string) (Batch, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetBatch(id string) (Batch, bool)
	ListBatches() []Batch
	ListGrowthSamples(batchID string) []GrowthSample
	ListFeedingEvents(batchID string) []FeedingEvent
}
