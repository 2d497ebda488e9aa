// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments and as the transactional
// engine beneath the snapshotting SQL stores.
package memory

import (
	"aquamind/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Batch aliases domain.Batch for in-memory persistence operations.
	Batch = domain.Batch
	// GrowthSample aliases domain.GrowthSample.
	GrowthSample = domain.GrowthSample
	// FeedingEvent aliases domain.FeedingEvent.
	FeedingEvent = domain.FeedingEvent
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	batches  map[string]Batch
	samples  map[string]GrowthSample
	feedings map[string]FeedingEvent
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Batches  map[string]Batch        `json:"batches"`
	Samples  map[string]GrowthSample `json:"growth_samples"`
	Feedings map[string]FeedingEvent `json:"feeding_events"`
}

// Buckets names the snapshot sections in the order SQL stores persist them.
var Buckets = []string{"batches", "growth_samples", "feeding_events"}

// Bucket returns a pointer to the snapshot section with the given bucket
// name, for decoding into or encoding from.
func (s *Snapshot) Bucket(name string) (any, bool) {
	switch name {
	case "batches":
		return &s.Batches, true
	case "growth_samples":
		return &s.Samples, true
	case "feeding_events":
		return &s.Feedings, true
	}
	return nil, false
}

func newMemoryState() memoryState {
	return memoryState{
		batches:  make(map[string]Batch),
		samples:  make(map[string]GrowthSample),
		feedings: make(map[string]FeedingEvent),
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		batches:  make(map[string]Batch, len(s.batches)),
		samples:  make(map[string]GrowthSample, len(s.samples)),
		feedings: make(map[string]FeedingEvent, len(s.feedings)),
	}
	for k, v := range s.batches {
		out.batches[k] = cloneBatch(v)
	}
	for k, v := range s.samples {
		out.samples[k] = v
	}
	for k, v := range s.feedings {
		out.feedings[k] = v
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{Batches: c.batches, Samples: c.samples, Feedings: c.feedings}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Batches {
		state.batches[k] = cloneBatch(v)
	}
	for k, v := range s.Samples {
		state.samples[k] = v
	}
	for k, v := range s.Feedings {
		state.feedings[k] = v
	}
	return state
}

func cloneBatch(b Batch) Batch {
	if b.ContainerID != nil {
		id := *b.ContainerID
		b.ContainerID = &id
	}
	return b
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp CreatedAt/UpdatedAt.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules run against the resulting state before it replaces the live state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := transactionView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &snapshot})
}

// GetBatch returns a batch by ID.
func (s *Store) GetBatch(id string) (Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.FindBatch(id)
}

// ListBatches returns all batches ordered by batch number.
func (s *Store) ListBatches() []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListBatches()
}

// ListGrowthSamples returns a batch's samples ordered by sample date.
func (s *Store) ListGrowthSamples(batchID string) []GrowthSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListGrowthSamples(batchID)
}

// ListFeedingEvents returns a batch's feedings ordered by time.
func (s *Store) ListFeedingEvents(batchID string) []FeedingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListFeedingEvents(batchID)
}

type transactionView struct {
	state *memoryState
}

func (v transactionView) ListBatches() []Batch {
	out := make([]Batch, 0, len(v.state.batches))
	for _, b := range v.state.batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BatchNumber != out[j].BatchNumber {
			return out[i].BatchNumber < out[j].BatchNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) FindBatch(id string) (Batch, bool) {
	b, ok := v.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

func (v transactionView) ListGrowthSamples(batchID string) []GrowthSample {
	var out []GrowthSample
	for _, s := range v.state.samples {
		if s.BatchID == batchID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SampleDate.Equal(out[j].SampleDate) {
			return out[i].SampleDate.Before(out[j].SampleDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) ListFeedingEvents(batchID string) []FeedingEvent {
	var out []FeedingEvent
	for _, f := range v.state.feedings {
		if f.BatchID == batchID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FedAt.Equal(out[j].FedAt) {
			return out[i].FedAt.Before(out[j].FedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return transactionView{state: &tx.state}
}

// FindBatch exposes batch lookup within the transaction scope.
func (tx *transaction) FindBatch(id string) (Batch, bool) {
	return transactionView{state: &tx.state}.FindBatch(id)
}

// CreateBatch stores a new batch within the transaction.
func (tx *transaction) CreateBatch(b Batch) (Batch, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, exists := tx.state.batches[b.ID]; exists {
		return Batch{}, fmt.Errorf("batch %q already exists", b.ID)
	}
	if b.Status == "" {
		b.Status = domain.BatchStatusActive
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.batches[b.ID] = cloneBatch(b)
	tx.recordChange(Change{Entity: domain.EntityBatch, Action: domain.ActionCreate, After: cloneBatch(b)})
	return cloneBatch(b), nil
}

// UpdateBatch mutates a batch using the provided mutator function.
func (tx *transaction) UpdateBatch(id string, mutator func(*Batch) error) (Batch, error) {
	current, ok := tx.state.batches[id]
	if !ok {
		return Batch{}, domain.ErrNotFound{Entity: domain.EntityBatch, ID: id}
	}
	before := cloneBatch(current)
	if err := mutator(&current); err != nil {
		return Batch{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.batches[id] = cloneBatch(current)
	tx.recordChange(Change{Entity: domain.EntityBatch, Action: domain.ActionUpdate, Before: before, After: cloneBatch(current)})
	return cloneBatch(current), nil
}

// DeleteBatch removes a batch together with its samples and feedings.
func (tx *transaction) DeleteBatch(id string) error {
	current, ok := tx.state.batches[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityBatch, ID: id}
	}
	for sid, s := range tx.state.samples {
		if s.BatchID == id {
			delete(tx.state.samples, sid)
			tx.recordChange(Change{Entity: domain.EntityGrowthSample, Action: domain.ActionDelete, Before: s})
		}
	}
	for fid, f := range tx.state.feedings {
		if f.BatchID == id {
			delete(tx.state.feedings, fid)
			tx.recordChange(Change{Entity: domain.EntityFeedingEvent, Action: domain.ActionDelete, Before: f})
		}
	}
	delete(tx.state.batches, id)
	tx.recordChange(Change{Entity: domain.EntityBatch, Action: domain.ActionDelete, Before: cloneBatch(current)})
	return nil
}

// CreateGrowthSample stores a sample for an existing batch.
func (tx *transaction) CreateGrowthSample(s GrowthSample) (GrowthSample, error) {
	if _, ok := tx.state.batches[s.BatchID]; !ok {
		return GrowthSample{}, domain.ErrNotFound{Entity: domain.EntityBatch, ID: s.BatchID}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, exists := tx.state.samples[s.ID]; exists {
		return GrowthSample{}, fmt.Errorf("growth sample %q already exists", s.ID)
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.samples[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntityGrowthSample, Action: domain.ActionCreate, After: s})
	return s, nil
}

// CreateFeedingEvent stores a feeding for an existing batch.
func (tx *transaction) CreateFeedingEvent(f FeedingEvent) (FeedingEvent, error) {
	if _, ok := tx.state.batches[f.BatchID]; !ok {
		return FeedingEvent{}, domain.ErrNotFound{Entity: domain.EntityBatch, ID: f.BatchID}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if _, exists := tx.state.feedings[f.ID]; exists {
		return FeedingEvent{}, fmt.Errorf("feeding event %q already exists", f.ID)
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.feedings[f.ID] = f
	tx.recordChange(Change{Entity: domain.EntityFeedingEvent, Action: domain.ActionCreate, After: f})
	return f, nil
}
