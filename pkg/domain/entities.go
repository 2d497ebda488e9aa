// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by aquamind.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityBatch identifies a fish batch record.
	EntityBatch EntityType = "batch"
	// EntityGrowthSample identifies a growth sample taken from a batch.
	EntityGrowthSample EntityType = "growth_sample"
	// EntityFeedingEvent identifies a feeding event recorded against a batch.
	EntityFeedingEvent EntityType = "feeding_event"
)

// BatchStatus enumerates batch production states.
type BatchStatus string

// Canonical batch statuses. Completed and terminated are terminal.
const (
	BatchStatusActive     BatchStatus = "active"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusTerminated BatchStatus = "terminated"
)

// IsTerminal reports whether a batch in this status can no longer change stage.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusTerminated
}

// IsValid reports whether s is a known status.
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusCompleted, BatchStatusTerminated:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Batch is a cohort of fish raised together from egg to harvest.
type Batch struct {
	Base           `yaml:",inline"`
	BatchNumber    string      `json:"batch_number" yaml:"batch_number"`
	Species        string      `json:"species" yaml:"species"`
	LifecycleStage string      `json:"lifecycle_stage" yaml:"lifecycle_stage"`
	Status         BatchStatus `json:"status" yaml:"status"`
	StartDate      time.Time   `json:"start_date" yaml:"start_date"`
	InitialCount   int         `json:"initial_count" yaml:"initial_count"`
	CurrentCount   int         `json:"current_count" yaml:"current_count"`
	BiomassKg      float64     `json:"biomass_kg" yaml:"biomass_kg"`
	ContainerID    *string     `json:"container_id,omitempty" yaml:"container_id,omitempty"`
	Notes          string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// GrowthSample records weight and population measured at a point in time.
type GrowthSample struct {
	Base            `yaml:",inline"`
	BatchID         string    `json:"batch_id" yaml:"batch_id"`
	SampleDate      time.Time `json:"sample_date" yaml:"sample_date"`
	AverageWeightG  float64   `json:"average_weight_g" yaml:"average_weight_g"`
	BiomassKg       float64   `json:"biomass_kg" yaml:"biomass_kg"`
	PopulationCount int       `json:"population_count" yaml:"population_count"`
	GrowthRate      float64   `json:"growth_rate" yaml:"growth_rate"`
	ConditionFactor float64   `json:"condition_factor" yaml:"condition_factor"`
}

// FeedingEvent records feed delivered to a batch.
type FeedingEvent struct {
	Base     `yaml:",inline"`
	BatchID  string    `json:"batch_id" yaml:"batch_id"`
	FedAt    time.Time `json:"fed_at" yaml:"fed_at"`
	FeedKg   float64   `json:"feed_kg" yaml:"feed_kg"`
	FeedCost float64   `json:"feed_cost,omitempty" yaml:"feed_cost,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ErrNotFound reports a missing record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
