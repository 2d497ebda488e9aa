package core

import "aquamind/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Batch              = domain.Batch
	BatchStatus        = domain.BatchStatus
	GrowthSample       = domain.GrowthSample
	FeedingEvent       = domain.FeedingEvent
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityBatch        = domain.EntityBatch
	EntityGrowthSample = domain.EntityGrowthSample
	EntityFeedingEvent = domain.EntityFeedingEvent
)

const (
	BatchStatusActive     = domain.BatchStatusActive
	BatchStatusCompleted  = domain.BatchStatusCompleted
	BatchStatusTerminated = domain.BatchStatusTerminated
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
