package core

import (
	"aquamind/pkg/analytics"
	"aquamind/pkg/domain"
	"aquamind/pkg/lifecycle"
	"context"
	"fmt"
	"strings"
)

const (
	ruleStageKnown      = "stage_known"
	ruleStageTransition = "stage_transition"
	rulePopulation      = "population_bounds"
	ruleBatchIdentity   = "batch_identity"
)

// DefaultRulesEngine returns an engine with the stage and population rules
// registered against table, plus batch number uniqueness. A nil table means the default salmon cycle.
func DefaultRulesEngine(table *lifecycle.Table) *RulesEngine {
	if table == nil {
		table = lifecycle.DefaultTable()
	}
	engine := domain.NewRulesEngine()
	engine.Register(StageKnownRule(table))
	engine.Register(StageTransitionRule(table))
	engine.Register(PopulationRule())
	engine.Register(BatchIdentityRule())
	return engine
}

// batchChanges yields the before/after batch pair of every batch change.
func batchChanges(changes []domain.Change, fn func(change domain.Change, before, after *domain.Batch)) {
	for _, change := range changes {
		if change.Entity != domain.EntityBatch {
			continue
		}
		var before, after *domain.Batch
		if b, ok := change.Before.(domain.Batch); ok {
			before = &b
		}
		if a, ok := change.After.(domain.Batch); ok {
			after = &a
		}
		fn(change, before, after)
	}
}

// StageKnownRule blocks batches whose lifecycle stage does not resolve in
// table.
func StageKnownRule(table *lifecycle.Table) domain.Rule {
	return stageKnownRule{table: table}
}

type stageKnownRule struct {
	table *lifecycle.Table
}

func (stageKnownRule) Name() string { return ruleStageKnown }

func (r stageKnownRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	batchChanges(changes, func(_ domain.Change, _, after *domain.Batch) {
		if after == nil {
			return
		}
		if _, err := r.table.ProgressStrict(after.LifecycleStage, 0); err != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     ruleStageKnown,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s: %v", after.BatchNumber, err),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		}
	})
	return res, nil
}

// StageTransitionRule blocks stage regressions and any change to a batch in a
// terminal status.
func StageTransitionRule(table *lifecycle.Table) domain.Rule {
	return stageTransitionRule{table: table}
}

type stageTransitionRule struct {
	table *lifecycle.Table
}

func (stageTransitionRule) Name() string { return ruleStageTransition }

func (r stageTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(b *domain.Batch, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     ruleStageTransition,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   domain.EntityBatch,
			EntityID: b.ID,
		})
	}
	batchChanges(changes, func(_ domain.Change, before, after *domain.Batch) {
		if after == nil {
			return
		}
		if !after.Status.IsValid() {
			block(after, "batch %s has invalid status %q", after.BatchNumber, after.Status)
			return
		}
		if before == nil {
			return
		}
		if before.Status.IsTerminal() {
			if after.Status != before.Status || after.LifecycleStage != before.LifecycleStage {
				block(after, "batch %s is %s and cannot change", after.BatchNumber, before.Status)
			}
			return
		}
		_, from, okFrom := r.table.Lookup(before.LifecycleStage)
		_, to, okTo := r.table.Lookup(after.LifecycleStage)
		if okFrom && okTo && to < from {
			block(after, "batch %s cannot move back from %s to %s", after.BatchNumber, before.LifecycleStage, after.LifecycleStage)
		}
	})
	return res, nil
}

// PopulationRule blocks counts outside [0, initial] and warns when survival
// falls into the critical health band.
func PopulationRule() domain.Rule {
	return populationRule{}
}

type populationRule struct{}

func (populationRule) Name() string { return rulePopulation }

func (populationRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	batchChanges(changes, func(_ domain.Change, _, after *domain.Batch) {
		if after == nil {
			return
		}
		switch {
		case after.InitialCount < 0 || after.CurrentCount < 0:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     rulePopulation,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s has a negative count", after.BatchNumber),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		case after.CurrentCount > after.InitialCount:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     rulePopulation,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch %s current count %d exceeds initial count %d", after.BatchNumber, after.CurrentCount, after.InitialCount),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		case after.InitialCount > 0:
			survival := analytics.SurvivalRate(after.CurrentCount, after.InitialCount)
			if lifecycle.HealthStatusFor(survival) == lifecycle.HealthCritical {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     rulePopulation,
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("batch %s survival %.1f%% is critical", after.BatchNumber, survival),
					Entity:   domain.EntityBatch,
					EntityID: after.ID,
				})
			}
		}
	})
	for _, change := range changes {
		sample, ok := change.After.(domain.GrowthSample)
		if !ok {
			continue
		}
		batch, found := view.FindBatch(sample.BatchID)
		if sample.PopulationCount < 0 || (found && sample.PopulationCount > batch.InitialCount) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     rulePopulation,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("growth sample population %d is outside the batch range", sample.PopulationCount),
				Entity:   domain.EntityGrowthSample,
				EntityID: sample.ID,
			})
		}
	}
	return res, nil
}

// BatchIdentityRule blocks batches without a batch number and batch numbers
// shared by more than one batch.
func BatchIdentityRule() domain.Rule {
	return batchIdentityRule{}
}

type batchIdentityRule struct{}

func (batchIdentityRule) Name() string { return ruleBatchIdentity }

func (batchIdentityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var owners map[string][]string
	batchChanges(changes, func(_ domain.Change, _, after *domain.Batch) {
		if after == nil {
			return
		}
		number := strings.TrimSpace(after.BatchNumber)
		if number == "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     ruleBatchIdentity,
				Severity: domain.SeverityBlock,
				Message:  "batch number is required",
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
			return
		}
		if owners == nil {
			owners = make(map[string][]string)
			for _, b := range view.ListBatches() {
				key := strings.TrimSpace(b.BatchNumber)
				owners[key] = append(owners[key], b.ID)
			}
		}
		if len(owners[number]) > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     ruleBatchIdentity,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("batch number %s is already in use", number),
				Entity:   domain.EntityBatch,
				EntityID: after.ID,
			})
		}
	})
	return res, nil
}
