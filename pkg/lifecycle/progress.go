package lifecycle

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownStage indicates a stage name that resolves to no stage.
	ErrUnknownStage = errors.New("lifecycle: unknown stage")
	// ErrMissingDays indicates an absent (NaN) days-active value.
	ErrMissingDays = errors.New("lifecycle: days active missing")
)

// StageProgress returns the percentage [0, 100] of the named stage that has
// elapsed after daysActive days since the batch entered the first stage.
// An empty name, a NaN daysActive or an unknown stage yields 0.
func StageProgress(stageName string, daysActive float64) float64 {
	return defaultTable.Progress(stageName, daysActive)
}

// ProgressOf is StageProgress for optional inputs; a nil argument yields 0.
func ProgressOf(stageName *string, daysActive *float64) float64 {
	if stageName == nil || daysActive == nil {
		return 0
	}
	return defaultTable.Progress(*stageName, *daysActive)
}

// Progress computes stage progress against t. See StageProgress.
func (t *Table) Progress(stageName string, daysActive float64) float64 {
	p, err := t.ProgressStrict(stageName, daysActive)
	if err != nil {
		return 0
	}
	return p
}

// ProgressStrict behaves like Progress but reports why a value could not be
// computed instead of returning 0.
func (t *Table) ProgressStrict(stageName string, daysActive float64) (float64, error) {
	if math.IsNaN(daysActive) {
		return 0, ErrMissingDays
	}
	stage, i, ok := t.Lookup(stageName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, stageName)
	}
	into := daysActive - float64(t.starts[i])
	raw := into / float64(stage.DurationDays) * 100
	return clampPercent(raw), nil
}

// StageForDays returns the stage a batch nominally occupies daysActive days
// after entering the first stage. Days past the end of the table stay in the
// final stage. Negative or NaN input reports false.
func (t *Table) StageForDays(daysActive float64) (Stage, int, bool) {
	if math.IsNaN(daysActive) || daysActive < 0 {
		return Stage{}, -1, false
	}
	for i := range t.stages {
		if daysActive < float64(t.starts[i]+t.stages[i].DurationDays) {
			return t.stages[i].clone(), i, true
		}
	}
	last := len(t.stages) - 1
	return t.stages[last].clone(), last, true
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
