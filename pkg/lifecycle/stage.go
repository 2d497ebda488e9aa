// Package lifecycle models the growth stages a farmed salmon batch moves
// through and derives display-oriented progress and health classifications
// from them.
//
// Every function in this package is pure and fail-soft: invalid or missing
// input degrades to the safest value (0 progress, lowest band) instead of an
// error. Callers that need to reject bad input use Table.ProgressStrict.
package lifecycle

import (
	"fmt"
	"strings"
)

// Stage describes one named phase of the growth cycle.
type Stage struct {
	// Key is the canonical, normalized identifier (e.g. "post_smolt").
	Key string `json:"key" yaml:"key"`
	// Name is the display name (e.g. "Post-Smolt").
	Name string `json:"name" yaml:"name"`
	// DurationDays is the nominal time spent in the stage before transition.
	DurationDays int `json:"duration_days" yaml:"duration_days"`
	// DisplayColor is a presentation token; the calculator never reads it.
	DisplayColor string `json:"display_color" yaml:"display_color"`
	// Aliases are additional spellings accepted for exact lookup.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	// Tokens resolve to this stage wherever they appear in a name, e.g.
	// "alevin" in "Egg&Alevin" or "yolk-sac alevins". They are only tried
	// after exact alias lookup fails.
	Tokens []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

func (s Stage) clone() Stage {
	s.Aliases = append([]string(nil), s.Aliases...)
	s.Tokens = append([]string(nil), s.Tokens...)
	return s
}

func defaultStages() []Stage {
	return []Stage{
		{Key: "egg", Name: "Egg", DurationDays: 100, DisplayColor: "bg-yellow-400", Aliases: []string{"eggs"}, Tokens: []string{"alevin"}},
		{Key: "fry", Name: "Fry", DurationDays: 100, DisplayColor: "bg-orange-400"},
		{Key: "parr", Name: "Parr", DurationDays: 100, DisplayColor: "bg-green-400"},
		{Key: "smolt", Name: "Smolt", DurationDays: 100, DisplayColor: "bg-blue-400"},
		{Key: "post_smolt", Name: "Post-Smolt", DurationDays: 100, DisplayColor: "bg-purple-400", Aliases: []string{"postsmolt"}},
		{Key: "adult", Name: "Adult", DurationDays: 450, DisplayColor: "bg-red-400"},
	}
}

// Stages returns the canonical ordered stage table. Each call returns a new
// slice, so callers may modify the result freely.
func Stages() []Stage {
	return defaultTable.Stages()
}

// Table is an immutable, validated ordered list of stages with a prebuilt
// alias index. It is safe for concurrent use.
type Table struct {
	stages  []Stage
	starts  []int
	aliases map[string]int
	tokens  []tokenRule
}

type tokenRule struct {
	token string
	stage int
}

var defaultTable = mustTable(defaultStages())

// DefaultTable returns the standard Egg→Adult salmon table.
func DefaultTable() *Table { return defaultTable }

func mustTable(stages []Stage) *Table {
	t, err := NewTable(stages)
	if err != nil {
		panic(fmt.Errorf("lifecycle: default table: %w", err))
	}
	return t
}

// NewTable validates stages and builds a lookup table. Stage order is kept
// as given. Every stage needs a name and a positive duration, and no two
// stages may share a normalized name, key, alias or token.
func NewTable(stages []Stage) (*Table, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("stage table is empty")
	}
	t := &Table{
		stages:  make([]Stage, len(stages)),
		starts:  make([]int, len(stages)),
		aliases: make(map[string]int),
	}
	cumulative := 0
	for i, stage := range stages {
		stage = stage.clone()
		if strings.TrimSpace(stage.Name) == "" {
			return nil, fmt.Errorf("stage %d: name required", i)
		}
		if stage.DurationDays <= 0 {
			return nil, fmt.Errorf("stage %q: duration must be positive, got %d", stage.Name, stage.DurationDays)
		}
		if stage.Key == "" {
			stage.Key = strings.ReplaceAll(normalize(stage.Name), " ", "_")
		}
		names := append([]string{stage.Name, stage.Key}, stage.Aliases...)
		for _, name := range names {
			n := normalize(name)
			if n == "" {
				continue
			}
			if owner, taken := t.aliases[n]; taken && owner != i {
				return nil, fmt.Errorf("stage %q: alias %q already used by %q", stage.Name, name, stages[owner].Name)
			}
			t.aliases[n] = i
		}
		for _, token := range stage.Tokens {
			n := normalize(token)
			if n == "" || strings.Contains(n, " ") {
				return nil, fmt.Errorf("stage %q: token %q must be a single word", stage.Name, token)
			}
			for _, rule := range t.tokens {
				if rule.token == n {
					return nil, fmt.Errorf("stage %q: token %q already used by %q", stage.Name, token, stages[rule.stage].Name)
				}
			}
			t.tokens = append(t.tokens, tokenRule{token: n, stage: i})
		}
		t.stages[i] = stage
		t.starts[i] = cumulative
		cumulative += stage.DurationDays
	}
	return t, nil
}

// Stages returns a copy of the ordered stages.
func (t *Table) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	for i, s := range t.stages {
		out[i] = s.clone()
	}
	return out
}

// Len reports the number of stages.
func (t *Table) Len() int { return len(t.stages) }

// TotalDays is the sum of all stage durations.
func (t *Table) TotalDays() int {
	last := len(t.stages) - 1
	return t.starts[last] + t.stages[last].DurationDays
}

// StartDay returns the cumulative days before the stage at position i.
func (t *Table) StartDay(i int) int {
	if i < 0 || i >= len(t.starts) {
		return 0
	}
	return t.starts[i]
}

// Lookup resolves a stage name to its stage and position. Names, keys and
// aliases match exactly after normalization, so "Smolt" never resolves to
// "Post-Smolt". Failing that, the first stage with a token contained in the
// name wins.
func (t *Table) Lookup(name string) (Stage, int, bool) {
	n := normalize(name)
	if n == "" {
		return Stage{}, -1, false
	}
	if i, ok := t.aliases[n]; ok {
		return t.stages[i].clone(), i, true
	}
	for _, rule := range t.tokens {
		if strings.Contains(n, rule.token) {
			return t.stages[rule.stage].clone(), rule.stage, true
		}
	}
	return Stage{}, -1, false
}

// Locate resolves name against the default table.
func Locate(name string) (Stage, int, bool) {
	return defaultTable.Lookup(name)
}

// normalize lowercases, maps '-' and '_' to spaces and collapses whitespace.
func normalize(name string) string {
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}
