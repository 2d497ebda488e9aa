// Package analytics computes batch performance figures from growth samples
// and feed totals. Like the lifecycle calculator, every function degrades to
// a documented default on bad input.
package analytics

import (
	"math"
	"sort"
	"time"
)

// Sample is one growth observation of a batch.
type Sample struct {
	Date            time.Time
	PopulationCount int
	BiomassKg       float64
	GrowthRate      float64
	ConditionFactor float64
}

// Metrics is the summary shown on a batch analytics view.
type Metrics struct {
	SurvivalRate        float64 `json:"survival_rate"`
	GrowthRate          float64 `json:"growth_rate"`
	FeedConversionRatio float64 `json:"feed_conversion_ratio"`
	HealthScore         float64 `json:"health_score"`
	Productivity        float64 `json:"productivity"`
	Efficiency          float64 `json:"efficiency"`
}

// SurvivalRate returns latest/initial as a percentage, or 0 when either
// count is not positive.
func SurvivalRate(latest, initial int) float64 {
	if latest <= 0 || initial <= 0 {
		return 0
	}
	return float64(latest) / float64(initial) * 100
}

// AverageGrowthRate is the arithmetic mean, 0 for no input.
func AverageGrowthRate(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rates {
		sum += r
	}
	return sum / float64(len(rates))
}

// FCR is feed consumed per unit of biomass gained. It is 0 when there was no
// feed or no gain.
func FCR(totalFeedKg, startBiomassKg, endBiomassKg float64) float64 {
	gain := endBiomassKg - startBiomassKg
	if totalFeedKg <= 0 || !(gain > 0) {
		return 0
	}
	return totalFeedKg / gain
}

// AverageCondition averages condition (K) factors. Missing (zero) entries
// count as 1.0 and an empty input returns 1.0.
func AverageCondition(factors []float64) float64 {
	if len(factors) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, k := range factors {
		if k == 0 {
			k = 1.0
		}
		sum += k
	}
	return sum / float64(len(factors))
}

// HealthScore weights survival 60% and condition 40%, where a condition of
// 1.0 is worth 20 points. The result is rounded and capped at 100.
func HealthScore(survivalRate, condition float64) float64 {
	score := survivalRate*0.6 + condition*20*0.4
	return math.Min(math.Round(score), 100)
}

// Productivity is biomass gained per day, scaled by 100. Spans shorter than
// a day count as one day.
func Productivity(startBiomassKg, endBiomassKg float64, start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	days := int(end.Sub(start) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return (endBiomassKg - startBiomassKg) / float64(days) * 100
}

// Efficiency is growth per unit FCR, scaled by 10. Without a usable FCR the
// growth rate is returned unchanged.
func Efficiency(growthRate, fcr float64) float64 {
	if fcr <= 0 {
		return growthRate
	}
	return growthRate / fcr * 10
}

// Performance derives Metrics from samples (any order) and the feed used
// over the sampled period. It reports false when there are no samples.
func Performance(samples []Sample, totalFeedKg float64) (Metrics, bool) {
	if len(samples) == 0 {
		return Metrics{}, false
	}
	ordered := append([]Sample(nil), samples...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })
	earliest, latest := ordered[0], ordered[len(ordered)-1]

	rates := make([]float64, len(ordered))
	factors := make([]float64, len(ordered))
	for i, s := range ordered {
		rates[i] = s.GrowthRate
		factors[i] = s.ConditionFactor
	}

	survival := SurvivalRate(latest.PopulationCount, earliest.PopulationCount)
	growth := AverageGrowthRate(rates)
	fcr := FCR(totalFeedKg, earliest.BiomassKg, latest.BiomassKg)
	return Metrics{
		SurvivalRate:        survival,
		GrowthRate:          growth,
		FeedConversionRatio: fcr,
		HealthScore:         HealthScore(survival, AverageCondition(factors)),
		Productivity:        Productivity(earliest.BiomassKg, latest.BiomassKg, earliest.Date, latest.Date),
		Efficiency:          Efficiency(growth, fcr),
	}, true
}
