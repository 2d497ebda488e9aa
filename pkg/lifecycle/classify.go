package lifecycle

import "strings"

// HealthStatus classifies a batch by survival rate.
type HealthStatus string

// Health bands, best to worst.
const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
	HealthCritical  HealthStatus = "critical"
)

// HealthStatuses lists every status from best to worst.
func HealthStatuses() []HealthStatus {
	return []HealthStatus{HealthExcellent, HealthGood, HealthFair, HealthPoor, HealthCritical}
}

// HealthStatusFor maps a survival-rate percentage to a band. Boundary values
// belong to the better band; anything below 80, NaN included, is critical.
func HealthStatusFor(survivalRate float64) HealthStatus {
	switch {
	case survivalRate >= 95:
		return HealthExcellent
	case survivalRate >= 90:
		return HealthGood
	case survivalRate >= 85:
		return HealthFair
	case survivalRate >= 80:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// ParseHealthStatus accepts any casing of a known status.
func ParseHealthStatus(s string) (HealthStatus, bool) {
	status := HealthStatus(strings.ToLower(strings.TrimSpace(s)))
	return status, status.IsValid()
}

// IsValid reports whether s is one of the five bands.
func (s HealthStatus) IsValid() bool {
	switch s {
	case HealthExcellent, HealthGood, HealthFair, HealthPoor, HealthCritical:
		return true
	}
	return false
}

const healthClassUnknown = "text-gray-600 bg-gray-50 border-gray-200"

// Class returns the badge classes used by the batch dashboards.
func (s HealthStatus) Class() string {
	switch s {
	case HealthExcellent:
		return "text-green-600 bg-green-50 border-green-200"
	case HealthGood:
		return "text-blue-600 bg-blue-50 border-blue-200"
	case HealthFair:
		return "text-yellow-600 bg-yellow-50 border-yellow-200"
	case HealthPoor:
		return "text-orange-600 bg-orange-50 border-orange-200"
	case HealthCritical:
		return "text-red-600 bg-red-50 border-red-200"
	default:
		return healthClassUnknown
	}
}

// HealthStatusClass returns badge classes for a free-form status string,
// falling back to gray for anything unrecognised.
func HealthStatusClass(status string) string {
	s, ok := ParseHealthStatus(status)
	if !ok {
		return healthClassUnknown
	}
	return s.Class()
}

// ProgressColor is the severity colour of a progress bar.
type ProgressColor string

// Progress colours from least to most advanced.
const (
	ProgressGreen  ProgressColor = "green"
	ProgressYellow ProgressColor = "yellow"
	ProgressOrange ProgressColor = "orange"
	ProgressRed    ProgressColor = "red"
)

// ProgressColorFor maps a progress percentage to a colour. Values at a
// boundary take the next colour up (60 is yellow). NaN fails every band and
// lands in red.
func ProgressColorFor(progress float64) ProgressColor {
	switch {
	case progress < 60:
		return ProgressGreen
	case progress < 75:
		return ProgressYellow
	case progress < 90:
		return ProgressOrange
	default:
		return ProgressRed
	}
}

// Class returns the progress bar background class.
func (c ProgressColor) Class() string {
	switch c {
	case ProgressGreen:
		return "bg-green-500"
	case ProgressYellow:
		return "bg-yellow-500"
	case ProgressOrange:
		return "bg-orange-500"
	default:
		return "bg-red-700"
	}
}
