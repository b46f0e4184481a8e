package models

import "strings"

// Severity classifies how urgent a performance insight is.
type Severity string

const (
	// SeverityCritical indicates an active bottleneck requiring immediate action.
	SeverityCritical Severity = "critical"
	// SeverityHigh indicates a resource approaching capacity limits.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates a trend worth monitoring.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a minor observation.
	SeverityLow Severity = "low"
	// SeverityInfo indicates a purely informational finding.
	SeverityInfo Severity = "info"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	default:
		return false
	}
}

// Rank returns an ordering value for sorting, highest severity first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// ParseSeverity normalizes a severity string from an LLM response.
// Unknown values map to SeverityMedium rather than failing the whole insight.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Valid() {
		return sev
	}
	return SeverityMedium
}
