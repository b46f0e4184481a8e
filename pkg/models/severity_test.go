package models

import "testing"

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Severity
	}{
		{name: "lowercase", input: "critical", want: SeverityCritical},
		{name: "uppercase from LLM", input: "HIGH", want: SeverityHigh},
		{name: "mixed case", input: "Medium", want: SeverityMedium},
		{name: "padded", input: "  low ", want: SeverityLow},
		{name: "info", input: "info", want: SeverityInfo},
		{name: "unknown maps to medium", input: "urgent", want: SeverityMedium},
		{name: "empty maps to medium", input: "", want: SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSeverity(tt.input); got != tt.want {
				t.Errorf("ParseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() <= order[i].Rank() {
			t.Errorf("expected %v to rank above %v", order[i-1], order[i])
		}
	}
}

func TestQualityTierValid(t *testing.T) {
	for _, tier := range []QualityTier{TierExcellent, TierGood, TierBasic, TierDegraded} {
		if !tier.Valid() {
			t.Errorf("tier %v should be valid", tier)
		}
	}
	if QualityTier("perfect").Valid() {
		t.Error("unknown tier should be invalid")
	}
}
