// Package report renders consolidated analysis results for humans and
// machines. JSON output uses fixed field names so downstream dashboards can
// consume it without coordination.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/perfsight/perfsight/pkg/models"
)

// WriteJSON renders the result as indented JSON.
func WriteJSON(w io.Writer, result *models.ConsolidatedResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// WriteText renders a colored human-readable report.
func WriteText(w io.Writer, ac models.AnalysisContext, result *models.ConsolidatedResult) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Performance Analysis: %s\n", ac.Hostname)
	fmt.Fprintf(w, "Sampled %s\n\n", ac.Timestamp.Format(time.RFC3339))

	fmt.Fprintf(w, "Quality:      %s\n", tierString(result.QualityTier))
	fmt.Fprintf(w, "Consensus:    %.1f/100\n", result.ConsensusScore)
	fmt.Fprintf(w, "Participants: %d agents\n", result.ParticipatingAgents)
	fmt.Fprintf(w, "Duration:     %s\n\n", result.ExecutionTime.Round(time.Millisecond))

	if len(result.Insights) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	bold.Fprintf(w, "Findings (%d)\n", len(result.Insights))
	for i, in := range result.Insights {
		fmt.Fprintf(w, "\n%d. %s %s\n", i+1, severityBadge(in.Severity), in.Title)
		fmt.Fprintf(w, "   Component:   %s (confidence %.0f%%)\n", in.Component, in.Confidence)
		fmt.Fprintf(w, "   Observation: %s\n", in.Observation)
		if in.RootCause != "" {
			fmt.Fprintf(w, "   Root cause:  %s\n", in.RootCause)
		}
		if in.ImmediateAction != "" {
			fmt.Fprintf(w, "   Action:      %s\n", in.ImmediateAction)
		}
		for _, rec := range in.Recommendations {
			fmt.Fprintf(w, "   - %s\n", rec)
		}
		if len(in.ContributingAgents) > 0 {
			fmt.Fprintf(w, "   Agents:      %s\n", strings.Join(in.ContributingAgents, ", "))
		}
	}
}

// severityBadge returns the colored bracket tag for a severity.
func severityBadge(s models.Severity) string {
	tag := fmt.Sprintf("[%s]", strings.ToUpper(string(s)))
	switch s {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(tag)
	case models.SeverityHigh:
		return color.RedString(tag)
	case models.SeverityMedium:
		return color.YellowString(tag)
	case models.SeverityLow:
		return color.CyanString(tag)
	default:
		return tag
	}
}

// tierString colors the quality tier by how corroborated the result is.
func tierString(t models.QualityTier) string {
	switch t {
	case models.TierExcellent:
		return color.GreenString(string(t))
	case models.TierGood:
		return color.GreenString(string(t))
	case models.TierBasic:
		return color.YellowString(string(t))
	default:
		return color.RedString(string(t))
	}
}
