package models

import (
	"time"
)

// QualityTier is a coarse confidence classification driven by how many
// specialist agents actually participated in a run.
type QualityTier string

const (
	// TierExcellent means every configured agent responded.
	TierExcellent QualityTier = "excellent"
	// TierGood means at least a majority of agents responded.
	TierGood QualityTier = "good"
	// TierBasic means at least quorum responded and synthesis ran.
	TierBasic QualityTier = "basic"
	// TierDegraded means below quorum, or the rule-based fallback produced
	// the result.
	TierDegraded QualityTier = "degraded"
)

// Valid returns true if the tier is a known value.
func (q QualityTier) Valid() bool {
	switch q {
	case TierExcellent, TierGood, TierBasic, TierDegraded:
		return true
	default:
		return false
	}
}

// Insight is one finding produced by consolidation. Immutable once emitted.
type Insight struct {
	// Title is a short headline for the finding.
	Title string `json:"title"`
	// Component names the affected resource (cpu, memory, disk, network, system).
	Component string `json:"component"`
	// Severity classifies urgency.
	Severity Severity `json:"severity"`
	// Observation describes what the metrics show.
	Observation string `json:"observation"`
	// RootCause is the suspected underlying cause.
	RootCause string `json:"root_cause"`
	// ImmediateAction is the first remediation step to take.
	ImmediateAction string `json:"immediate_action"`
	// Recommendations lists follow-up actions beyond the immediate one.
	Recommendations []string `json:"recommendations,omitempty"`
	// Metrics lists the metric names that support the finding.
	Metrics []string `json:"metrics,omitempty"`
	// Confidence is 0-100, assigned by quality tier.
	Confidence float64 `json:"confidence"`
	// ContributingAgents names the agents whose analyses support this insight.
	ContributingAgents []string `json:"contributing_agents,omitempty"`
}

// IsCritical reports whether the insight is critical severity.
func (i Insight) IsCritical() bool {
	return i.Severity == SeverityCritical
}

// ConsolidatedResult is the unit cached and returned to callers.
// JSON field names are fixed for dashboard interoperability.
type ConsolidatedResult struct {
	// Insights is the ordered finding list, severity descending.
	Insights []Insight `json:"insights"`
	// ParticipatingAgents is the number of agents that succeeded.
	ParticipatingAgents int `json:"participatingAgents"`
	// ConsensusScore is the 0-100 cross-agent agreement score.
	ConsensusScore float64 `json:"consensusScore"`
	// QualityTier classifies how corroborated the result is.
	QualityTier QualityTier `json:"qualityTier"`
	// ExecutionTime is the total wall time of the pipeline run.
	ExecutionTime time.Duration `json:"executionTime"`
}

// AgentOutcome is the terminal status of one agent call.
type AgentOutcome string

const (
	// OutcomeSucceeded means the agent returned a narrative in time.
	OutcomeSucceeded AgentOutcome = "succeeded"
	// OutcomeFailed means the call errored before producing a response.
	OutcomeFailed AgentOutcome = "failed"
	// OutcomeTimedOut means the agent did not report before its deadline.
	OutcomeTimedOut AgentOutcome = "timed_out"
)

// AgentResponse is the result of one specialist agent call.
// Produced at most once per agent per run.
type AgentResponse struct {
	// AgentName identifies the responding agent.
	AgentName string `json:"agent_name"`
	// Role is the agent's analysis perspective.
	Role Role `json:"role"`
	// Narrative is the raw analysis text. Empty unless Outcome is succeeded.
	Narrative string `json:"narrative,omitempty"`
	// Elapsed is how long the call took to reach its terminal state.
	Elapsed time.Duration `json:"elapsed"`
	// Outcome is the terminal status of the call.
	Outcome AgentOutcome `json:"outcome"`
	// FailureReason captures the error when Outcome is failed or timed_out.
	FailureReason string `json:"failure_reason,omitempty"`
}
