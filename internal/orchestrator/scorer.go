package orchestrator

import (
	"github.com/perfsight/perfsight/internal/config"
	"github.com/perfsight/perfsight/pkg/models"
)

// Scorer computes the cross-agent consensus score for a consolidated
// insight set. It is a pure function of its inputs: no clock, no I/O, no
// randomness, so the same insights always score identically.
type Scorer struct {
	cfg        config.ScoringConfig
	roleOf     map[string]models.Role
	totalRoles int
}

// NewScorer creates a Scorer. The profiles provide the agent-name-to-role
// mapping for the diversity bonus and its denominator, the number of
// distinct configured roles.
func NewScorer(cfg config.ScoringConfig, profiles []models.AgentProfile) *Scorer {
	roleOf := make(map[string]models.Role, len(profiles))
	roles := make(map[models.Role]bool, len(profiles))
	for _, p := range profiles {
		roleOf[p.Name] = p.Role
		roles[p.Role] = true
	}
	return &Scorer{cfg: cfg, roleOf: roleOf, totalRoles: len(roles)}
}

// Score returns a 0-100 consensus score:
//
//	avg(confidence) + diversityWeight * distinctContributingRoles/totalRoles
//	               + severityWeight * weightedAvgSeverity
//
// where weightedAvgSeverity averages the configured per-severity weights
// across insights. The diversity bonus counts only roles whose agents are
// credited on an insight, so a degraded single-agent result never collects
// the bonus for agents whose findings were discarded. An empty insight set
// scores zero.
func (s *Scorer) Score(insights []models.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}

	roles := make(map[models.Role]bool)
	var confidenceSum, severitySum float64
	for _, in := range insights {
		confidenceSum += in.Confidence
		severitySum += s.cfg.SeverityWeight(in.Severity)
		for _, name := range in.ContributingAgents {
			if role, ok := s.roleOf[name]; ok {
				roles[role] = true
			}
		}
	}
	n := float64(len(insights))

	score := confidenceSum / n
	if s.totalRoles > 0 {
		score += s.cfg.DiversityBonusWeight * float64(len(roles)) / float64(s.totalRoles)
	}
	score += s.cfg.SeverityBonusWeight * (severitySum / n)

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
