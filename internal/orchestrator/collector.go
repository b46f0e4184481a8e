package orchestrator

import (
	"sort"

	"github.com/perfsight/perfsight/pkg/models"
)

// Snapshot is the fan-in result of one dispatch: every agent outcome
// partitioned by terminal status. Partitions are sorted by agent name, so
// the snapshot is independent of arrival order.
type Snapshot struct {
	Successes []models.AgentResponse
	Failures  []models.AgentResponse
	Timeouts  []models.AgentResponse
}

// Collect partitions dispatcher output into a Snapshot. It is a pure
// function of the response set: the same responses in any order always
// yield identical partitions.
func Collect(responses []models.AgentResponse) Snapshot {
	var snap Snapshot

	for _, r := range responses {
		switch r.Outcome {
		case models.OutcomeSucceeded:
			snap.Successes = append(snap.Successes, r)
		case models.OutcomeTimedOut:
			snap.Timeouts = append(snap.Timeouts, r)
		default:
			snap.Failures = append(snap.Failures, r)
		}
	}

	sortByAgent(snap.Successes)
	sortByAgent(snap.Failures)
	sortByAgent(snap.Timeouts)

	return snap
}

// ParticipatingCount is the number of agents that succeeded, which drives
// quality-tier selection downstream.
func (s Snapshot) ParticipatingCount() int {
	return len(s.Successes)
}

func sortByAgent(responses []models.AgentResponse) {
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].AgentName < responses[j].AgentName
	})
}
