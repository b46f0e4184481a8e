// Package orchestrator coordinates the multi-agent collaborative analysis
// pipeline: fan-out to specialist agents, fan-in under a deadline,
// consolidation into insights, and consensus scoring.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/perfsight/perfsight/internal/llm"
	"github.com/perfsight/perfsight/pkg/models"
)

// Dispatcher fans an analysis request out to specialist agents in parallel.
// Each call is bound by its own timeout nested inside a global deadline, and
// the dispatcher returns as soon as every agent has reported or the deadline
// elapses. Stragglers are marked timed-out; their late results are logged
// and discarded, never merged.
type Dispatcher struct {
	caller         llm.Caller
	agentTimeout   time.Duration
	globalDeadline time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(caller llm.Caller, agentTimeout, globalDeadline time.Duration) *Dispatcher {
	return &Dispatcher{
		caller:         caller,
		agentTimeout:   agentTimeout,
		globalDeadline: globalDeadline,
	}
}

// Dispatch runs one agent call per profile and returns every terminal
// outcome. The returned slice always has one entry per profile. No retry
// happens at this layer; retry policy belongs to the LLM client port.
func (d *Dispatcher) Dispatch(ctx context.Context, ac models.AnalysisContext, profiles []models.AgentProfile) []models.AgentResponse {
	runCtx, cancel := context.WithTimeout(ctx, d.globalDeadline)
	defer cancel()

	results := make(chan models.AgentResponse, len(profiles))
	prompt := buildAgentPrompt(ac)

	for _, p := range profiles {
		go d.callAgent(runCtx, p, prompt, results)
	}

	responses := make([]models.AgentResponse, 0, len(profiles))
	reported := make(map[string]bool, len(profiles))

	for len(responses) < len(profiles) {
		select {
		case r := <-results:
			responses = append(responses, r)
			reported[r.AgentName] = true

		case <-runCtx.Done():
			return d.settleAtDeadline(profiles, responses, reported, results)
		}
	}

	return responses
}

// settleAtDeadline closes out a dispatch when the global deadline elapses.
// Responses already sitting in the results buffer beat the deadline, so
// they are collected first; select picks ready cases at random, meaning
// the deadline branch can win even while delivered results wait. Only the
// agents still silent after the drain are marked timed out.
func (d *Dispatcher) settleAtDeadline(profiles []models.AgentProfile, responses []models.AgentResponse, reported map[string]bool, results chan models.AgentResponse) []models.AgentResponse {
	for len(responses) < len(profiles) {
		select {
		case r := <-results:
			responses = append(responses, r)
			reported[r.AgentName] = true
			continue
		default:
		}
		break
	}

	outstanding := 0
	for _, p := range profiles {
		if !reported[p.Name] {
			outstanding++
			responses = append(responses, models.AgentResponse{
				AgentName:     p.Name,
				Role:          p.Role,
				Elapsed:       d.globalDeadline,
				Outcome:       models.OutcomeTimedOut,
				FailureReason: "global deadline elapsed",
			})
		}
	}
	if outstanding > 0 {
		// Cancellation propagates to the agent goroutines, but correctness
		// does not depend on them noticing.
		go discardLate(results, outstanding)
	}
	return responses
}

// callAgent executes one specialist call and sends exactly one response.
func (d *Dispatcher) callAgent(ctx context.Context, p models.AgentProfile, prompt string, results chan<- models.AgentResponse) {
	// The agent timeout nests inside the run context, so it can never
	// extend past the global deadline.
	agentCtx, cancel := context.WithTimeout(ctx, d.agentTimeout)
	defer cancel()

	start := time.Now()
	narrative, err := d.caller.Complete(agentCtx, p.Persona, prompt)
	elapsed := time.Since(start)

	resp := models.AgentResponse{
		AgentName: p.Name,
		Role:      p.Role,
		Elapsed:   elapsed,
	}

	switch {
	case err == nil:
		resp.Outcome = models.OutcomeSucceeded
		resp.Narrative = narrative
		log.Printf("[dispatcher] agent %s responded in %s", p.Name, elapsed.Round(time.Millisecond))
	case errors.Is(err, context.DeadlineExceeded):
		resp.Outcome = models.OutcomeTimedOut
		resp.FailureReason = fmt.Sprintf("timed out after %s", elapsed.Round(time.Millisecond))
		log.Printf("[dispatcher] agent %s timed out after %s", p.Name, elapsed.Round(time.Millisecond))
	default:
		resp.Outcome = models.OutcomeFailed
		resp.FailureReason = err.Error()
		log.Printf("[dispatcher] agent %s failed: %v", p.Name, err)
	}

	results <- resp
}

// discardLate drains results that arrive after the deadline so the agent
// goroutines can finish, logging each discarded response.
func discardLate(results <-chan models.AgentResponse, n int) {
	for i := 0; i < n; i++ {
		r := <-results
		log.Printf("[dispatcher] discarding late result from %s (outcome %s after %s)",
			r.AgentName, r.Outcome, r.Elapsed.Round(time.Millisecond))
	}
}

// buildAgentPrompt renders the shared analysis request each specialist
// receives alongside its own persona.
func buildAgentPrompt(ac models.AnalysisContext) string {
	return fmt.Sprintf(`Analyze this system performance snapshot from your specialized perspective:

%s
Provide:
1. Your top 3 findings from your domain
2. The most likely root cause for each
3. One immediate action per finding

Be concise, technical, and actionable.`, ac.Summary())
}
