package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/perfsight/perfsight/internal/config"
	"github.com/perfsight/perfsight/internal/llm"
	"github.com/perfsight/perfsight/internal/registry"
	"github.com/perfsight/perfsight/internal/usemethod"
	"github.com/perfsight/perfsight/pkg/models"
)

// ResultStore persists finished runs. Persistence is best-effort: a store
// failure is logged and never fails the analysis.
type ResultStore interface {
	SaveRun(ctx context.Context, runID string, ac models.AnalysisContext, result *models.ConsolidatedResult) error
}

// Orchestrator runs the full collaborative-analysis pipeline: fan-out,
// collection, consolidation, and scoring, in that fixed order.
type Orchestrator struct {
	registry     *registry.Registry
	dispatcher   *Dispatcher
	consolidator *Consolidator
	scorer       *Scorer
	store        ResultStore
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables best-effort run persistence.
func WithStore(s ResultStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// New wires the pipeline from configuration. The registry is validated at
// construction, so every run dispatches the same profile set.
func New(caller llm.Caller, reg *registry.Registry, cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:   reg,
		dispatcher: NewDispatcher(caller, cfg.Orchestration.AgentTimeout, cfg.Orchestration.GlobalDeadline),
		consolidator: NewConsolidator(
			caller,
			usemethod.NewAnalyzer(usemethod.DefaultThresholds()),
			cfg.Orchestration.Quorum,
			cfg.Orchestration.MajorityFraction,
			reg.Profiles(),
		),
		scorer: NewScorer(cfg.Scoring, reg.Profiles()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze executes one pipeline run over a metrics snapshot. It always
// returns a result: every degradation path terminates in the rule-based
// fallback, which cannot fail.
func (o *Orchestrator) Analyze(ctx context.Context, ac models.AnalysisContext) *models.ConsolidatedResult {
	runID := uuid.New().String()
	start := time.Now()
	profiles := o.registry.Profiles()

	log.Printf("[orchestrator] run %s: dispatching %d agents for host %s", runID, len(profiles), ac.Hostname)

	responses := o.dispatcher.Dispatch(ctx, ac, profiles)
	snap := Collect(responses)

	log.Printf("[orchestrator] run %s: %d succeeded, %d failed, %d timed out",
		runID, len(snap.Successes), len(snap.Failures), len(snap.Timeouts))

	insights, tier := o.consolidator.Consolidate(ctx, snap, ac)
	score := o.scorer.Score(insights)

	result := &models.ConsolidatedResult{
		Insights:            insights,
		ParticipatingAgents: snap.ParticipatingCount(),
		ConsensusScore:      score,
		QualityTier:         tier,
		ExecutionTime:       time.Since(start),
	}

	log.Printf("[orchestrator] run %s: tier %s, consensus %.1f, %d insights in %s",
		runID, tier, score, len(insights), result.ExecutionTime.Round(time.Millisecond))

	if o.store != nil {
		if err := o.store.SaveRun(ctx, runID, ac, result); err != nil {
			log.Printf("[orchestrator] run %s: persisting result: %v", runID, err)
		}
	}

	return result
}
