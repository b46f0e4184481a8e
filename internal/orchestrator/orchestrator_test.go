package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/perfsight/perfsight/internal/config"
	"github.com/perfsight/perfsight/internal/registry"
	"github.com/perfsight/perfsight/pkg/models"
)

type fakeStore struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (f *fakeStore) SaveRun(ctx context.Context, runID string, ac models.AnalysisContext, result *models.ConsolidatedResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

func newTestOrchestrator(t *testing.T, caller *fakeCaller, opts ...Option) *Orchestrator {
	t.Helper()
	reg, err := registry.New(registry.DefaultProfiles())
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	cfg := config.Default()
	cfg.Orchestration.AgentTimeout = time.Second
	cfg.Orchestration.GlobalDeadline = 5 * time.Second
	return New(caller, reg, cfg, opts...)
}

func TestAnalyzeFullParticipation(t *testing.T) {
	caller := &fakeCaller{fn: func(ctx context.Context, system, prompt string) (string, error) {
		// The synthesis call carries the merge instructions, agent calls the
		// shared snapshot prompt.
		if containsSynthesisMarker(prompt) {
			return validSynthesis, nil
		}
		return "specialist findings", nil
	}}
	store := &fakeStore{}
	o := newTestOrchestrator(t, caller, WithStore(store))

	result := o.Analyze(context.Background(), testContext())

	if result.QualityTier != models.TierExcellent {
		t.Errorf("tier = %s, want excellent with all 5 agents", result.QualityTier)
	}
	if result.ParticipatingAgents != 5 {
		t.Errorf("participating = %d, want 5", result.ParticipatingAgents)
	}
	if result.ConsensusScore <= 0 || result.ConsensusScore > 100 {
		t.Errorf("consensus score %v out of range", result.ConsensusScore)
	}
	if result.ExecutionTime <= 0 {
		t.Errorf("execution time %v should be positive", result.ExecutionTime)
	}
	if len(result.Insights) == 0 {
		t.Error("expected synthesized insights")
	}
	if store.saves != 1 {
		t.Errorf("store saved %d times, want 1", store.saves)
	}
}

func TestAnalyzeAllAgentsFail(t *testing.T) {
	caller := &fakeCaller{fn: func(ctx context.Context, system, prompt string) (string, error) {
		return "", errors.New("api unreachable")
	}}
	o := newTestOrchestrator(t, caller)

	ac := testContext()
	ac.CPUUtilization = 95

	result := o.Analyze(context.Background(), ac)

	if result.QualityTier != models.TierDegraded {
		t.Errorf("tier = %s, want degraded", result.QualityTier)
	}
	if result.ParticipatingAgents != 0 {
		t.Errorf("participating = %d, want 0", result.ParticipatingAgents)
	}
	if len(result.Insights) == 0 {
		t.Fatal("rule-based fallback must still produce insights")
	}
	for _, in := range result.Insights {
		if in.Confidence >= 80 {
			t.Errorf("degraded insight %q confidence = %v, must stay below 80", in.Title, in.Confidence)
		}
	}
}

func TestAnalyzeStoreFailureIsNonFatal(t *testing.T) {
	caller := &fakeCaller{fn: func(ctx context.Context, system, prompt string) (string, error) {
		if containsSynthesisMarker(prompt) {
			return validSynthesis, nil
		}
		return "findings", nil
	}}
	store := &fakeStore{err: errors.New("disk full")}
	o := newTestOrchestrator(t, caller, WithStore(store))

	result := o.Analyze(context.Background(), testContext())

	if result == nil || len(result.Insights) == 0 {
		t.Fatal("store failure must not fail the analysis")
	}
	if store.saves != 1 {
		t.Errorf("store saved %d times, want 1", store.saves)
	}
}

func containsSynthesisMarker(prompt string) bool {
	return strings.HasPrefix(prompt, "Merge these specialist analyses")
}
