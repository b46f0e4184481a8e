package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/perfsight/perfsight/internal/llm"
	"github.com/perfsight/perfsight/internal/usemethod"
	"github.com/perfsight/perfsight/pkg/models"
)

// Confidence values assigned by quality tier. The degraded paths stay
// strictly below the basic tier's 80.
const (
	confidenceExcellent   = 95
	confidenceGood        = 88
	confidenceBasic       = 80
	confidenceSingleAgent = 70
	confidenceRuleBased   = 60
)

// Consolidator turns the fan-in snapshot into a structured insight list.
// It degrades in stages: AI synthesis when quorum is met, the single
// highest-weight agent when it is not (or when synthesis parsing fails
// twice), and the deterministic rule analyzer when no agent succeeded.
// The final stage cannot fail, so consolidation always yields insights.
type Consolidator struct {
	caller      llm.Caller
	fallback    *usemethod.Analyzer
	quorum      int
	majority    float64
	totalAgents int
	weights     map[string]float64
}

// NewConsolidator creates a Consolidator. The profiles provide the registry
// size and the per-agent weights used by the single-best degradation path;
// majority is the fraction of the registry required for the good tier.
func NewConsolidator(caller llm.Caller, fallback *usemethod.Analyzer, quorum int, majority float64, profiles []models.AgentProfile) *Consolidator {
	weights := make(map[string]float64, len(profiles))
	for _, p := range profiles {
		weights[p.Name] = p.Weight
	}
	return &Consolidator{
		caller:      caller,
		fallback:    fallback,
		quorum:      quorum,
		majority:    majority,
		totalAgents: len(profiles),
		weights:     weights,
	}
}

// Consolidate produces the ordered insight list and the quality tier for
// one snapshot. Ordering and tier are deterministic functions of the
// snapshot; only the synthesis call's prose may vary between runs.
func (c *Consolidator) Consolidate(ctx context.Context, snap Snapshot, ac models.AnalysisContext) ([]models.Insight, models.QualityTier) {
	n := snap.ParticipatingCount()
	tier := c.tierFor(n)

	if n == 0 {
		log.Printf("[consolidator] no agents responded, using rule-based fallback")
		return c.ruleBased(ac), models.TierDegraded
	}

	if n < c.quorum {
		log.Printf("[consolidator] %d/%d agents below quorum %d, using single-agent path", n, c.totalAgents, c.quorum)
		return c.singleBest(snap), tier
	}

	insights, err := c.synthesize(ctx, snap, tier)
	if err != nil {
		log.Printf("[consolidator] synthesis failed after retry: %v, degrading to single-agent path", err)
		return c.singleBest(snap), models.TierDegraded
	}

	return insights, tier
}

// tierFor maps participating-agent count to a quality tier against the
// configured thresholds.
func (c *Consolidator) tierFor(participating int) models.QualityTier {
	switch {
	case participating == 0:
		return models.TierDegraded
	case participating >= c.totalAgents:
		return models.TierExcellent
	case float64(participating) >= c.majority*float64(c.totalAgents):
		return models.TierGood
	case participating >= c.quorum:
		return models.TierBasic
	default:
		return models.TierDegraded
	}
}

// confidenceFor returns the per-insight confidence for a tier's synthesis
// or single-agent output.
func confidenceFor(tier models.QualityTier) float64 {
	switch tier {
	case models.TierExcellent:
		return confidenceExcellent
	case models.TierGood:
		return confidenceGood
	case models.TierBasic:
		return confidenceBasic
	default:
		return confidenceSingleAgent
	}
}

// ruleBased runs the terminal fallback over the raw metrics.
func (c *Consolidator) ruleBased(ac models.AnalysisContext) []models.Insight {
	insights := c.fallback.Analyze(ac)
	for i := range insights {
		insights[i].Confidence = confidenceRuleBased
	}
	return insights
}

// synthesize issues one structured-merge call over the successful
// narratives, retrying the call exactly once on a schema-parse failure.
func (c *Consolidator) synthesize(ctx context.Context, snap Snapshot, tier models.QualityTier) ([]models.Insight, error) {
	prompt := buildSynthesisPrompt(snap)

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		raw, err := c.caller.Complete(ctx, synthesisSystemPrompt, prompt)
		if err != nil {
			lastErr = fmt.Errorf("synthesis call: %w", err)
			log.Printf("[consolidator] synthesis attempt %d failed: %v", attempt, err)
			continue
		}

		insights, err := parseSynthesis(raw)
		if err != nil {
			lastErr = fmt.Errorf("synthesis parse: %w", err)
			log.Printf("[consolidator] synthesis attempt %d parse error: %v", attempt, err)
			continue
		}

		contributors := agentNames(snap.Successes)
		confidence := confidenceFor(tier)
		for i := range insights {
			insights[i].Confidence = confidence
			if len(insights[i].ContributingAgents) == 0 {
				insights[i].ContributingAgents = contributors
			}
		}

		return finalize(insights), nil
	}

	return nil, lastErr
}

// singleBest builds one insight from the highest-weight successful agent's
// raw narrative, heuristically segmented. Only degraded runs land here, so
// the confidence is always the single-agent value.
func (c *Consolidator) singleBest(snap Snapshot) []models.Insight {
	best := snap.Successes[0]
	bestWeight := c.weights[best.AgentName]
	for _, r := range snap.Successes[1:] {
		if w := c.weights[r.AgentName]; w > bestWeight {
			best, bestWeight = r, w
		}
	}

	log.Printf("[consolidator] selecting %s (weight %.1f) for single-agent insight", best.AgentName, bestWeight)

	insight := segmentNarrative(best)
	insight.Confidence = confidenceSingleAgent
	return finalize([]models.Insight{insight})
}

// segmentNarrative converts a raw narrative into one insight: the first
// paragraph becomes the observation, and lines mentioning causes or
// recommendations seed the remaining fields.
func segmentNarrative(r models.AgentResponse) models.Insight {
	paragraphs := strings.Split(strings.TrimSpace(r.Narrative), "\n\n")

	observation := strings.TrimSpace(paragraphs[0])
	if len(observation) > 500 {
		// Back up to a rune start so the cut never splits a multi-byte rune.
		cut := 500
		for cut > 0 && !utf8.RuneStart(observation[cut]) {
			cut--
		}
		observation = observation[:cut]
	}

	rootCause := "Single-agent analysis; cross-agent corroboration unavailable"
	immediateAction := "Review the full agent narrative and corroborate findings manually"
	for _, line := range strings.Split(r.Narrative, "\n") {
		lower := strings.ToLower(line)
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. ")
		if trimmed == "" {
			continue
		}
		if strings.Contains(lower, "cause") && rootCause == "Single-agent analysis; cross-agent corroboration unavailable" {
			rootCause = trimmed
		}
		if (strings.Contains(lower, "recommend") || strings.Contains(lower, "action")) &&
			immediateAction == "Review the full agent narrative and corroborate findings manually" {
			immediateAction = trimmed
		}
	}

	severity := models.SeverityMedium
	lowerNarrative := strings.ToLower(r.Narrative)
	if strings.Contains(lowerNarrative, "critical") {
		severity = models.SeverityHigh
	}

	return models.Insight{
		Title:              fmt.Sprintf("%s Analysis", r.AgentName),
		Component:          "system",
		Severity:           severity,
		Observation:        observation,
		RootCause:          rootCause,
		ImmediateAction:    immediateAction,
		ContributingAgents: []string{r.AgentName},
	}
}

// finalize deduplicates and orders an insight list. Two insights with the
// same (component, title) merge unless their contributing-agent sets are
// disjoint, in which case both survive as a genuine disagreement.
func finalize(insights []models.Insight) []models.Insight {
	type key struct{ component, title string }
	merged := make([]models.Insight, 0, len(insights))
	index := make(map[key]int)

	for _, in := range insights {
		k := key{in.Component, in.Title}
		prev, seen := index[k]
		if seen && sharesAgent(merged[prev], in) {
			merged[prev].ContributingAgents = unionAgents(merged[prev].ContributingAgents, in.ContributingAgents)
			if in.Severity.Rank() > merged[prev].Severity.Rank() {
				merged[prev].Severity = in.Severity
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, in)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Severity.Rank() != merged[j].Severity.Rank() {
			return merged[i].Severity.Rank() > merged[j].Severity.Rank()
		}
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Title < merged[j].Title
	})

	return merged
}

func sharesAgent(a, b models.Insight) bool {
	for _, x := range a.ContributingAgents {
		for _, y := range b.ContributingAgents {
			if x == y {
				return true
			}
		}
	}
	// Insights without attribution merge by default.
	return len(a.ContributingAgents) == 0 || len(b.ContributingAgents) == 0
}

func unionAgents(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func agentNames(responses []models.AgentResponse) []string {
	names := make([]string, 0, len(responses))
	for _, r := range responses {
		names = append(names, r.AgentName)
	}
	sort.Strings(names)
	return names
}

const synthesisSystemPrompt = `You are a synthesis coordinator merging independent specialist analyses
of one system performance snapshot into a unified set of findings.
Respond with JSON only, no prose outside the JSON object.`

// buildSynthesisPrompt renders the structured-merge request over every
// successful narrative.
func buildSynthesisPrompt(snap Snapshot) string {
	var b strings.Builder
	b.WriteString("Merge these specialist analyses into a ranked set of findings.\n\n")

	for _, r := range snap.Successes {
		fmt.Fprintf(&b, "## %s (%s)\n%s\n\n", r.AgentName, r.Role, r.Narrative)
	}

	b.WriteString(`Respond with a JSON object of this exact shape:
{
  "insights": [
    {
      "title": "short headline",
      "component": "cpu|memory|disk|network|system",
      "severity": "critical|high|medium|low|info",
      "observation": "what the metrics show",
      "root_cause": "most likely underlying cause",
      "immediate_action": "first remediation step",
      "recommendations": ["follow-up actions"],
      "metrics": ["supporting metric names"],
      "contributing_agents": ["agent names supporting this finding"]
    }
  ]
}
Every field except recommendations, metrics, and contributing_agents is required.`)

	return b.String()
}

// synthesisInsight is the strict wire schema for one synthesized finding.
type synthesisInsight struct {
	Title              string   `json:"title"`
	Component          string   `json:"component"`
	Severity           string   `json:"severity"`
	Observation        string   `json:"observation"`
	RootCause          string   `json:"root_cause"`
	ImmediateAction    string   `json:"immediate_action"`
	Recommendations    []string `json:"recommendations"`
	Metrics            []string `json:"metrics"`
	ContributingAgents []string `json:"contributing_agents"`
}

// parseSynthesis extracts and validates the JSON object from a synthesis
// response. Missing required fields fail the parse so the retry/degrade
// policy can take over.
func parseSynthesis(raw string) ([]models.Insight, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var doc struct {
		Insights []synthesisInsight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(jsonText), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(doc.Insights) == 0 {
		return nil, fmt.Errorf("response contains no insights")
	}

	insights := make([]models.Insight, 0, len(doc.Insights))
	for i, si := range doc.Insights {
		if si.Title == "" || si.Severity == "" || si.Observation == "" ||
			si.RootCause == "" || si.ImmediateAction == "" {
			return nil, fmt.Errorf("insight %d missing required fields", i)
		}
		component := si.Component
		if component == "" {
			component = "system"
		}
		insights = append(insights, models.Insight{
			Title:              si.Title,
			Component:          component,
			Severity:           models.ParseSeverity(si.Severity),
			Observation:        si.Observation,
			RootCause:          si.RootCause,
			ImmediateAction:    si.ImmediateAction,
			Recommendations:    si.Recommendations,
			Metrics:            si.Metrics,
			ContributingAgents: si.ContributingAgents,
		})
	}

	return insights, nil
}

// extractJSON returns the outermost JSON object in a response, tolerating
// prose or markdown fences around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
