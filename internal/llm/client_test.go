package llm

import "testing"

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(1000, 500)
	tracker.Add(2000, 1500)

	in, out := tracker.Total()
	if in != 3000 || out != 2000 {
		t.Errorf("Total() = (%d, %d), want (3000, 2000)", in, out)
	}
	if tracker.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tracker.Calls())
	}

	tracker.Reset()
	in, out = tracker.Total()
	if in != 0 || out != 0 || tracker.Calls() != 0 {
		t.Error("Reset() should clear all counters")
	}
}

func TestTokenTrackerCost(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(1_000_000, 1_000_000)

	// $3/1M input + $15/1M output
	if got := tracker.Cost(); got != 18.0 {
		t.Errorf("Cost() = %v, want 18.0", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient() without an API key should fail")
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if got != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("already-translated model should pass through, got %v", got)
	}
}
