package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/perfsight/perfsight/pkg/models"
)

func testResult(score float64) *models.ConsolidatedResult {
	return &models.ConsolidatedResult{
		ConsensusScore: score,
		QualityTier:    models.TierGood,
	}
}

func TestGetOrRunMiss(t *testing.T) {
	c := New(time.Minute)

	result, cached, err := c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
		return testResult(90)
	})
	if err != nil {
		t.Fatalf("GetOrRun() error = %v", err)
	}
	if cached {
		t.Error("first call should be a miss")
	}
	if result.ConsensusScore != 90 {
		t.Errorf("score = %v, want 90", result.ConsensusScore)
	}
}

func TestGetOrRunHit(t *testing.T) {
	c := New(time.Minute)
	runs := 0
	run := func(ctx context.Context) *models.ConsolidatedResult {
		runs++
		return testResult(90)
	}

	if _, _, err := c.GetOrRun(context.Background(), "abc", run); err != nil {
		t.Fatal(err)
	}
	result, cached, err := c.GetOrRun(context.Background(), "abc", run)
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Error("second call should hit the cache")
	}
	if runs != 1 {
		t.Errorf("run executed %d times, want 1", runs)
	}
	if result.ConsensusScore != 90 {
		t.Errorf("score = %v, want cached 90", result.ConsensusScore)
	}
}

func TestGetOrRunSingleFlight(t *testing.T) {
	c := New(time.Minute)
	var runs int32
	release := make(chan struct{})

	run := func(ctx context.Context) *models.ConsolidatedResult {
		atomic.AddInt32(&runs, 1)
		<-release
		return testResult(85)
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*models.ConsolidatedResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := c.GetOrRun(context.Background(), "same-key", run)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}

	// Give every caller time to reach the cache before releasing the run.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("run executed %d times for concurrent same-key callers, want 1", got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("caller %d got a different result instance", i)
		}
	}
}

func TestGetOrRunDistinctKeys(t *testing.T) {
	c := New(time.Minute)
	var runs int32
	run := func(ctx context.Context) *models.ConsolidatedResult {
		atomic.AddInt32(&runs, 1)
		return testResult(80)
	}

	if _, _, err := c.GetOrRun(context.Background(), "key-1", run); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.GetOrRun(context.Background(), "key-2", run); err != nil {
		t.Fatal(err)
	}

	if runs != 2 {
		t.Errorf("run executed %d times for two keys, want 2", runs)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	runs := 0
	run := func(ctx context.Context) *models.ConsolidatedResult {
		runs++
		return testResult(float64(70 + runs))
	}

	if _, _, err := c.GetOrRun(context.Background(), "abc", run); err != nil {
		t.Fatal(err)
	}

	// Just inside the TTL: still a hit.
	now = now.Add(59 * time.Second)
	if _, cached, _ := c.GetOrRun(context.Background(), "abc", run); !cached {
		t.Error("entry expired early")
	}

	// Past the TTL: stale, rerun.
	now = now.Add(2 * time.Second)
	result, cached, err := c.GetOrRun(context.Background(), "abc", run)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Error("stale entry served as fresh")
	}
	if runs != 2 {
		t.Errorf("run executed %d times, want 2 after expiry", runs)
	}
	if result.ConsensusScore != 72 {
		t.Errorf("score = %v, want refreshed 72", result.ConsensusScore)
	}
}

func TestWaiterCancellation(t *testing.T) {
	c := New(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
			close(started)
			<-release
			return testResult(80)
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.GetOrRun(ctx, "abc", func(ctx context.Context) *models.ConsolidatedResult {
		t.Error("canceled waiter must not start a run")
		return nil
	})
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	close(release)
}

func TestPanickedRunDoesNotWedgeKey(t *testing.T) {
	c := New(time.Minute)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate to the running caller")
			}
		}()
		c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
			panic("pipeline blew up")
		})
	}()

	// The key must be usable again, with a fresh run rather than a hit.
	done := make(chan struct{})
	var result *models.ConsolidatedResult
	var cached bool
	go func() {
		defer close(done)
		var err error
		result, cached, err = c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
			return testResult(80)
		})
		if err != nil {
			t.Errorf("GetOrRun() after panic error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("caller blocked on a key whose run panicked")
	}
	if cached {
		t.Error("dead entry served as a hit")
	}
	if result == nil || result.ConsensusScore != 80 {
		t.Errorf("result = %+v, want fresh run's result", result)
	}
}

func TestWaiterRecoversFromPanickedRun(t *testing.T) {
	c := New(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		defer func() { recover() }()
		c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
			close(started)
			<-release
			panic("pipeline blew up")
		})
	}()
	<-started

	done := make(chan struct{})
	var result *models.ConsolidatedResult
	go func() {
		defer close(done)
		var err error
		result, _, err = c.GetOrRun(context.Background(), "abc", func(ctx context.Context) *models.ConsolidatedResult {
			return testResult(85)
		})
		if err != nil {
			t.Errorf("waiter GetOrRun() error = %v", err)
		}
	}()

	// Give the waiter time to join before the run dies.
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never recovered from the panicked run")
	}
	if result == nil || result.ConsensusScore != 85 {
		t.Errorf("result = %+v, want the waiter's own rerun", result)
	}
}

func TestPurge(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	run := func(ctx context.Context) *models.ConsolidatedResult { return testResult(80) }
	c.GetOrRun(context.Background(), "old", run)

	now = now.Add(30 * time.Second)
	c.GetOrRun(context.Background(), "fresh", run)

	now = now.Add(31 * time.Second)
	if removed := c.Purge(); removed != 1 {
		t.Errorf("Purge() removed %d, want 1", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after purge, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive purge")
	}
}
