// Package collector gathers the system metrics snapshot that seeds an
// analysis run. The Sampler interface is the boundary: the orchestration
// pipeline never reads the host directly, it consumes whatever snapshot a
// sampler hands it.
package collector

import (
	"context"

	"github.com/perfsight/perfsight/pkg/models"
)

// Sampler produces one metrics snapshot.
type Sampler interface {
	Sample(ctx context.Context) (models.AnalysisContext, error)
}

// StaticSampler returns a fixed snapshot. Used in tests and for replaying
// captured metrics through the pipeline.
type StaticSampler struct {
	Context models.AnalysisContext
	Err     error
}

// Sample returns the configured snapshot or error.
func (s StaticSampler) Sample(ctx context.Context) (models.AnalysisContext, error) {
	if s.Err != nil {
		return models.AnalysisContext{}, s.Err
	}
	return s.Context, nil
}
