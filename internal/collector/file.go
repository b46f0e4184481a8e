package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/perfsight/perfsight/pkg/models"
)

// FileSampler replays a captured metrics snapshot from a JSON file, letting
// the pipeline analyze metrics exported by external collectors.
type FileSampler struct {
	Path string
}

// Sample loads and validates the snapshot.
func (f FileSampler) Sample(ctx context.Context) (models.AnalysisContext, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return models.AnalysisContext{}, fmt.Errorf("reading metrics file: %w", err)
	}

	var ac models.AnalysisContext
	if err := json.Unmarshal(data, &ac); err != nil {
		return models.AnalysisContext{}, fmt.Errorf("parsing metrics file %s: %w", f.Path, err)
	}

	if ac.Hostname == "" {
		return models.AnalysisContext{}, fmt.Errorf("metrics file %s missing hostname", f.Path)
	}
	if ac.Timestamp.IsZero() {
		ac.Timestamp = time.Now().UTC()
	}

	return ac, nil
}
