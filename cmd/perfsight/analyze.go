package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfsight/perfsight/internal/cache"
	"github.com/perfsight/perfsight/internal/collector"
	"github.com/perfsight/perfsight/internal/llm"
	"github.com/perfsight/perfsight/internal/orchestrator"
	"github.com/perfsight/perfsight/internal/registry"
	"github.com/perfsight/perfsight/internal/report"
	"github.com/perfsight/perfsight/internal/store"
	"github.com/perfsight/perfsight/pkg/models"
)

var (
	analyzeInput    string
	analyzeFormat   string
	analyzeWatch    time.Duration
	analyzeProfiles string
	analyzeVerbose  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a multi-agent analysis of system performance",
	Long: `Analyze samples the local host (or replays a captured metrics file),
fans the snapshot out to the configured specialist agents, and prints the
consolidated findings.

With --watch, analyze loops at the given interval. Snapshots with an
identical fingerprint inside the cache TTL reuse the previous run instead
of calling the agents again.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "Replay a captured metrics JSON file instead of sampling the host")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "Output format: text or json")
	analyzeCmd.Flags().DurationVarP(&analyzeWatch, "watch", "w", 0, "Re-analyze at this interval (e.g. 5m); 0 runs once")
	analyzeCmd.Flags().StringVar(&analyzeProfiles, "profiles", "", "Agent profiles YAML (overrides config)")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Log pipeline progress to stderr")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "text" && analyzeFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", analyzeFormat)
	}
	// Pipeline logging goes to stderr only when asked for.
	if !analyzeVerbose {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profilesPath := analyzeProfiles
	if profilesPath == "" {
		profilesPath = cfg.Orchestration.ProfilesFile
	}
	reg, err := registry.Load(profilesPath)
	if err != nil {
		return fmt.Errorf("loading agent profiles: %w", err)
	}

	caller, err := llm.NewClient(llm.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}

	var opts []orchestrator.Option
	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("opening result store: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating result store: %w", err)
		}
		opts = append(opts, orchestrator.WithStore(db))
	}

	orch := orchestrator.New(caller, reg, cfg, opts...)
	resultCache := cache.New(cfg.Cache.TTL)
	sampler := buildSampler()

	for {
		if err := analyzeOnce(cmd, sampler, orch, resultCache); err != nil {
			if analyzeWatch == 0 {
				return err
			}
			fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		}

		if analyzeWatch == 0 {
			return nil
		}
		select {
		case <-time.After(analyzeWatch):
		case <-cmd.Context().Done():
			return nil
		}
	}
}

func buildSampler() collector.Sampler {
	if analyzeInput != "" {
		return collector.FileSampler{Path: analyzeInput}
	}
	return collector.NewHostSampler()
}

func analyzeOnce(cmd *cobra.Command, sampler collector.Sampler, orch *orchestrator.Orchestrator, resultCache *cache.Cache) error {
	ctx := cmd.Context()

	ac, err := sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}

	result, cached, err := resultCache.GetOrRun(ctx, ac.Fingerprint(), func(runCtx context.Context) *models.ConsolidatedResult {
		return orch.Analyze(runCtx, ac)
	})
	if err != nil {
		return err
	}
	if cached {
		fmt.Fprintln(os.Stderr, "(cached result)")
	}

	if analyzeFormat == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), result)
	}
	report.WriteText(cmd.OutOrStdout(), ac, result)
	return nil
}
