package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perfsight/perfsight/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "User config:    %s\n", config.GetUserConfigPath())
		if p := config.GetProjectConfigPath(); p != "" {
			fmt.Fprintf(out, "Project config: %s\n", p)
		}
		fmt.Fprintln(out)

		fmt.Fprintf(out, "orchestration.agent_timeout:     %s\n", cfg.Orchestration.AgentTimeout)
		fmt.Fprintf(out, "orchestration.global_deadline:   %s\n", cfg.Orchestration.GlobalDeadline)
		fmt.Fprintf(out, "orchestration.quorum:            %d\n", cfg.Orchestration.Quorum)
		fmt.Fprintf(out, "orchestration.majority_fraction: %g\n", cfg.Orchestration.MajorityFraction)
		fmt.Fprintf(out, "cache.ttl:                       %s\n", cfg.Cache.TTL)
		fmt.Fprintf(out, "scoring.diversity_bonus_weight:  %g\n", cfg.Scoring.DiversityBonusWeight)
		fmt.Fprintf(out, "scoring.severity_bonus_weight:   %g\n", cfg.Scoring.SeverityBonusWeight)
		if cfg.Store.Path != "" {
			fmt.Fprintf(out, "store.path:                      %s\n", cfg.Store.Path)
		}
		if cfg.Anthropic.UseAWSBedrock {
			fmt.Fprintf(out, "anthropic.use_aws_bedrock:       true (region %s)\n", cfg.Anthropic.AWSRegion)
		}
		return nil
	},
}
