package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perfsight/perfsight/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the configured specialist agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := registry.Load(cfg.Orchestration.ProfilesFile)
		if err != nil {
			return fmt.Errorf("loading agent profiles: %w", err)
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)

		bold.Fprintf(out, "%-22s %-16s %s\n", "NAME", "ROLE", "WEIGHT")
		for _, p := range reg.Profiles() {
			fmt.Fprintf(out, "%-22s %-16s %.1f\n", p.Name, p.Role, p.Weight)
		}
		fmt.Fprintf(out, "\n%d agents across %d roles\n", reg.Count(), reg.RoleCount())
		return nil
	},
}
