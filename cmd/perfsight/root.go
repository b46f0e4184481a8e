package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfsight/perfsight/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "perfsight",
	Short: "Multi-agent system performance diagnostics",
	Long: `Perfsight analyzes a system performance snapshot with a panel of
specialist AI agents working in parallel, consolidates their findings into
ranked insights, and scores how strongly the panel agrees.

When the AI backend is slow or unreachable, analysis degrades through
progressively simpler paths and always ends in a deterministic rule-based
assessment, so a result is produced no matter what.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
