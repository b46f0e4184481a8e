// Package config handles configuration loading and management for perfsight.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/perfsight/perfsight/pkg/models"
)

// Config holds all configuration for perfsight.
type Config struct {
	Anthropic     AnthropicConfig     `mapstructure:"anthropic"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Store         StoreConfig         `mapstructure:"store"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier used for all agent calls.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// OrchestrationConfig holds fan-out and degradation settings.
type OrchestrationConfig struct {
	// AgentTimeout bounds each specialist call. Never exceeds the remaining
	// global deadline.
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`
	// GlobalDeadline is the hard cutoff for one orchestration run's fan-out.
	GlobalDeadline time.Duration `mapstructure:"global_deadline"`
	// Quorum is the minimum successful agents before AI synthesis is attempted.
	Quorum int `mapstructure:"quorum"`
	// MajorityFraction is the fraction of configured agents that must succeed
	// for the "good" quality tier. The project's own notes disagree on where
	// this line sits, so it stays configurable rather than hardcoded.
	MajorityFraction float64 `mapstructure:"majority_fraction"`
	// ProfilesFile optionally overrides the built-in agent profiles (YAML).
	ProfilesFile string `mapstructure:"profiles_file"`
}

// CacheConfig holds single-flight cache settings.
type CacheConfig struct {
	// TTL is how long a consolidated result stays servable.
	TTL time.Duration `mapstructure:"ttl"`
}

// ScoringConfig holds consensus scoring weights.
type ScoringConfig struct {
	// DiversityBonusWeight scales the role-diversity component (default 15).
	DiversityBonusWeight float64 `mapstructure:"diversity_bonus_weight"`
	// SeverityBonusWeight scales the severity component (default 10).
	SeverityBonusWeight float64 `mapstructure:"severity_bonus_weight"`
	// SeverityWeights maps severity names to consensus weights.
	SeverityWeights map[string]float64 `mapstructure:"severity_weights"`
}

// StoreConfig holds result persistence settings.
type StoreConfig struct {
	// Path is the sqlite database file. Empty disables persistence.
	Path string `mapstructure:"path"`
}

// SeverityWeight returns the configured consensus weight for a severity,
// falling back to the medium weight for unknown values.
func (s ScoringConfig) SeverityWeight(sev models.Severity) float64 {
	if w, ok := s.SeverityWeights[string(sev)]; ok {
		return w
	}
	return s.SeverityWeights[string(models.SeverityMedium)]
}

// Validate checks values the orchestrator cannot run without.
// These surface at startup, never per request.
func (c *Config) Validate() error {
	if c.Orchestration.Quorum < 1 {
		return fmt.Errorf("orchestration.quorum must be at least 1, got %d", c.Orchestration.Quorum)
	}
	if c.Orchestration.AgentTimeout <= 0 {
		return fmt.Errorf("orchestration.agent_timeout must be positive, got %s", c.Orchestration.AgentTimeout)
	}
	if c.Orchestration.GlobalDeadline <= 0 {
		return fmt.Errorf("orchestration.global_deadline must be positive, got %s", c.Orchestration.GlobalDeadline)
	}
	if c.Orchestration.MajorityFraction <= 0 || c.Orchestration.MajorityFraction > 1 {
		return fmt.Errorf("orchestration.majority_fraction must be in (0, 1], got %v", c.Orchestration.MajorityFraction)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.perfsight.yaml in current directory or parent)
// 3. User config (~/.config/perfsight/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	// Orchestration defaults
	v.SetDefault("orchestration.agent_timeout", "30s")
	v.SetDefault("orchestration.global_deadline", "60s")
	v.SetDefault("orchestration.quorum", 2)
	v.SetDefault("orchestration.majority_fraction", 0.8)
	v.SetDefault("orchestration.profiles_file", "")

	// Cache defaults
	v.SetDefault("cache.ttl", "300s")

	// Scoring defaults
	v.SetDefault("scoring.diversity_bonus_weight", 15.0)
	v.SetDefault("scoring.severity_bonus_weight", 10.0)
	v.SetDefault("scoring.severity_weights", map[string]float64{
		"critical": 1.5,
		"high":     1.2,
		"medium":   1.0,
		"low":      0.8,
		"info":     0.5,
	})

	// Store defaults
	v.SetDefault("store.path", "")
}

// getUserConfigDir returns the XDG config directory for perfsight.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "perfsight")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "perfsight")
	}
	return filepath.Join(home, ".config", "perfsight")
}

// findProjectConfig searches for .perfsight.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".perfsight.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{},
		Orchestration: OrchestrationConfig{
			AgentTimeout:     30 * time.Second,
			GlobalDeadline:   60 * time.Second,
			Quorum:           2,
			MajorityFraction: 0.8,
		},
		Cache: CacheConfig{
			TTL: 300 * time.Second,
		},
		Scoring: ScoringConfig{
			DiversityBonusWeight: 15.0,
			SeverityBonusWeight:  10.0,
			SeverityWeights: map[string]float64{
				"critical": 1.5,
				"high":     1.2,
				"medium":   1.0,
				"low":      0.8,
				"info":     0.5,
			},
		},
		Store: StoreConfig{},
	}
}
