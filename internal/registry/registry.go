// Package registry holds the static set of specialist agent profiles.
// Profiles are loaded once at process start and never mutated afterwards.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/perfsight/perfsight/pkg/models"
)

// Registry is an immutable set of agent profiles.
type Registry struct {
	profiles []models.AgentProfile
	roles    map[models.Role]bool
}

// New creates a Registry from the given profiles.
// An empty or invalid profile set is a startup configuration error.
func New(profiles []models.AgentProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("agent registry is empty")
	}

	seen := make(map[string]bool, len(profiles))
	roles := make(map[models.Role]bool, len(profiles))
	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("agent profile with empty name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate agent profile %q", p.Name)
		}
		if !p.Role.Valid() {
			return nil, fmt.Errorf("agent %q has unknown role %q", p.Name, p.Role)
		}
		if p.Weight <= 0 {
			return nil, fmt.Errorf("agent %q has non-positive weight %v", p.Name, p.Weight)
		}
		seen[p.Name] = true
		roles[p.Role] = true
	}

	// Copy so callers cannot mutate the backing slice afterwards.
	copied := make([]models.AgentProfile, len(profiles))
	copy(copied, profiles)

	return &Registry{profiles: copied, roles: roles}, nil
}

// Load builds the registry from the built-in defaults, or from a YAML
// profiles file when path is non-empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return New(DefaultProfiles())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var doc struct {
		Agents []models.AgentProfile `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profiles file %s: %w", path, err)
	}

	reg, err := New(doc.Agents)
	if err != nil {
		return nil, fmt.Errorf("profiles file %s: %w", path, err)
	}
	return reg, nil
}

// Profiles returns a copy of all profiles.
func (r *Registry) Profiles() []models.AgentProfile {
	out := make([]models.AgentProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Count returns the number of configured agents.
func (r *Registry) Count() int {
	return len(r.profiles)
}

// RoleCount returns the number of distinct roles configured.
func (r *Registry) RoleCount() int {
	return len(r.roles)
}

// Get returns the profile with the given name.
func (r *Registry) Get(name string) (models.AgentProfile, bool) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return models.AgentProfile{}, false
}
