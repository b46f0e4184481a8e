package models

// Role tags the analysis perspective of a specialist agent.
// The set is closed: adding a perspective means adding a constant here and a
// profile to the registry, not runtime polymorphism.
type Role string

const (
	// RolePerformance analyzes utilization, saturation, and errors (USE method).
	RolePerformance Role = "performance"
	// RoleInfrastructure analyzes capacity and architecture patterns.
	RoleInfrastructure Role = "infrastructure"
	// RoleSecurity analyzes security implications of performance issues.
	RoleSecurity Role = "security"
	// RoleCost analyzes cost-saving opportunities.
	RoleCost Role = "cost"
	// RoleReliability analyzes reliability and incident-response posture.
	RoleReliability Role = "reliability"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePerformance, RoleInfrastructure, RoleSecurity, RoleCost, RoleReliability:
		return true
	default:
		return false
	}
}

// AgentProfile describes one specialist analyzer.
// Profiles are immutable after startup and safe to share across goroutines.
type AgentProfile struct {
	// Name is the unique display name, e.g. "PerformanceAnalyst".
	Name string `json:"name" yaml:"name"`
	// Role tags the perspective this agent analyzes from.
	Role Role `json:"role" yaml:"role"`
	// Persona is the system prompt establishing the agent's expertise.
	Persona string `json:"persona" yaml:"persona"`
	// Weight influences which agent wins the single-best degradation path
	// and how much its findings count toward consensus.
	Weight float64 `json:"weight" yaml:"weight"`
}
