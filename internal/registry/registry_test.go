package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/perfsight/perfsight/pkg/models"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		profiles []models.AgentProfile
		wantErr  bool
	}{
		{
			name:    "empty registry",
			wantErr: true,
		},
		{
			name: "valid single profile",
			profiles: []models.AgentProfile{
				{Name: "PerformanceAnalyst", Role: models.RolePerformance, Weight: 1.0},
			},
			wantErr: false,
		},
		{
			name: "duplicate name",
			profiles: []models.AgentProfile{
				{Name: "A", Role: models.RolePerformance, Weight: 1.0},
				{Name: "A", Role: models.RoleSecurity, Weight: 1.0},
			},
			wantErr: true,
		},
		{
			name: "unknown role",
			profiles: []models.AgentProfile{
				{Name: "A", Role: models.Role("astrology"), Weight: 1.0},
			},
			wantErr: true,
		},
		{
			name: "zero weight",
			profiles: []models.AgentProfile{
				{Name: "A", Role: models.RolePerformance, Weight: 0},
			},
			wantErr: true,
		},
		{
			name: "empty name",
			profiles: []models.AgentProfile{
				{Name: "", Role: models.RolePerformance, Weight: 1.0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.profiles)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultProfiles(t *testing.T) {
	reg, err := New(DefaultProfiles())
	if err != nil {
		t.Fatalf("default profiles should validate: %v", err)
	}

	if reg.Count() != 5 {
		t.Errorf("Count() = %d, want 5", reg.Count())
	}
	if reg.RoleCount() != 5 {
		t.Errorf("RoleCount() = %d, want 5 distinct roles", reg.RoleCount())
	}

	p, ok := reg.Get("PerformanceAnalyst")
	if !ok {
		t.Fatal("PerformanceAnalyst should be registered")
	}
	if p.Role != models.RolePerformance {
		t.Errorf("role = %v, want performance", p.Role)
	}
	if p.Persona == "" {
		t.Error("persona should not be empty")
	}
}

func TestProfilesReturnsCopy(t *testing.T) {
	reg, err := New(DefaultProfiles())
	if err != nil {
		t.Fatal(err)
	}

	got := reg.Profiles()
	got[0].Name = "mutated"

	again := reg.Profiles()
	if again[0].Name == "mutated" {
		t.Error("Profiles() must return a copy, not the backing slice")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")

	content := `agents:
  - name: SoloAnalyst
    role: performance
    persona: "You analyze USE metrics."
    weight: 2.0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
	p, _ := reg.Get("SoloAnalyst")
	if p.Weight != 2.0 {
		t.Errorf("weight = %v, want 2.0", p.Weight)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if reg.Count() != 5 {
		t.Errorf("Count() = %d, want 5 built-in profiles", reg.Count())
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
