// Package usemethod implements the deterministic USE-method rule analyzer.
// It is the terminal fallback when no specialist agent responds: pure
// threshold comparisons over the metrics snapshot, no I/O, never fails.
package usemethod

import (
	"fmt"
	"sort"

	"github.com/perfsight/perfsight/pkg/models"
)

// Threshold holds warning and critical cutoffs for a resource, in percent.
type Threshold struct {
	Warning  float64
	Critical float64
}

// Thresholds maps each resource to its USE-method cutoffs.
type Thresholds struct {
	CPU     Threshold
	Memory  Threshold
	Disk    Threshold
	Network Threshold
}

// DefaultThresholds returns the standard USE-method cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:     Threshold{Warning: 70, Critical: 90},
		Memory:  Threshold{Warning: 80, Critical: 95},
		Disk:    Threshold{Warning: 60, Critical: 85},
		Network: Threshold{Warning: 70, Critical: 90},
	}
}

// Analyzer evaluates a metrics snapshot against fixed thresholds.
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer creates an Analyzer with the given thresholds.
func NewAnalyzer(t Thresholds) *Analyzer {
	return &Analyzer{thresholds: t}
}

// Analyze produces rule-based insights for the snapshot. The result is a
// deterministic function of the input: same snapshot, same insights, same
// order. An all-healthy snapshot yields a single info insight so callers
// always receive at least one finding.
func (a *Analyzer) Analyze(ctx models.AnalysisContext) []models.Insight {
	var insights []models.Insight

	insights = append(insights, a.analyzeCPU(ctx)...)
	insights = append(insights, a.analyzeMemory(ctx)...)
	insights = append(insights, a.analyzeDisk(ctx)...)
	insights = append(insights, a.analyzeNetwork(ctx)...)

	if len(insights) == 0 {
		insights = append(insights, models.Insight{
			Title:           "System Within Normal Operating Ranges",
			Component:       "system",
			Severity:        models.SeverityInfo,
			Observation:     fmt.Sprintf("All monitored resources on %s are below warning thresholds", ctx.Hostname),
			RootCause:       "No bottleneck detected by rule-based analysis",
			ImmediateAction: "No action required",
			Metrics:         []string{"cpu_utilization", "memory_utilization"},
		})
	}

	sortInsights(insights)
	return insights
}

func (a *Analyzer) analyzeCPU(ctx models.AnalysisContext) []models.Insight {
	var insights []models.Insight

	switch {
	case ctx.CPUUtilization >= a.thresholds.CPU.Critical:
		insights = append(insights, models.Insight{
			Title:           "Critical CPU Utilization",
			Component:       "cpu",
			Severity:        models.SeverityCritical,
			Observation:     fmt.Sprintf("CPU utilization is at %.1f%%, indicating a severe performance bottleneck", ctx.CPUUtilization),
			RootCause:       "CPU demand exceeds available capacity",
			ImmediateAction: "Identify and throttle the heaviest CPU consumers",
			Recommendations: []string{
				"Identify and optimize CPU-intensive processes",
				"Consider scaling horizontally or vertically",
				"Check for runaway processes or infinite loops",
			},
			Metrics: []string{"cpu_utilization"},
		})
	case ctx.CPUUtilization >= a.thresholds.CPU.Warning:
		insights = append(insights, models.Insight{
			Title:           "High CPU Utilization",
			Component:       "cpu",
			Severity:        models.SeverityHigh,
			Observation:     fmt.Sprintf("CPU utilization is at %.1f%%, approaching capacity limits", ctx.CPUUtilization),
			RootCause:       "Sustained CPU demand near capacity",
			ImmediateAction: "Investigate the top CPU consumers before saturation sets in",
			Recommendations: []string{
				"Monitor CPU trends closely",
				"Investigate periodic CPU spikes",
				"Plan capacity upgrades if the trend continues",
			},
			Metrics: []string{"cpu_utilization"},
		})
	}

	// Saturation: run-queue pressure independent of raw utilization.
	if ctx.CPUSaturation >= a.thresholds.CPU.Warning {
		sev := models.SeverityHigh
		if ctx.CPUSaturation >= a.thresholds.CPU.Critical {
			sev = models.SeverityCritical
		}
		insights = append(insights, models.Insight{
			Title:           "CPU Run Queue Saturation",
			Component:       "cpu",
			Severity:        sev,
			Observation:     fmt.Sprintf("Run queue pressure at %.1f%% of core capacity (load1 %.2f on %d cores)", ctx.CPUSaturation, ctx.LoadAverage1, ctx.CPUCount),
			RootCause:       "More runnable threads than cores can service",
			ImmediateAction: "Reduce concurrency or redistribute load across hosts",
			Recommendations: []string{
				"Check for thread pools sized beyond core count",
				"Profile scheduler latency for affected services",
			},
			Metrics: []string{"cpu_saturation", "load_average_1"},
		})
	}

	return insights
}

func (a *Analyzer) analyzeMemory(ctx models.AnalysisContext) []models.Insight {
	var insights []models.Insight

	switch {
	case ctx.MemoryUtilization >= a.thresholds.Memory.Critical:
		insights = append(insights, models.Insight{
			Title:           "Critical Memory Utilization",
			Component:       "memory",
			Severity:        models.SeverityCritical,
			Observation:     fmt.Sprintf("Memory utilization is at %.1f%%, the system may start swapping", ctx.MemoryUtilization),
			RootCause:       "Resident memory demand exceeds physical capacity",
			ImmediateAction: "Free memory by terminating or restarting the heaviest consumers",
			Recommendations: []string{
				"Add more RAM to the system",
				"Optimize application memory usage",
				"Identify memory leaks in long-running processes",
			},
			Metrics: []string{"memory_utilization"},
		})
	case ctx.MemoryUtilization >= a.thresholds.Memory.Warning:
		insights = append(insights, models.Insight{
			Title:           "High Memory Utilization",
			Component:       "memory",
			Severity:        models.SeverityHigh,
			Observation:     fmt.Sprintf("Memory utilization is at %.1f%%, approaching critical levels", ctx.MemoryUtilization),
			RootCause:       "Memory demand trending toward capacity",
			ImmediateAction: "Review memory growth of the largest processes",
			Recommendations: []string{
				"Monitor memory usage trends",
				"Identify memory leaks in applications",
			},
			Metrics: []string{"memory_utilization"},
		})
	}

	if ctx.SwapUtilization >= a.thresholds.Memory.Warning {
		insights = append(insights, models.Insight{
			Title:           "Swap Pressure",
			Component:       "memory",
			Severity:        models.SeverityHigh,
			Observation:     fmt.Sprintf("Swap utilization is at %.1f%%, memory is saturated", ctx.SwapUtilization),
			RootCause:       "Working set no longer fits in physical memory",
			ImmediateAction: "Identify processes being swapped and reduce memory footprint",
			Metrics:         []string{"swap_utilization"},
		})
	}

	return insights
}

func (a *Analyzer) analyzeDisk(ctx models.AnalysisContext) []models.Insight {
	var insights []models.Insight

	for _, device := range sortedKeys(ctx.DiskUtilization) {
		util := ctx.DiskUtilization[device]
		switch {
		case util >= a.thresholds.Disk.Critical:
			insights = append(insights, models.Insight{
				Title:           fmt.Sprintf("Critical Disk Utilization on %s", device),
				Component:       "disk",
				Severity:        models.SeverityCritical,
				Observation:     fmt.Sprintf("Disk %s utilization is at %.1f%%", device, util),
				RootCause:       "Disk capacity nearly exhausted",
				ImmediateAction: fmt.Sprintf("Clean up disk space on %s", device),
				Recommendations: []string{
					"Archive old files to external storage",
					"Consider disk expansion",
				},
				Metrics: []string{fmt.Sprintf("disk_utilization_%s", device)},
			})
		case util >= a.thresholds.Disk.Warning:
			insights = append(insights, models.Insight{
				Title:           fmt.Sprintf("High Disk Utilization on %s", device),
				Component:       "disk",
				Severity:        models.SeverityMedium,
				Observation:     fmt.Sprintf("Disk %s utilization is at %.1f%%", device, util),
				RootCause:       "Disk usage trending toward capacity",
				ImmediateAction: fmt.Sprintf("Review growth rate on %s and plan cleanup", device),
				Metrics:         []string{fmt.Sprintf("disk_utilization_%s", device)},
			})
		}
	}

	return insights
}

func (a *Analyzer) analyzeNetwork(ctx models.AnalysisContext) []models.Insight {
	var insights []models.Insight

	for _, iface := range sortedKeys(ctx.NetworkUtilization) {
		util := ctx.NetworkUtilization[iface]
		if util >= a.thresholds.Network.Critical {
			insights = append(insights, models.Insight{
				Title:           fmt.Sprintf("Critical Network Utilization on %s", iface),
				Component:       "network",
				Severity:        models.SeverityCritical,
				Observation:     fmt.Sprintf("Network interface %s utilization is at %.1f%%", iface, util),
				RootCause:       "Interface bandwidth nearly exhausted",
				ImmediateAction: "Shift traffic away from the saturated interface",
				Recommendations: []string{
					"Optimize network traffic patterns",
					"Consider a bandwidth upgrade",
					"Implement traffic shaping or QoS",
				},
				Metrics: []string{fmt.Sprintf("network_utilization_%s", iface)},
			})
		}
	}

	if ctx.NetworkErrorRate > 0 {
		sev := models.SeverityMedium
		if ctx.NetworkErrorRate >= 10 {
			sev = models.SeverityHigh
		}
		insights = append(insights, models.Insight{
			Title:           "Network Errors Detected",
			Component:       "network",
			Severity:        sev,
			Observation:     fmt.Sprintf("Network error rate is %.2f/s across interfaces", ctx.NetworkErrorRate),
			RootCause:       "Packet errors or drops at the interface level",
			ImmediateAction: "Check interface counters, cabling, and driver state",
			Metrics:         []string{"network_error_rate"},
		})
	}

	return insights
}

// sortInsights orders findings severity descending, then by title for
// stability within a severity band.
func sortInsights(insights []models.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Severity.Rank() != insights[j].Severity.Rank() {
			return insights[i].Severity.Rank() > insights[j].Severity.Rank()
		}
		return insights[i].Title < insights[j].Title
	})
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
