package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AnalysisContext is an immutable snapshot of host metrics that is the sole
// input to one orchestration run. It is never mutated after construction and
// is safe to share by value across concurrent agent calls.
type AnalysisContext struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// Hostname identifies the sampled host.
	Hostname string `json:"hostname"`

	// CPUUtilization is the overall CPU busy percentage (0-100).
	CPUUtilization float64 `json:"cpu_utilization"`
	// CPUSaturation is run-queue pressure as a percentage of core capacity.
	CPUSaturation float64 `json:"cpu_saturation"`
	// LoadAverage1 is the 1-minute load average.
	LoadAverage1 float64 `json:"load_average_1"`
	// CPUCount is the number of logical cores.
	CPUCount int `json:"cpu_count"`

	// MemoryUtilization is used memory as a percentage of total (0-100).
	MemoryUtilization float64 `json:"memory_utilization"`
	// SwapUtilization is used swap as a percentage of total (0-100).
	SwapUtilization float64 `json:"swap_utilization"`

	// DiskUtilization maps device name to space-used percentage.
	DiskUtilization map[string]float64 `json:"disk_utilization,omitempty"`
	// NetworkUtilization maps interface name to bandwidth-used percentage.
	NetworkUtilization map[string]float64 `json:"network_utilization,omitempty"`
	// NetworkErrorRate is errors+drops per second across all interfaces.
	NetworkErrorRate float64 `json:"network_error_rate"`

	// ProcessCount is the number of running processes.
	ProcessCount int `json:"process_count"`
}

// Fingerprint returns a deterministic hash of the context fields, used as
// the single-flight cache key. Map fields are encoded in sorted key order so
// identical snapshots always produce identical fingerprints.
func (c AnalysisContext) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s|ts=%d|cpu=%.2f|cpusat=%.2f|load1=%.2f|cores=%d|mem=%.2f|swap=%.2f|neterr=%.4f|procs=%d",
		c.Hostname, c.Timestamp.Unix(), c.CPUUtilization, c.CPUSaturation, c.LoadAverage1,
		c.CPUCount, c.MemoryUtilization, c.SwapUtilization, c.NetworkErrorRate, c.ProcessCount)
	writeSortedMap(&b, "disk", c.DiskUtilization)
	writeSortedMap(&b, "net", c.NetworkUtilization)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeSortedMap appends map entries in sorted key order for stable hashing.
func writeSortedMap(b *strings.Builder, prefix string, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "|%s.%s=%.2f", prefix, k, m[k])
	}
}

// Summary renders the snapshot as compact prose for agent prompts.
func (c AnalysisContext) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Host %s at %s:\n", c.Hostname, c.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- CPU: %.1f%% utilized, %.1f%% saturated (load1 %.2f on %d cores)\n",
		c.CPUUtilization, c.CPUSaturation, c.LoadAverage1, c.CPUCount)
	fmt.Fprintf(&b, "- Memory: %.1f%% utilized, swap %.1f%%\n", c.MemoryUtilization, c.SwapUtilization)
	for _, k := range sortedKeys(c.DiskUtilization) {
		fmt.Fprintf(&b, "- Disk %s: %.1f%% utilized\n", k, c.DiskUtilization[k])
	}
	for _, k := range sortedKeys(c.NetworkUtilization) {
		fmt.Fprintf(&b, "- Network %s: %.1f%% utilized\n", k, c.NetworkUtilization[k])
	}
	fmt.Fprintf(&b, "- Network error rate: %.2f/s\n", c.NetworkErrorRate)
	fmt.Fprintf(&b, "- Processes: %d\n", c.ProcessCount)
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
