package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/perfsight/perfsight/pkg/models"
)

// HostSampler reads live metrics from /proc and statfs. CPU utilization and
// network error rates need two observations, so Sample blocks for the
// configured interval between them.
type HostSampler struct {
	// ProcRoot is the procfs mount point, normally "/proc". Tests point it
	// at a fixture directory.
	ProcRoot string
	// Interval separates the two counter observations. Defaults to one second.
	Interval time.Duration
	// Mounts lists the filesystems to report disk utilization for.
	// Defaults to the root filesystem.
	Mounts []string
}

// NewHostSampler creates a HostSampler with standard paths.
func NewHostSampler() *HostSampler {
	return &HostSampler{
		ProcRoot: "/proc",
		Interval: time.Second,
		Mounts:   []string{"/"},
	}
}

// Sample takes one metrics snapshot of the local host.
func (h *HostSampler) Sample(ctx context.Context) (models.AnalysisContext, error) {
	interval := h.Interval
	if interval <= 0 {
		interval = time.Second
	}

	hostname, err := os.Hostname()
	if err != nil {
		return models.AnalysisContext{}, fmt.Errorf("reading hostname: %w", err)
	}

	busy1, total1, err := h.readCPUStat()
	if err != nil {
		return models.AnalysisContext{}, err
	}
	net1, err := h.readNetCounters()
	if err != nil {
		return models.AnalysisContext{}, err
	}

	select {
	case <-time.After(interval):
	case <-ctx.Done():
		return models.AnalysisContext{}, ctx.Err()
	}

	busy2, total2, err := h.readCPUStat()
	if err != nil {
		return models.AnalysisContext{}, err
	}
	net2, err := h.readNetCounters()
	if err != nil {
		return models.AnalysisContext{}, err
	}

	ac := models.AnalysisContext{
		Timestamp: time.Now().UTC(),
		Hostname:  hostname,
		CPUCount:  runtime.NumCPU(),
	}

	if delta := total2 - total1; delta > 0 {
		ac.CPUUtilization = 100 * float64(busy2-busy1) / float64(delta)
	}

	load1, running, procs, err := h.readLoadAvg()
	if err != nil {
		return models.AnalysisContext{}, err
	}
	ac.LoadAverage1 = load1
	ac.ProcessCount = procs
	// Run-queue pressure beyond available cores, as a fraction of capacity.
	if ac.CPUCount > 0 && running > ac.CPUCount {
		ac.CPUSaturation = 100 * float64(running-ac.CPUCount) / float64(ac.CPUCount)
	}

	memUtil, swapUtil, err := h.readMemInfo()
	if err != nil {
		return models.AnalysisContext{}, err
	}
	ac.MemoryUtilization = memUtil
	ac.SwapUtilization = swapUtil

	ac.DiskUtilization = h.readDiskUtilization()

	errDelta := (net2.errors + net2.drops) - (net1.errors + net1.drops)
	ac.NetworkErrorRate = float64(errDelta) / interval.Seconds()
	ac.NetworkUtilization = estimateNetUtilization(net1, net2, interval)

	return ac, nil
}

// readCPUStat returns cumulative busy and total jiffies from the aggregate
// cpu line of /proc/stat.
func (h *HostSampler) readCPUStat() (busy, total uint64, err error) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, "stat"))
	if err != nil {
		return 0, 0, fmt.Errorf("reading cpu stat: %w", err)
	}
	return parseCPUStat(string(data))
}

func parseCPUStat(content string) (busy, total uint64, err error) {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		var values []uint64
		for _, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("parsing cpu stat field %q: %w", f, err)
			}
			values = append(values, v)
		}
		for i, v := range values {
			total += v
			// Fields 3 (idle) and 4 (iowait) are not busy time.
			if i != 3 && i != 4 {
				busy += v
			}
		}
		return busy, total, nil
	}
	return 0, 0, fmt.Errorf("no aggregate cpu line in stat")
}

// readLoadAvg parses /proc/loadavg: load1, currently-running tasks, and
// total process count.
func (h *HostSampler) readLoadAvg() (load1 float64, running, procs int, err error) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, "loadavg"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading loadavg: %w", err)
	}
	return parseLoadAvg(string(data))
}

func parseLoadAvg(content string) (load1 float64, running, procs int, err error) {
	fields := strings.Fields(content)
	if len(fields) < 4 {
		return 0, 0, 0, fmt.Errorf("malformed loadavg: %q", content)
	}
	load1, err = strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parsing load1: %w", err)
	}
	ratio := strings.SplitN(fields[3], "/", 2)
	if len(ratio) != 2 {
		return 0, 0, 0, fmt.Errorf("malformed task ratio: %q", fields[3])
	}
	running, err = strconv.Atoi(ratio[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parsing running tasks: %w", err)
	}
	procs, err = strconv.Atoi(ratio[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parsing process count: %w", err)
	}
	return load1, running, procs, nil
}

// readMemInfo computes memory and swap used percentages from /proc/meminfo.
func (h *HostSampler) readMemInfo() (memUtil, swapUtil float64, err error) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, "meminfo"))
	if err != nil {
		return 0, 0, fmt.Errorf("reading meminfo: %w", err)
	}
	return parseMemInfo(string(data))
}

func parseMemInfo(content string) (memUtil, swapUtil float64, err error) {
	values := make(map[string]uint64)
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		values[key] = v
	}

	total, ok := values["MemTotal"]
	if !ok || total == 0 {
		return 0, 0, fmt.Errorf("meminfo missing MemTotal")
	}
	available := values["MemAvailable"]
	memUtil = 100 * float64(total-available) / float64(total)

	if swapTotal := values["SwapTotal"]; swapTotal > 0 {
		swapUtil = 100 * float64(swapTotal-values["SwapFree"]) / float64(swapTotal)
	}
	return memUtil, swapUtil, nil
}

// readDiskUtilization reports space-used percentages for the configured
// mounts. Unreadable mounts are skipped rather than failing the snapshot.
func (h *HostSampler) readDiskUtilization() map[string]float64 {
	out := make(map[string]float64, len(h.Mounts))
	for _, mount := range h.Mounts {
		var fs syscall.Statfs_t
		if err := syscall.Statfs(mount, &fs); err != nil || fs.Blocks == 0 {
			continue
		}
		used := fs.Blocks - fs.Bavail
		out[mount] = 100 * float64(used) / float64(fs.Blocks)
	}
	return out
}

// netCounters holds cumulative per-host network counters summed over
// physical interfaces.
type netCounters struct {
	perIface map[string]uint64 // rx+tx bytes
	errors   uint64
	drops    uint64
}

// readNetCounters parses /proc/net/dev, skipping loopback.
func (h *HostSampler) readNetCounters() (netCounters, error) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, "net", "dev"))
	if err != nil {
		return netCounters{}, fmt.Errorf("reading net dev: %w", err)
	}
	return parseNetDev(string(data))
}

func parseNetDev(content string) (netCounters, error) {
	nc := netCounters{perIface: make(map[string]uint64)}
	for _, line := range strings.Split(content, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		iface := strings.TrimSpace(line[:idx])
		if iface == "lo" {
			continue
		}
		fields := strings.Fields(line[idx+1:])
		if len(fields) < 12 {
			continue
		}
		rxBytes, _ := strconv.ParseUint(fields[0], 10, 64)
		rxErrs, _ := strconv.ParseUint(fields[2], 10, 64)
		rxDrop, _ := strconv.ParseUint(fields[3], 10, 64)
		txBytes, _ := strconv.ParseUint(fields[8], 10, 64)
		txErrs, _ := strconv.ParseUint(fields[10], 10, 64)
		txDrop, _ := strconv.ParseUint(fields[11], 10, 64)

		nc.perIface[iface] = rxBytes + txBytes
		nc.errors += rxErrs + txErrs
		nc.drops += rxDrop + txDrop
	}
	return nc, nil
}

// assumedLinkBytesPerSec approximates a 1 Gbit link for utilization
// estimates when the real link speed is unknown.
const assumedLinkBytesPerSec = 125_000_000

// estimateNetUtilization derives per-interface bandwidth-used percentages
// from two counter observations.
func estimateNetUtilization(before, after netCounters, interval time.Duration) map[string]float64 {
	out := make(map[string]float64, len(after.perIface))
	for iface, b2 := range after.perIface {
		b1 := before.perIface[iface]
		if b2 <= b1 {
			out[iface] = 0
			continue
		}
		rate := float64(b2-b1) / interval.Seconds()
		pct := 100 * rate / assumedLinkBytesPerSec
		if pct > 100 {
			pct = 100
		}
		out[iface] = pct
	}
	return out
}
