package collector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perfsight/perfsight/pkg/models"
)

func TestStaticSampler(t *testing.T) {
	want := models.AnalysisContext{Hostname: "web-01", CPUUtilization: 42}
	got, err := StaticSampler{Context: want}.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if got.Hostname != "web-01" || got.CPUUtilization != 42 {
		t.Errorf("Sample() = %+v, want %+v", got, want)
	}

	sentinel := errors.New("collector offline")
	if _, err := (StaticSampler{Err: sentinel}).Sample(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("Sample() error = %v, want %v", err, sentinel)
	}
}

func TestParseCPUStat(t *testing.T) {
	content := `cpu  100 0 50 800 50 0 0 0 0 0
cpu0 50 0 25 400 25 0 0 0 0 0
`
	busy, total, err := parseCPUStat(content)
	if err != nil {
		t.Fatalf("parseCPUStat() error = %v", err)
	}
	// busy excludes idle (800) and iowait (50)
	if busy != 150 {
		t.Errorf("busy = %d, want 150", busy)
	}
	if total != 1000 {
		t.Errorf("total = %d, want 1000", total)
	}
}

func TestParseCPUStatMalformed(t *testing.T) {
	if _, _, err := parseCPUStat("intr 12345\n"); err == nil {
		t.Error("expected error for stat without cpu line")
	}
}

func TestParseLoadAvg(t *testing.T) {
	load1, running, procs, err := parseLoadAvg("2.45 1.80 1.20 3/412 98765\n")
	if err != nil {
		t.Fatalf("parseLoadAvg() error = %v", err)
	}
	if load1 != 2.45 {
		t.Errorf("load1 = %v, want 2.45", load1)
	}
	if running != 3 {
		t.Errorf("running = %d, want 3", running)
	}
	if procs != 412 {
		t.Errorf("procs = %d, want 412", procs)
	}
}

func TestParseMemInfo(t *testing.T) {
	content := `MemTotal:       16000000 kB
MemFree:         2000000 kB
MemAvailable:    4000000 kB
SwapTotal:       8000000 kB
SwapFree:        6000000 kB
`
	memUtil, swapUtil, err := parseMemInfo(content)
	if err != nil {
		t.Fatalf("parseMemInfo() error = %v", err)
	}
	if memUtil != 75 {
		t.Errorf("memUtil = %v, want 75", memUtil)
	}
	if swapUtil != 25 {
		t.Errorf("swapUtil = %v, want 25", swapUtil)
	}
}

func TestParseMemInfoNoSwap(t *testing.T) {
	content := `MemTotal:       16000000 kB
MemAvailable:    8000000 kB
SwapTotal:             0 kB
SwapFree:              0 kB
`
	memUtil, swapUtil, err := parseMemInfo(content)
	if err != nil {
		t.Fatalf("parseMemInfo() error = %v", err)
	}
	if memUtil != 50 {
		t.Errorf("memUtil = %v, want 50", memUtil)
	}
	if swapUtil != 0 {
		t.Errorf("swapUtil = %v, want 0 with no swap configured", swapUtil)
	}
}

func TestParseNetDev(t *testing.T) {
	content := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1000000    5000    0    0    0     0          0         0  1000000    5000    0    0    0     0       0          0
  eth0: 5000000   10000    3    2    0     0          0         0  3000000    8000    1    4    0     0       0          0
`
	nc, err := parseNetDev(content)
	if err != nil {
		t.Fatalf("parseNetDev() error = %v", err)
	}
	if _, ok := nc.perIface["lo"]; ok {
		t.Error("loopback should be skipped")
	}
	if nc.perIface["eth0"] != 8000000 {
		t.Errorf("eth0 bytes = %d, want 8000000", nc.perIface["eth0"])
	}
	if nc.errors != 4 {
		t.Errorf("errors = %d, want 4", nc.errors)
	}
	if nc.drops != 6 {
		t.Errorf("drops = %d, want 6", nc.drops)
	}
}

func TestEstimateNetUtilization(t *testing.T) {
	before := netCounters{perIface: map[string]uint64{"eth0": 0}}
	after := netCounters{perIface: map[string]uint64{"eth0": 12_500_000}}

	out := estimateNetUtilization(before, after, time.Second)

	// 12.5 MB/s over an assumed 1 Gbit link = 10%
	if math.Abs(out["eth0"]-10) > 0.01 {
		t.Errorf("eth0 utilization = %v, want 10", out["eth0"])
	}
}

func TestHostSamplerFromFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	writeFixture("stat", "cpu  100 0 50 800 50 0 0 0 0 0\n")
	writeFixture("loadavg", "1.50 1.20 1.00 2/300 12345\n")
	writeFixture("meminfo", "MemTotal: 16000000 kB\nMemAvailable: 4000000 kB\nSwapTotal: 0 kB\nSwapFree: 0 kB\n")
	writeFixture("net/dev", "Inter-| Receive | Transmit\n face |bytes packets errs drop fifo frame compressed multicast|bytes packets errs drop fifo colls carrier compressed\n  eth0: 1000 10 0 0 0 0 0 0 2000 20 0 0 0 0 0 0\n")

	s := &HostSampler{ProcRoot: dir, Interval: 10 * time.Millisecond, Mounts: []string{dir}}
	ac, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	if ac.Hostname == "" {
		t.Error("hostname should be populated")
	}
	if ac.MemoryUtilization != 75 {
		t.Errorf("memory utilization = %v, want 75", ac.MemoryUtilization)
	}
	if ac.LoadAverage1 != 1.5 {
		t.Errorf("load1 = %v, want 1.5", ac.LoadAverage1)
	}
	if ac.ProcessCount != 300 {
		t.Errorf("process count = %d, want 300", ac.ProcessCount)
	}
	if len(ac.DiskUtilization) != 1 {
		t.Errorf("disk utilization entries = %d, want 1", len(ac.DiskUtilization))
	}
}

func TestHostSamplerCancellation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte("cpu 1 0 1 1 0 0 0 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "net"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "net", "dev"), []byte("  eth0: 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &HostSampler{ProcRoot: dir, Interval: time.Minute}
	if _, err := s.Sample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Sample() error = %v, want context.Canceled", err)
	}
}

func TestFileSampler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	content := `{
  "timestamp": "2025-06-01T12:00:00Z",
  "hostname": "db-02",
  "cpu_utilization": 88.5,
  "memory_utilization": 72,
  "disk_utilization": {"/dev/sda1": 91}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ac, err := FileSampler{Path: path}.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if ac.Hostname != "db-02" {
		t.Errorf("hostname = %q, want db-02", ac.Hostname)
	}
	if ac.CPUUtilization != 88.5 {
		t.Errorf("cpu = %v, want 88.5", ac.CPUUtilization)
	}
	if ac.DiskUtilization["/dev/sda1"] != 91 {
		t.Errorf("disk = %v, want 91", ac.DiskUtilization["/dev/sda1"])
	}
}

func TestFileSamplerErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := (FileSampler{Path: filepath.Join(dir, "missing.json")}).Sample(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := (FileSampler{Path: bad}).Sample(context.Background()); err == nil {
		t.Error("expected error for malformed JSON")
	}

	noHost := filepath.Join(dir, "nohost.json")
	os.WriteFile(noHost, []byte(`{"cpu_utilization": 50}`), 0644)
	if _, err := (FileSampler{Path: noHost}).Sample(context.Background()); err == nil {
		t.Error("expected error for snapshot without hostname")
	}
}
