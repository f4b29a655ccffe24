// Package container implements container awareness: detecting
// whether the host is containerized, reading cgroup v2 then v1 limits, and
// computing the effective-CPU factor used to scale reported CPU counts and
// utilization.
package container

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	cgroupsv3 "github.com/containerd/cgroups/v3"

	"github.com/all-smi/all-smi/internal/log"
)

const (
	cgroupRoot = "/sys/fs/cgroup"
	procSelfCg = "/proc/self/cgroup"
)

// containerMarkers are cgroup path substrings that indicate the host is
// running inside a container.
var containerMarkers = []string{"/docker/", "/kubepods/", "/lxc/", "/containerd/", "/podman/"}

// Limits is the set of cgroup-derived resource limits relevant to host
// metrics scaling.
type Limits struct {
	Containerized bool

	// CPU
	QuotaUs   int64 // cpu.max / cpu.cfs_quota_us; -1 or 0 means unset/unlimited
	PeriodUs  int64 // cpu.max / cpu.cfs_period_us
	Shares    int64 // cpu.weight*1024/100, or cpu.shares; 0 means unset
	CPUSet    []int // cpuset.cpus.effective / cpuset.cpus, parsed to singleton indices

	// Memory
	MemoryLimitBytes uint64 // 0 means unset/unlimited
	MemoryUsedBytes  uint64
}

// Detect probes for containerization and, if containerized, reads cgroup
// v2 then v1 limits. It never returns an error: an unreadable or absent
// cgroup file simply leaves the corresponding Limits field at its zero
// value (treated as "unset" by EffectiveCPUs).
func Detect(totalCores int) Limits {
	if !isContainerized() {
		return Limits{Containerized: false}
	}

	l := Limits{Containerized: true}

	switch cgroupsv3.Mode() {
	case cgroupsv3.Unified:
		readCgroupV2(&l)
	default:
		readCgroupV1(&l)
	}

	log.Debugf("container detected: quota=%d period=%d shares=%d cpuset=%v", l.QuotaUs, l.PeriodUs, l.Shares, l.CPUSet)
	return l
}

func isContainerized() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	data, err := os.ReadFile(procSelfCg)
	if err != nil {
		return false
	}
	content := string(data)
	for _, marker := range containerMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

func readCgroupV2(l *Limits) {
	if v := readFileString(filepath.Join(cgroupRoot, "cpu.max")); v != "" {
		fields := strings.Fields(v)
		if len(fields) == 2 {
			if fields[0] == "max" {
				l.QuotaUs = -1
			} else {
				l.QuotaUs = parseInt64(fields[0])
			}
			l.PeriodUs = parseInt64(fields[1])
		}
	}

	if v := readFileString(filepath.Join(cgroupRoot, "cpu.weight")); v != "" {
		weight := parseInt64(v)
		if weight > 0 {
			l.Shares = weight * 1024 / 100
		}
	}

	if v := readFileString(filepath.Join(cgroupRoot, "cpuset.cpus.effective")); v != "" {
		if set, ok := ParseCPUSet(v); ok {
			l.CPUSet = set
		}
	}

	if v := readFileString(filepath.Join(cgroupRoot, "memory.max")); v != "" && v != "max" {
		l.MemoryLimitBytes = uint64(parseInt64(v))
	}
	if v := readFileString(filepath.Join(cgroupRoot, "memory.current")); v != "" {
		l.MemoryUsedBytes = uint64(parseInt64(v))
	}
}

func readCgroupV1(l *Limits) {
	cpuBase := filepath.Join(cgroupRoot, "cpu")
	if v := readFileString(filepath.Join(cpuBase, "cpu.cfs_quota_us")); v != "" {
		l.QuotaUs = parseInt64(v)
	}
	if v := readFileString(filepath.Join(cpuBase, "cpu.cfs_period_us")); v != "" {
		l.PeriodUs = parseInt64(v)
	}
	if v := readFileString(filepath.Join(cpuBase, "cpu.shares")); v != "" {
		l.Shares = parseInt64(v)
	}

	if v := readFileString(filepath.Join(cgroupRoot, "cpuset", "cpuset.cpus")); v != "" {
		if set, ok := ParseCPUSet(v); ok {
			l.CPUSet = set
		}
	}

	memBase := filepath.Join(cgroupRoot, "memory")
	if v := readFileString(filepath.Join(memBase, "memory.limit_in_bytes")); v != "" {
		// cgroup v1 reports an enormous sentinel for "unlimited".
		if n := parseInt64(v); n > 0 && n < 1<<62 {
			l.MemoryLimitBytes = uint64(n)
		}
	}
	if v := readFileString(filepath.Join(memBase, "memory.usage_in_bytes")); v != "" {
		l.MemoryUsedBytes = uint64(parseInt64(v))
	}
}

func readFileString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseCPUSet parses a cgroup cpuset string such as "0-2,5,7-8" into the
// list of singleton CPU indices [0,1,2,5,7,8], in the order the input
// lists them; the result is not sorted. Empty input returns
// (nil, false); any malformed range returns (nil, false) rather than
// panicking.
func ParseCPUSet(s string) ([]int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		if idx := strings.IndexByte(part, '-'); idx >= 0 {
			lo, err1 := strconv.Atoi(part[:idx])
			hi, err2 := strconv.Atoi(part[idx+1:])
			if err1 != nil || err2 != nil || lo > hi {
				return nil, false
			}
			for i := lo; i <= hi; i++ {
				out = append(out, i)
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, false
			}
			out = append(out, n)
		}
	}
	return out, true
}

// EffectiveCPUs computes the effective CPU count:
//
//	min(quota/period if both positive else ∞,
//	    shares/1024 · total if shares positive,
//	    |cpuset| if set,
//	    total otherwise)
func EffectiveCPUs(l Limits, total int) float64 {
	if !l.Containerized {
		return float64(total)
	}

	effective := float64(total)

	if l.QuotaUs > 0 && l.PeriodUs > 0 {
		q := float64(l.QuotaUs) / float64(l.PeriodUs)
		if q < effective {
			effective = q
		}
	}

	if l.Shares > 0 {
		s := float64(l.Shares) / 1024.0 * float64(total)
		if s < effective {
			effective = s
		}
	}

	if len(l.CPUSet) > 0 {
		c := float64(len(l.CPUSet))
		if c < effective {
			effective = c
		}
	}

	return effective
}

// ScaleUtilization rescales a raw utilization percentage (0-100, measured
// against `total` cores worth of active time) so that 100% represents
// saturation of the effective CPU set, capped at 100.
func ScaleUtilization(rawPercent float64, effective float64, total int) float64 {
	if total <= 0 || effective <= 0 {
		return rawPercent
	}
	scaled := rawPercent * (effective / float64(total))
	if scaled > 100 {
		scaled = 100
	}
	return scaled
}
