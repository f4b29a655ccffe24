package collector

import (
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/all-smi/all-smi/internal/container"
	"github.com/all-smi/all-smi/internal/model"
)

// HostCollector reads CPU, memory and storage telemetry via gopsutil,
// scaling the reported CPU figures by the cgroup effective-CPU factor
// when running inside a container.
type HostCollector struct {
	hostname string
	instance string
}

// NewHostCollector creates a HostCollector bound to the local machine's
// hostname, with instance formatted as "hostname:port" for the
// currently configured API port.
func NewHostCollector(port int) (*HostCollector, error) {
	name, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	return &HostCollector{hostname: name, instance: instanceFor(name, port)}, nil
}

func instanceFor(hostname string, port int) string {
	return hostname + ":" + strconv.Itoa(port)
}

func (h *HostCollector) Name() string { return "host" }

// Identity returns the hostname/instance pair every local record is
// stamped with.
func (h *HostCollector) Identity() (string, string) { return h.hostname, h.instance }

// ReadCPU reports overall, per-socket and per-core utilization plus
// static identity fields. On a containerized Linux host, CoreCount and
// Utilization are scaled by the effective-CPU factor from
// internal/container.
func (h *HostCollector) ReadCPU() ([]model.CpuRecord, error) {
	totalCores := runtime.NumCPU()

	overallPct, err := cpu.Percent(0, false)
	if err != nil {
		return nil, err
	}
	perCorePct, err := cpu.Percent(0, true)
	if err != nil {
		return nil, err
	}

	infos, err := cpu.Info()
	if err != nil {
		return nil, err
	}

	rec := model.CpuRecord{
		Hostname:    h.hostname,
		Instance:    h.instance,
		CoreCount:   totalCores,
		SocketCount: 1,
		ThreadCount: totalCores,
	}
	if len(infos) > 0 {
		rec.Model = infos[0].ModelName
		rec.BaseMHz = uint32(infos[0].Mhz)
		rec.MaxMHz = uint32(infos[0].Mhz)
		rec.CacheMiB = float64(infos[0].CacheSize) / 1024
		rec.Platform = platformFromModel(infos[0].VendorID)
	}
	if hi, err := host.Info(); err == nil {
		rec.Architecture = hi.KernelArch
	}
	if len(overallPct) > 0 {
		rec.Utilization = overallPct[0]
	}

	socket := model.SocketRecord{Index: 0, Utilization: rec.Utilization}
	for i, pct := range perCorePct {
		socket.Cores = append(socket.Cores, model.CoreUtilization{
			Index: i, Utilization: pct, Type: model.CoreTypeStandard,
		})
	}
	rec.Sockets = []model.SocketRecord{socket}

	if limits := container.Detect(totalCores); limits.Containerized {
		effective := container.EffectiveCPUs(limits, totalCores)
		rec.EffectiveCPUs = effective
		rec.ContainerScaled = true
		rec.CoreCount = int(math.Ceil(effective))
		rec.Utilization = container.ScaleUtilization(rec.Utilization, effective, totalCores)
		// Per-socket and per-core figures reflect the same scaling so
		// 100% means saturation of the effective set everywhere.
		for i := range rec.Sockets {
			rec.Sockets[i].Utilization = container.ScaleUtilization(rec.Sockets[i].Utilization, effective, totalCores)
			for j := range rec.Sockets[i].Cores {
				rec.Sockets[i].Cores[j].Utilization = container.ScaleUtilization(rec.Sockets[i].Cores[j].Utilization, effective, totalCores)
			}
		}
	}

	return []model.CpuRecord{rec}, nil
}

func platformFromModel(vendorID string) model.CPUPlatform {
	switch {
	case runtime.GOARCH == "arm64" && runtime.GOOS == "darwin":
		return model.CPUPlatformApple
	case vendorID == "GenuineIntel":
		return model.CPUPlatformIntel
	case vendorID == "AuthenticAMD":
		return model.CPUPlatformAMD
	case runtime.GOARCH == "arm64" || runtime.GOARCH == "arm":
		return model.CPUPlatformARM
	default:
		return model.CPUPlatformOther
	}
}
