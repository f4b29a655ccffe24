package collector

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/all-smi/all-smi/internal/container"
	"github.com/all-smi/all-smi/internal/model"
)

// ReadMemory reports host memory totals via gopsutil, falling back to
// the cgroup-reported limit and usage when containerized.
func (h *HostCollector) ReadMemory() ([]model.MemoryRecord, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, err
	}

	rec := model.MemoryRecord{
		Hostname:       h.hostname,
		Instance:       h.instance,
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		AvailableBytes: vm.Available,
		CachedBytes:    vm.Cached,
		Utilization:    vm.UsedPercent,
	}

	if limits := container.Detect(0); limits.Containerized && limits.MemoryLimitBytes > 0 {
		rec.TotalBytes = limits.MemoryLimitBytes
		rec.UsedBytes = limits.MemoryUsedBytes
		rec.AvailableBytes = 0
		if limits.MemoryLimitBytes > limits.MemoryUsedBytes {
			rec.AvailableBytes = limits.MemoryLimitBytes - limits.MemoryUsedBytes
		}
		if limits.MemoryLimitBytes > 0 {
			rec.Utilization = float64(limits.MemoryUsedBytes) / float64(limits.MemoryLimitBytes) * 100
		}
	}

	return []model.MemoryRecord{rec}, nil
}
