package exposition

import (
	"strconv"

	"github.com/all-smi/all-smi/internal/model"
)

// WriteCPU emits host CPU metric families.
func WriteCPU(b *Builder, cpus []model.CpuRecord) {
	for _, c := range cpus {
		base := []Label{{Key: "hostname", Value: c.Hostname}, {Key: "instance", Value: c.Instance}}

		b.Help(namePrefix+"cpu_utilization", "Overall CPU utilization percentage.")
		b.Type(namePrefix+"cpu_utilization", Gauge)
		b.Metric(namePrefix+"cpu_utilization", base, c.Utilization)

		b.Help(namePrefix+"cpu_socket_count", "Number of CPU sockets.")
		b.Type(namePrefix+"cpu_socket_count", Gauge)
		b.Metric(namePrefix+"cpu_socket_count", base, float64(c.SocketCount))

		b.Help(namePrefix+"cpu_core_count", "Number of CPU cores, scaled by the effective-CPU factor in containers.")
		b.Type(namePrefix+"cpu_core_count", Gauge)
		b.Metric(namePrefix+"cpu_core_count", base, float64(c.CoreCount))

		for _, s := range c.Sockets {
			socketLabels := append(append([]Label{}, base...), Label{Key: "socket", Value: strconv.Itoa(s.Index)})
			b.Help(namePrefix+"cpu_socket_utilization", "Per-socket CPU utilization percentage.")
			b.Type(namePrefix+"cpu_socket_utilization", Gauge)
			b.Metric(namePrefix+"cpu_socket_utilization", socketLabels, s.Utilization)

			for _, core := range s.Cores {
				coreLabels := append(append([]Label{}, socketLabels...),
					Label{Key: "core", Value: strconv.Itoa(core.Index)},
					Label{Key: "core_type", Value: string(core.Type)},
				)
				b.Help(namePrefix+"cpu_core_utilization", "Per-core CPU utilization percentage.")
				b.Type(namePrefix+"cpu_core_utilization", Gauge)
				b.Metric(namePrefix+"cpu_core_utilization", coreLabels, core.Utilization)
			}
		}

		detail := map[string]string{
			"model":        c.Model,
			"architecture": c.Architecture,
			"platform":     string(c.Platform),
		}
		if c.ContainerScaled {
			detail["collection_method"] = "cgroup_scaled"
		}
		writeDetail(b, namePrefix+"cpu_info", base, detail)
	}
}

// WriteMemory emits host memory metric families.
func WriteMemory(b *Builder, mems []model.MemoryRecord) {
	b.Help(namePrefix+"memory_total_bytes", "Total host memory, in bytes (container limit when containerized).")
	b.Type(namePrefix+"memory_total_bytes", Gauge)
	b.Help(namePrefix+"memory_used_bytes", "Used host memory, in bytes.")
	b.Type(namePrefix+"memory_used_bytes", Gauge)
	b.Help(namePrefix+"memory_available_bytes", "Available host memory, in bytes.")
	b.Type(namePrefix+"memory_available_bytes", Gauge)
	b.Help(namePrefix+"memory_utilization", "Host memory utilization percentage.")
	b.Type(namePrefix+"memory_utilization", Gauge)

	for _, m := range mems {
		base := []Label{{Key: "hostname", Value: m.Hostname}, {Key: "instance", Value: m.Instance}}
		b.Metric(namePrefix+"memory_total_bytes", base, float64(m.TotalBytes))
		b.Metric(namePrefix+"memory_used_bytes", base, float64(m.UsedBytes))
		b.Metric(namePrefix+"memory_available_bytes", base, float64(m.AvailableBytes))
		b.Metric(namePrefix+"memory_utilization", base, m.Utilization)
	}
}

// WriteStorage emits host storage metric families.
func WriteStorage(b *Builder, rows []model.StorageRecord) {
	b.Help(namePrefix+"storage_total_bytes", "Total bytes on the mounted filesystem.")
	b.Type(namePrefix+"storage_total_bytes", Gauge)
	b.Help(namePrefix+"storage_available_bytes", "Available bytes on the mounted filesystem.")
	b.Type(namePrefix+"storage_available_bytes", Gauge)

	for _, s := range rows {
		labels := []Label{
			{Key: "hostname", Value: s.Hostname},
			{Key: "mount_point", Value: s.MountPoint},
			{Key: "index", Value: strconv.Itoa(s.Index)},
		}
		b.Metric(namePrefix+"storage_total_bytes", labels, float64(s.TotalBytes))
		b.Metric(namePrefix+"storage_available_bytes", labels, float64(s.AvailableBytes))
	}
}
