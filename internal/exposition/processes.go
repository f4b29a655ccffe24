package exposition

import (
	"strconv"

	"github.com/all-smi/all-smi/internal/model"
)

// WriteProcesses emits per-process device usage, only produced when the
// operator asked for process lists with --processes. The family is
// absent entirely otherwise.
func WriteProcesses(b *Builder, procs []model.ProcessRecord) {
	if len(procs) == 0 {
		return
	}

	b.Help(namePrefix+"process_memory_used_bytes", "Device memory used by the process, in bytes.")
	b.Type(namePrefix+"process_memory_used_bytes", Gauge)
	b.Help(namePrefix+"process_cpu_percent", "Host CPU usage of the process, in percent.")
	b.Type(namePrefix+"process_cpu_percent", Gauge)
	b.Help(namePrefix+"process_rss_bytes", "Resident set size of the process, in bytes.")
	b.Type(namePrefix+"process_rss_bytes", Gauge)

	for _, p := range procs {
		labels := []Label{
			{Key: "pid", Value: strconv.FormatInt(int64(p.PID), 10)},
			{Key: "process_name", Value: p.ProcessName},
			{Key: "uuid", Value: p.DeviceUUID},
			{Key: "index", Value: strconv.Itoa(p.DeviceIndex)},
		}
		b.Metric(namePrefix+"process_memory_used_bytes", labels, float64(p.UsedMemoryBytes))
		b.Metric(namePrefix+"process_cpu_percent", labels, p.CPUPercent)
		b.Metric(namePrefix+"process_rss_bytes", labels, float64(p.RSSBytes))
	}
}
