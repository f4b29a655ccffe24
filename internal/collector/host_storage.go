package collector

import (
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/all-smi/all-smi/internal/filter"
	"github.com/all-smi/all-smi/internal/model"
)

// storageFilters compiles the default fstype/mountpoint filters once at
// startup. The patterns are static; compilation cannot fail.
var storageFilters = func() map[string]filter.Filter {
	f := filter.New()
	filter.DefaultFilters(f)
	_ = filter.CompileFilters(f)
	return f
}()

// ReadStorage reports one row per mounted filesystem, skipping
// pseudo-filesystems, filtered mount points and any mount point
// gopsutil cannot stat.
func (h *HostCollector) ReadStorage() ([]model.StorageRecord, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}

	fstype := storageFilters["storage/fstype"]
	mountpoint := storageFilters["storage/mountpoint"]

	var out []model.StorageRecord
	for i, p := range partitions {
		if !fstype.Pass(p.Fstype) || !mountpoint.Pass(p.Mountpoint) {
			continue
		}
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		out = append(out, model.StorageRecord{
			Hostname:       h.hostname,
			Index:          i,
			MountPoint:     p.Mountpoint,
			TotalBytes:     usage.Total,
			AvailableBytes: usage.Free,
		})
	}
	return out, nil
}
