package collector

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/all-smi/all-smi/internal/model"
)

// RebellionReader shells out to rbln-stat -j and maps its JSON schema to
// DeviceRecord. It is the cheapest reader: no caching, no
// persistent handle, one process spawn per cycle.
type RebellionReader struct {
	hostname string
	instance string
}

func NewRebellionReader(hostname, instance string) *RebellionReader {
	return &RebellionReader{hostname: hostname, instance: instance}
}

func (r *RebellionReader) Name() string { return "rebellion" }

type rblnStatDevice struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Index       int     `json:"npu_index"`
	Utilization float64 `json:"util"`
	MemoryUsed  uint64  `json:"memory_used_bytes"`
	MemoryTotal uint64  `json:"memory_total_bytes"`
	TempC       uint32  `json:"temperature"`
	PowerWatts  float64 `json:"power"`
}

type rblnStatOutput struct {
	Devices []rblnStatDevice `json:"devices"`
}

func (r *RebellionReader) ReadDevices() ([]model.DeviceRecord, error) {
	out, err := exec.Command("rbln-stat", "-j").Output()
	if err != nil {
		return nil, fmt.Errorf("rebellion: %w: %v", ErrScrapeFailed, err)
	}

	var parsed rblnStatOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("rebellion: parse: %w", err)
	}

	records := make([]model.DeviceRecord, 0, len(parsed.Devices))
	for _, d := range parsed.Devices {
		records = append(records, model.DeviceRecord{
			UUID:               d.UUID,
			Name:               d.Name,
			DeviceType:         model.DeviceTypeNPU,
			Hostname:           r.hostname,
			Instance:           r.instance,
			Index:              d.Index,
			Utilization:        d.Utilization,
			MemoryUsedBytes:    d.MemoryUsed,
			MemoryTotalBytes:   d.MemoryTotal,
			TemperatureCelsius: d.TempC,
			PowerWatts:         d.PowerWatts,
			Detail:             map[string]string{"collection_method": "rbln-stat"},
		})
	}
	return records, nil
}
