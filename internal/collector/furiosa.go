package collector

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/all-smi/all-smi/internal/model"
)

// FuriosaReader shells out to furiosactl in JSON mode. Unknown/extra
// JSON fields are ignored by encoding/json's default unmarshal
// behavior, so newer CLI output never breaks older readers.
type FuriosaReader struct {
	hostname string
	instance string
}

func NewFuriosaReader(hostname, instance string) *FuriosaReader {
	return &FuriosaReader{hostname: hostname, instance: instance}
}

func (f *FuriosaReader) Name() string { return "furiosa" }

type furiosactlDevice struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Index       int     `json:"index"`
	Utilization float64 `json:"utilization_percent"`
	MemoryUsed  uint64  `json:"memory_used_bytes"`
	MemoryTotal uint64  `json:"memory_total_bytes"`
	TempC       uint32  `json:"temperature_celsius"`
	PowerWatts  float64 `json:"power_watts"`
}

func (f *FuriosaReader) ReadDevices() ([]model.DeviceRecord, error) {
	out, err := exec.Command("furiosactl", "info", "--format", "json").Output()
	if err != nil {
		return nil, fmt.Errorf("furiosa: %w: %v", ErrScrapeFailed, err)
	}

	var devices []furiosactlDevice
	if err := json.Unmarshal(out, &devices); err != nil {
		return nil, fmt.Errorf("furiosa: parse: %w", err)
	}

	records := make([]model.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		records = append(records, model.DeviceRecord{
			UUID:               d.UUID,
			Name:               d.Name,
			DeviceType:         model.DeviceTypeNPU,
			Hostname:           f.hostname,
			Instance:           f.instance,
			Index:              d.Index,
			Utilization:        d.Utilization,
			MemoryUsedBytes:    d.MemoryUsed,
			MemoryTotalBytes:   d.MemoryTotal,
			TemperatureCelsius: d.TempC,
			PowerWatts:         d.PowerWatts,
			Detail:             map[string]string{"collection_method": "furiosactl"},
		})
	}
	return records, nil
}
