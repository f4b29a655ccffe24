package collector

import (
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/all-smi/all-smi/internal/model"
)

// GaudiReader shells out to hl-smi in CSV mode, the same
// explicit-field-list discipline used by the NVIDIA CLI fallback.
type GaudiReader struct {
	hostname string
	instance string
}

func NewGaudiReader(hostname, instance string) *GaudiReader {
	return &GaudiReader{hostname: hostname, instance: instance}
}

func (g *GaudiReader) Name() string { return "gaudi" }

var gaudiFields = []string{"uuid", "name", "index", "utilization.aip", "memory.used", "memory.total", "temperature.aip", "power.draw"}

func (g *GaudiReader) ReadDevices() ([]model.DeviceRecord, error) {
	out, err := exec.Command("hl-smi",
		"--query-aip="+strings.Join(gaudiFields, ","),
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("gaudi: %w: %v", ErrScrapeFailed, err)
	}
	return parseGaudiCSV(out, g.hostname, g.instance)
}

func parseGaudiCSV(out []byte, hostname, instance string) ([]model.DeviceRecord, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(string(out))))
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("gaudi: parse: %w", err)
	}

	var records []model.DeviceRecord
	for _, cols := range rows {
		if len(cols) != len(gaudiFields) {
			continue
		}
		index, _ := strconv.Atoi(cols[2])
		records = append(records, model.DeviceRecord{
			UUID:               cols[0],
			Name:               cols[1],
			DeviceType:         model.DeviceTypeNPU,
			Hostname:           hostname,
			Instance:           instance,
			Index:              index,
			Utilization:        gaudiFloat(cols[3]),
			MemoryUsedBytes:    uint64(gaudiFloat(cols[4]) * 1024 * 1024),
			MemoryTotalBytes:   uint64(gaudiFloat(cols[5]) * 1024 * 1024),
			TemperatureCelsius: uint32(gaudiFloat(cols[6])),
			PowerWatts:         gaudiFloat(cols[7]),
			Detail:             map[string]string{"collection_method": "hl-smi"},
		})
	}
	return records, nil
}

func gaudiFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
