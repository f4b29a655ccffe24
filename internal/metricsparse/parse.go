// Package metricsparse implements the inverse of internal/exposition
//: reconstructing DeviceRecord/CpuRecord/MemoryRecord/
// StorageRecord/ChassisRecord values from a peer's scraped Prometheus
// text body. It is deliberately a small line-oriented scanner rather
// than a full expfmt.TextParser, because the wire contract this
// package consumes is the one internal/exposition produces (stable
// label order, no comments other than HELP/TYPE, one sample per line)
// and a generic parser would need to tolerate far more than that.
package metricsparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/all-smi/all-smi/internal/model"
)

var sampleLine = regexp.MustCompile(`^([a-zA-Z_:][a-zA-Z0-9_:]*)\{([^}]*)\} ([0-9eE+\-.]+)$`)

// Result is everything reconstructed from one scrape body.
type Result struct {
	Devices []model.DeviceRecord
	CPUs    []model.CpuRecord
	Memory  []model.MemoryRecord
	Storage []model.StorageRecord
	Chassis []model.ChassisRecord
}

// workspace accumulates partial records keyed by their natural identity
// while the body is scanned line by line, since a device's fields are
// spread across many sample lines.
type workspace struct {
	devices map[string]*model.DeviceRecord // key: uuid
	cpus    map[string]*model.CpuRecord    // key: hostname\x00instance
	mems    map[string]*model.MemoryRecord
	storage map[string]*model.StorageRecord // key: hostname\x00mount_point\x00index
	chassis map[string]*model.ChassisRecord
}

func newWorkspace() *workspace {
	return &workspace{
		devices: make(map[string]*model.DeviceRecord),
		cpus:    make(map[string]*model.CpuRecord),
		mems:    make(map[string]*model.MemoryRecord),
		storage: make(map[string]*model.StorageRecord),
		chassis: make(map[string]*model.ChassisRecord),
	}
}

// Parse scans body and reconstructs the records it describes. Lines that
// do not match the sample grammar (comments, blank lines, malformed
// text) are skipped. Metric names not recognized by this package are
// ignored, which keeps the aggregator forward-compatible with peers
// running a newer exposition format.
func Parse(body string) Result {
	ws := newWorkspace()

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := sampleLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, labelStr, valueStr := m[1], m[2], m[3]
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			continue
		}
		suffix, ok := stripPrefix(name)
		if !ok {
			continue
		}
		labels := parseLabels(labelStr)
		dispatch(ws, suffix, labels, value)
	}

	return ws.result()
}

const namePrefix = "all_smi_"

func stripPrefix(name string) (string, bool) {
	if !strings.HasPrefix(name, namePrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, namePrefix), true
}

// parseLabels splits a Prometheus label-list body on ", " into
// key="value" pairs; quotes are stripped.
func parseLabels(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ", ") {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		key := part[:eq]
		val := strings.Trim(part[eq+1:], `"`)
		out[key] = val
	}
	return out
}

func (ws *workspace) result() Result {
	r := Result{}
	for _, d := range ws.devices {
		r.Devices = append(r.Devices, *d)
	}
	for _, c := range ws.cpus {
		r.CPUs = append(r.CPUs, *c)
	}
	for _, mm := range ws.mems {
		r.Memory = append(r.Memory, *mm)
	}
	for _, s := range ws.storage {
		r.Storage = append(r.Storage, *s)
	}
	for _, c := range ws.chassis {
		r.Chassis = append(r.Chassis, *c)
	}
	return r
}
