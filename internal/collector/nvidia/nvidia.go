// Package nvidia implements the NVIDIA GPU reader: NVML when the
// driver library is present, falling back to parsing nvidia-smi's CSV
// output when it is not. The NVML-unavailability failure is surfaced
// exactly once per process lifetime via internal/notify.
package nvidia

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
	"github.com/all-smi/all-smi/internal/notify"
)

const vendorSlot = "nvidia"

// staticInfo is the immutable portion of a device record, captured on
// first successful read and reused on every later tick.
type staticInfo struct {
	name             string
	memoryTotalBytes uint64
	detail           map[string]string
}

// Reader implements collector.DeviceReader and collector.ProcessReader
// for NVIDIA GPUs.
type Reader struct {
	hostname string
	instance string

	mu         sync.Mutex
	nvmlOK     bool
	nvmlInit   sync.Once
	staticInfo map[string]staticInfo // keyed by uuid
}

// New creates an NVIDIA reader. NVML initialization is attempted lazily
// on the first ReadDevices call, not at construction, so that
// constructing the registry never blocks or fails on a machine without
// an NVIDIA driver.
func New(hostname, instance string) *Reader {
	return &Reader{hostname: hostname, instance: instance, staticInfo: make(map[string]staticInfo)}
}

func (r *Reader) Name() string { return "nvidia" }

func (r *Reader) ensureNVML() bool {
	r.nvmlInit.Do(func() {
		ret := nvml.Init()
		r.mu.Lock()
		r.nvmlOK = ret == nvml.SUCCESS
		r.mu.Unlock()
		if ret != nvml.SUCCESS {
			notify.Default.Once(vendorSlot, fmt.Sprintf("NVML unavailable (%s); falling back to nvidia-smi", nvml.ErrorString(ret)))
			log.Warnf("nvidia: NVML init failed: %s", nvml.ErrorString(ret))
		}
	})
	r.mu.Lock()
	ok := r.nvmlOK
	r.mu.Unlock()
	return ok
}

// ReadDevices returns one DeviceRecord per NVIDIA GPU. A read that fails
// for one device is skipped; it never aborts the rest of the fleet.
func (r *Reader) ReadDevices() ([]model.DeviceRecord, error) {
	if r.ensureNVML() {
		return r.readViaNVML()
	}
	return r.readViaSMI()
}

func (r *Reader) readViaNVML() ([]model.DeviceRecord, error) {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvidia: DeviceGetCount: %s", nvml.ErrorString(ret))
	}

	var out []model.DeviceRecord
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}

		uuid, ret := dev.GetUUID()
		if ret != nvml.SUCCESS {
			continue
		}

		static := r.staticFor(dev, uuid)

		rec := model.DeviceRecord{
			UUID:             uuid,
			Name:             static.name,
			DeviceType:       model.DeviceTypeGPU,
			Hostname:         r.hostname,
			Instance:         r.instance,
			Index:            i,
			MemoryTotalBytes: static.memoryTotalBytes,
			Detail:           static.detail,
		}

		if util, ret := dev.GetUtilizationRates(); ret == nvml.SUCCESS {
			rec.Utilization = float64(util.Gpu)
		}
		if mem, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
			rec.MemoryUsedBytes = mem.Used
		}
		if temp, ret := dev.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			rec.TemperatureCelsius = temp
		}
		if power, ret := dev.GetPowerUsage(); ret == nvml.SUCCESS {
			rec.PowerWatts = float64(power) / 1000
		}
		if clock, ret := dev.GetClockInfo(nvml.CLOCK_GRAPHICS); ret == nvml.SUCCESS {
			rec.FrequencyMHz = clock
		}

		out = append(out, rec)
	}
	return out, nil
}

// staticFor returns the cached static info for uuid, populating it from
// a live NVML read on first use.
func (r *Reader) staticFor(dev nvml.Device, uuid string) staticInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.staticInfo[uuid]; ok {
		return s
	}

	s := staticInfo{detail: make(map[string]string)}
	if name, ret := dev.GetName(); ret == nvml.SUCCESS {
		s.name = name
	}
	if mem, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
		s.memoryTotalBytes = mem.Total
	}
	if brand, ret := dev.GetBrand(); ret == nvml.SUCCESS {
		s.detail["brand"] = brandString(brand)
	}
	if gen, ret := dev.GetCurrPcieLinkGeneration(); ret == nvml.SUCCESS {
		s.detail["pcie_link_gen"] = strconv.Itoa(gen)
	}
	if width, ret := dev.GetCurrPcieLinkWidth(); ret == nvml.SUCCESS {
		s.detail["pcie_link_width"] = strconv.Itoa(width)
	}
	if mode, ret := dev.GetComputeMode(); ret == nvml.SUCCESS {
		s.detail["compute_mode"] = computeModeString(mode)
	}
	if current, _, ret := dev.GetEccMode(); ret == nvml.SUCCESS {
		s.detail["ecc_mode"] = eccModeString(current)
	}
	if version, ret := dev.GetVbiosVersion(); ret == nvml.SUCCESS {
		s.detail["vbios_version"] = version
	}

	r.staticInfo[uuid] = s
	return s
}

func brandString(b nvml.BrandType) string {
	switch b {
	case nvml.BRAND_TESLA:
		return "Tesla"
	case nvml.BRAND_QUADRO:
		return "Quadro"
	case nvml.BRAND_GEFORCE:
		return "GeForce"
	case nvml.BRAND_TITAN:
		return "Titan"
	default:
		return "Unknown"
	}
}

func computeModeString(m nvml.ComputeMode) string {
	switch m {
	case nvml.COMPUTEMODE_DEFAULT:
		return "Default"
	case nvml.COMPUTEMODE_EXCLUSIVE_PROCESS:
		return "ExclusiveProcess"
	case nvml.COMPUTEMODE_PROHIBITED:
		return "Prohibited"
	default:
		return "Unknown"
	}
}

func eccModeString(enabled nvml.EnableState) string {
	if enabled == nvml.FEATURE_ENABLED {
		return "enabled"
	}
	return "disabled"
}

// smiFields is the explicit --query-gpu field list the CSV fallback
// requests, in the order the CSV columns are emitted.
var smiFields = []string{
	"uuid", "name", "index", "utilization.gpu", "memory.used", "memory.total",
	"temperature.gpu", "power.draw", "clocks.current.graphics",
}

func (r *Reader) readViaSMI() ([]model.DeviceRecord, error) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu="+strings.Join(smiFields, ","),
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia: nvidia-smi: %w", err)
	}
	return parseSMIOutput(out, r.hostname, r.instance), nil
}

// parseSMIOutput parses the CSV body produced by the --query-gpu
// invocation above into DeviceRecords. Split out from readViaSMI so the
// parsing logic can be exercised without nvidia-smi present.
func parseSMIOutput(out []byte, hostname, instance string) []model.DeviceRecord {
	var records []model.DeviceRecord
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) != len(smiFields) {
			continue
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		index, _ := strconv.Atoi(cols[2])
		records = append(records, model.DeviceRecord{
			UUID:               cols[0],
			Name:               cols[1],
			DeviceType:         model.DeviceTypeGPU,
			Hostname:           hostname,
			Instance:           instance,
			Index:              index,
			Utilization:        smiFloat(cols[3]),
			MemoryUsedBytes:    uint64(smiFloat(cols[4]) * 1024 * 1024),
			MemoryTotalBytes:   uint64(smiFloat(cols[5]) * 1024 * 1024),
			TemperatureCelsius: uint32(smiFloat(cols[6])),
			PowerWatts:         smiFloat(cols[7]),
			FrequencyMHz:       uint32(smiFloat(cols[8])),
			Detail:             map[string]string{"collection_method": "nvidia-smi"},
		})
	}
	return records
}

// smiFloat parses one nvidia-smi CSV field, treating the literal
// "[N/A]" sentinel as zero.
func smiFloat(s string) float64 {
	if s == "[N/A]" || s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ReadProcesses returns the union of compute and graphics processes,
// de-duplicated by pid, when NVML is available. The CLI fallback has no
// equivalent process query and returns an empty list.
func (r *Reader) ReadProcesses() ([]model.ProcessRecord, error) {
	if !r.ensureNVML() {
		return nil, nil
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvidia: DeviceGetCount: %s", nvml.ErrorString(ret))
	}

	seen := make(map[uint32]bool)
	var out []model.ProcessRecord
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		uuid, _ := dev.GetUUID()

		compute, _ := dev.GetComputeRunningProcesses()
		graphics, _ := dev.GetGraphicsRunningProcesses()
		for _, p := range append(compute, graphics...) {
			if seen[p.Pid] {
				continue
			}
			seen[p.Pid] = true
			out = append(out, model.ProcessRecord{
				PID:             int32(p.Pid),
				DeviceIndex:     i,
				DeviceUUID:      uuid,
				UsedMemoryBytes: p.UsedGpuMemory,
			})
		}
	}
	return out, nil
}
