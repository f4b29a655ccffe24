package collector

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/all-smi/all-smi/internal/model"
)

// AMDReader shells out to rocm-smi in JSON mode. Static fields (model
// name, VRAM total, device id) are cached per card on the first
// successful read; a cache miss falls back to the values in the live
// read, so a wedged cache only costs the re-derivation.
type AMDReader struct {
	hostname string
	instance string

	mu     sync.Mutex
	static map[string]amdStatic // keyed by card uuid
}

type amdStatic struct {
	name     string
	memTotal uint64
	deviceID string
	vbios    string
	pcieBus  string
}

func NewAMDReader(hostname, instance string) *AMDReader {
	return &AMDReader{hostname: hostname, instance: instance, static: make(map[string]amdStatic)}
}

func (a *AMDReader) Name() string { return "amd" }

var rocmSmiArgs = []string{
	"--showid", "--showproductname", "--showuniqueid", "--showbus", "--showvbios",
	"--showuse", "--showmeminfo", "vram", "--showtemp", "--showpower", "--showgpuclocks",
	"--json",
}

func (a *AMDReader) ReadDevices() ([]model.DeviceRecord, error) {
	out, err := exec.Command("rocm-smi", rocmSmiArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("amd: %w: %v", ErrScrapeFailed, err)
	}
	return a.parse(out)
}

// rocm-smi emits one object per card keyed "card0", "card1", ... with
// free-form field names; fields are matched by substring so minor
// renames across ROCm releases do not break the reader.
func (a *AMDReader) parse(out []byte) ([]model.DeviceRecord, error) {
	var cards map[string]map[string]string
	if err := json.Unmarshal(out, &cards); err != nil {
		return nil, fmt.Errorf("amd: parse: %w", err)
	}

	names := make([]string, 0, len(cards))
	for name := range cards {
		if strings.HasPrefix(name, "card") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	a.mu.Lock()
	defer a.mu.Unlock()

	var records []model.DeviceRecord
	for _, card := range names {
		fields := cards[card]
		index, _ := strconv.Atoi(strings.TrimPrefix(card, "card"))

		uuid := amdField(fields, "Unique ID")
		if uuid == "" {
			uuid = "AMD-" + amdField(fields, "PCI Bus")
		}

		cached, ok := a.static[uuid]
		if !ok {
			cached = amdStatic{
				name:     amdField(fields, "Card series", "Card SKU", "Device Name"),
				memTotal: amdBytes(fields, "VRAM Total Memory"),
				deviceID: amdField(fields, "Device ID"),
				vbios:    amdField(fields, "VBIOS version"),
				pcieBus:  amdField(fields, "PCI Bus"),
			}
			a.static[uuid] = cached
		}

		detail := map[string]string{"collection_method": "rocm-smi"}
		if cached.deviceID != "" {
			detail["Device ID"] = cached.deviceID
		}
		if cached.vbios != "" {
			detail["VBIOS Version"] = cached.vbios
		}
		if cached.pcieBus != "" {
			detail["PCI Bus"] = cached.pcieBus
		}

		records = append(records, model.DeviceRecord{
			UUID:               uuid,
			Name:               cached.name,
			DeviceType:         model.DeviceTypeGPU,
			Hostname:           a.hostname,
			Instance:           a.instance,
			Index:              index,
			Utilization:        amdFloat(fields, "GPU use"),
			MemoryUsedBytes:    amdBytes(fields, "VRAM Total Used Memory"),
			MemoryTotalBytes:   cached.memTotal,
			TemperatureCelsius: uint32(amdFloat(fields, "Temperature (Sensor edge)")),
			PowerWatts:         amdFloat(fields, "Average Graphics Package Power", "Current Socket Graphics Package Power"),
			FrequencyMHz:       uint32(amdFloat(fields, "sclk clock speed")),
			Detail:             detail,
		})
	}
	return records, nil
}

// amdField returns the first value whose key contains any of the given
// substrings.
func amdField(fields map[string]string, keys ...string) string {
	for _, want := range keys {
		for k, v := range fields {
			if strings.Contains(k, want) {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// amdFloat extracts a numeric field, stripping units, parentheses and
// the "(MHz)"-style suffixes rocm-smi attaches to values.
func amdFloat(fields map[string]string, keys ...string) float64 {
	raw := amdField(fields, keys...)
	if raw == "" {
		return 0
	}
	raw = strings.Trim(raw, "()")
	raw = strings.TrimSuffix(raw, "Mhz")
	raw = strings.TrimSuffix(raw, "MHz")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "W"))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

func amdBytes(fields map[string]string, keys ...string) uint64 {
	v, err := strconv.ParseUint(amdField(fields, keys...), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
