package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rocmSmiGolden = `{
	"card0": {
		"Device ID": "0x740f",
		"Unique ID": "0x719d230578348e8c",
		"PCI Bus": "0000:27:00.0",
		"VBIOS version": "113-D65201-042",
		"Card series": "Instinct MI210",
		"GPU use (%)": "37",
		"VRAM Total Memory (B)": "68702699520",
		"VRAM Total Used Memory (B)": "10737418240",
		"Temperature (Sensor edge) (C)": "41.0",
		"Average Graphics Package Power (W)": "132.0",
		"sclk clock speed:": "(1502Mhz)"
	},
	"card1": {
		"Device ID": "0x740f",
		"PCI Bus": "0000:63:00.0",
		"Card series": "Instinct MI210",
		"GPU use (%)": "0",
		"VRAM Total Memory (B)": "68702699520",
		"VRAM Total Used Memory (B)": "0",
		"Temperature (Sensor edge) (C)": "33.0",
		"Average Graphics Package Power (W)": "41.0",
		"sclk clock speed:": "(800Mhz)"
	},
	"system": {
		"Driver version": "6.3.6"
	}
}`

func TestAMDParse(t *testing.T) {
	r := NewAMDReader("h1", "h1:9090")
	records, err := r.parse([]byte(rocmSmiGolden))
	require.NoError(t, err)
	require.Len(t, records, 2)

	d := records[0]
	assert.Equal(t, "0x719d230578348e8c", d.UUID)
	assert.Equal(t, "Instinct MI210", d.Name)
	assert.Equal(t, 37.0, d.Utilization)
	assert.Equal(t, uint64(68702699520), d.MemoryTotalBytes)
	assert.Equal(t, uint64(10737418240), d.MemoryUsedBytes)
	assert.Equal(t, uint32(41), d.TemperatureCelsius)
	assert.Equal(t, 132.0, d.PowerWatts)
	assert.Equal(t, uint32(1502), d.FrequencyMHz)
	assert.Equal(t, "rocm-smi", d.Detail["collection_method"])
	assert.Equal(t, "113-D65201-042", d.Detail["VBIOS Version"])

	// A card with no Unique ID synthesizes one from the PCI address.
	assert.Equal(t, "AMD-0000:63:00.0", records[1].UUID)
}

func TestAMDStaticCacheReused(t *testing.T) {
	r := NewAMDReader("h1", "h1:9090")
	_, err := r.parse([]byte(rocmSmiGolden))
	require.NoError(t, err)

	// A later read missing static fields still reports them from cache.
	degraded := `{"card0": {"Unique ID": "0x719d230578348e8c", "GPU use (%)": "90",
		"VRAM Total Used Memory (B)": "1024"}}`
	records, err := r.parse([]byte(degraded))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Instinct MI210", records[0].Name)
	assert.Equal(t, uint64(68702699520), records[0].MemoryTotalBytes)
	assert.Equal(t, 90.0, records[0].Utilization)
}

func TestAMDParseMalformed(t *testing.T) {
	r := NewAMDReader("h1", "h1:9090")
	_, err := r.parse([]byte("not json"))
	assert.Error(t, err)
}
