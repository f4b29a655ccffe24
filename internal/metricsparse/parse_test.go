package metricsparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all-smi/all-smi/internal/exposition"
	"github.com/all-smi/all-smi/internal/model"
)

func TestParseIgnoresCommentsAndUnknownMetrics(t *testing.T) {
	body := "# HELP all_smi_gpu_utilization text\n" +
		"# TYPE all_smi_gpu_utilization gauge\n" +
		"some_other_metric{a=\"1\"} 5\n" +
		"all_smi_gpu_utilization{gpu=\"A\", instance=\"h1:9090\", uuid=\"u-1\", index=\"0\"} 42\n"

	r := Parse(body)
	require.Len(t, r.Devices, 1)
	assert.Equal(t, "u-1", r.Devices[0].UUID)
	assert.Equal(t, 42.0, r.Devices[0].Utilization)
}

func TestParseAccumulatesAcrossLines(t *testing.T) {
	body := `all_smi_gpu_utilization{gpu="A", instance="h1:9090", uuid="u-1", index="0"} 50
all_smi_gpu_memory_used_bytes{gpu="A", instance="h1:9090", uuid="u-1", index="0"} 1024
all_smi_gpu_memory_total_bytes{gpu="A", instance="h1:9090", uuid="u-1", index="0"} 2048
all_smi_device_info{gpu="A", instance="h1:9090", uuid="u-1", index="0", board_type="n150"} 1
`
	r := Parse(body)
	require.Len(t, r.Devices, 1)
	d := r.Devices[0]
	assert.Equal(t, 50.0, d.Utilization)
	assert.Equal(t, uint64(1024), d.MemoryUsedBytes)
	assert.Equal(t, uint64(2048), d.MemoryTotalBytes)
	assert.Equal(t, "n150", d.Detail["board_type"])
	assert.Equal(t, "h1", d.Hostname)
}

func TestParseStorageKeyedByHostnameMountPointIndex(t *testing.T) {
	body := `all_smi_storage_total_bytes{hostname="h1", mount_point="/", index="0"} 1000
all_smi_storage_available_bytes{hostname="h1", mount_point="/", index="0"} 400
`
	r := Parse(body)
	require.Len(t, r.Storage, 1)
	assert.Equal(t, uint64(1000), r.Storage[0].TotalBytes)
	assert.Equal(t, uint64(400), r.Storage[0].AvailableBytes)
}

func TestExpositionRoundTrip(t *testing.T) {
	ane := 12.5
	devices := []model.DeviceRecord{
		{
			UUID: "u-1", Name: "Tenstorrent Wormhole n150", DeviceType: model.DeviceTypeNPU,
			Hostname: "h1", Instance: "h1:9090", Index: 0,
			Utilization: 42, MemoryUsedBytes: 1024, MemoryTotalBytes: 2048,
			TemperatureCelsius: 55, PowerWatts: 120.5, FrequencyMHz: 1200,
			ANEUtilization: &ane,
			Detail:         map[string]string{"Board Type": "n150"},
		},
	}

	b := exposition.New()
	exposition.WriteDevices(b, devices)

	r := Parse(b.String())
	require.Len(t, r.Devices, 1)
	got := r.Devices[0]
	want := devices[0]

	assert.Equal(t, want.UUID, got.UUID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.DeviceType, got.DeviceType)
	assert.Equal(t, want.Hostname, got.Hostname)
	assert.Equal(t, want.Instance, got.Instance)
	assert.InDelta(t, want.Utilization, got.Utilization, 0.01)
	assert.Equal(t, want.MemoryUsedBytes, got.MemoryUsedBytes)
	assert.Equal(t, want.MemoryTotalBytes, got.MemoryTotalBytes)
	assert.Equal(t, want.TemperatureCelsius, got.TemperatureCelsius)
	assert.InDelta(t, want.PowerWatts, got.PowerWatts, 0.01)
	assert.Equal(t, want.FrequencyMHz, got.FrequencyMHz)
	require.NotNil(t, got.ANEUtilization)
	assert.InDelta(t, *want.ANEUtilization, *got.ANEUtilization, 0.01)
	assert.Equal(t, "n150", got.Detail["board_type"])
}
