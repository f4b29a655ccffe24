package exposition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/all-smi/all-smi/internal/model"
)

func TestHelpTypeEmittedOncePerName(t *testing.T) {
	b := New()
	b.Help("m", "text")
	b.Type("m", Gauge)
	b.Metric("m", nil, 1)
	b.Metric("m", nil, 2)

	out := b.String()
	assert.Equal(t, 1, strings.Count(out, "# HELP m"))
	assert.Equal(t, 1, strings.Count(out, "# TYPE m"))
	assert.Equal(t, 2, strings.Count(out, "\nm "))
}

func TestEmptyFamilyNotAnnounced(t *testing.T) {
	b := New()
	b.Help("unused", "text")
	b.Type("unused", Gauge)
	assert.Empty(t, b.String())
	assert.False(t, b.HasFamily("unused"))
}

func TestLabelOrderPreserved(t *testing.T) {
	b := New()
	b.Metric("m", []Label{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}}, 1)
	assert.Contains(t, b.String(), `m{z="1", a="2"} 1`)
}

func TestValueFormatting(t *testing.T) {
	b := New()
	b.Metric("all_smi_gpu_power_watts", nil, 12.3)
	b.Metric("all_smi_gpu_temperature_celsius", nil, 45.678)
	b.Metric("all_smi_gpu_utilization", nil, 50)

	out := b.String()
	assert.Contains(t, out, "all_smi_gpu_power_watts 12.30")
	assert.Contains(t, out, "all_smi_gpu_temperature_celsius 45.7")
	assert.Contains(t, out, "all_smi_gpu_utilization 50\n")
}

func TestWriteDevicesEmitsStableLabelsAndDetail(t *testing.T) {
	b := New()
	devices := []model.DeviceRecord{
		{
			UUID: "u-1", Name: "Tenstorrent Wormhole n150", DeviceType: model.DeviceTypeNPU,
			Hostname: "h1", Instance: "h1:9090", Index: 0,
			Utilization: 42, MemoryUsedBytes: 1024, MemoryTotalBytes: 2048,
			TemperatureCelsius: 55, PowerWatts: 120.5, FrequencyMHz: 1200,
			Detail: map[string]string{"Board Type": "n150", "ARC Firmware": "1.2.3"},
		},
	}
	WriteDevices(b, devices)
	out := b.String()

	assert.Contains(t, out, `all_smi_gpu_utilization{npu="Tenstorrent Wormhole n150", instance="h1:9090", uuid="u-1", index="0"} 42`)
	assert.Contains(t, out, `board_type="n150"`)
	assert.Contains(t, out, `arc_firmware="1.2.3"`)
}

func TestSanitizeForbidsQuotesBackslashesNewlines(t *testing.T) {
	b := New()
	b.Metric("m", []Label{{Key: "k", Value: "a\"b\\c\nd"}}, 1)
	out := b.String()
	assert.NotContains(t, out, `\`)
	assert.Contains(t, out, `k="abcd"`)
}
