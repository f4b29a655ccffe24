package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all-smi/all-smi/internal/collector"
	"github.com/all-smi/all-smi/internal/model"
)

func testDevice(uuid string, util float64) model.DeviceRecord {
	return model.DeviceRecord{
		UUID:             uuid,
		Name:             "Test GPU",
		DeviceType:       model.DeviceTypeGPU,
		Hostname:         "host1",
		Instance:         "host1:9090",
		Utilization:      util,
		MemoryUsedBytes:  1 << 30,
		MemoryTotalBytes: 4 << 30,
	}
}

func TestRenderBodyEmptySnapshot(t *testing.T) {
	// No detectable devices: the scrape output stays empty, no headers.
	body := renderBody(collector.Snapshot{}, nil)
	assert.Empty(t, body)
}

func TestRenderBodyContainsDeviceFamilies(t *testing.T) {
	snap := collector.Snapshot{Devices: []model.DeviceRecord{testDevice("u1", 42)}}
	body := renderBody(snap, nil)

	assert.Contains(t, body, "# HELP all_smi_gpu_utilization")
	assert.Contains(t, body, `all_smi_gpu_utilization{gpu="Test GPU", instance="host1:9090", uuid="u1", index="0"} 42`)
	assert.NotContains(t, body, "all_smi_process_", "process family absent unless requested")
}

func TestRenderBodyProcesses(t *testing.T) {
	snap := collector.Snapshot{Devices: []model.DeviceRecord{testDevice("u1", 1)}}
	procs := []model.ProcessRecord{{PID: 4242, DeviceUUID: "u1", ProcessName: "trainer", UsedMemoryBytes: 512}}

	body := renderBody(snap, procs)
	assert.Contains(t, body, `all_smi_process_memory_used_bytes{pid="4242", process_name="trainer", uuid="u1", index="0"} 512`)
}

func TestBodyHolderSwap(t *testing.T) {
	h := &bodyHolder{}
	assert.Empty(t, h.MetricsBody())
	h.set("first")
	assert.Equal(t, "first", h.MetricsBody())
	h.set("second")
	assert.Equal(t, "second", h.MetricsBody())
}

func TestMergeLocalCycleKeepsAbsentDevices(t *testing.T) {
	state := model.NewAppState(nil, 8)

	mergeLocalCycle(state, collector.Snapshot{Devices: []model.DeviceRecord{
		testDevice("u1", 10), testDevice("u2", 20),
	}})
	require.Len(t, state.GPUInfo, 2)

	// Next cycle only sees u1: u2 retains its last value.
	mergeLocalCycle(state, collector.Snapshot{Devices: []model.DeviceRecord{
		testDevice("u1", 55),
	}})
	require.Len(t, state.GPUInfo, 2)
	assert.Equal(t, 55.0, state.GPUInfo[0].Utilization)
	assert.Equal(t, 20.0, state.GPUInfo[1].Utilization)

	// Both cycles carried devices with memory totals: history advanced twice.
	assert.Equal(t, 2, state.UtilizationHistory["fleet"].Len())
}

func TestMergeLocalCycleHistoryGate(t *testing.T) {
	state := model.NewAppState(nil, 8)
	empty := testDevice("u1", 10)
	empty.MemoryTotalBytes = 0
	empty.MemoryUsedBytes = 0

	mergeLocalCycle(state, collector.Snapshot{Devices: []model.DeviceRecord{empty}})
	assert.Nil(t, state.UtilizationHistory["fleet"])
}

func TestRenderBodyHelpTypeOncePerFamily(t *testing.T) {
	snap := collector.Snapshot{Devices: []model.DeviceRecord{
		testDevice("u1", 1), testDevice("u2", 2),
	}}
	body := renderBody(snap, nil)
	assert.Equal(t, 1, strings.Count(body, "# HELP all_smi_gpu_utilization"))
	assert.Equal(t, 1, strings.Count(body, "# TYPE all_smi_gpu_utilization"))
}
