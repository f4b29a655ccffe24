package exposition

import (
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all-smi/all-smi/internal/model"
)

// The hand-rolled builder exists for the stable label-order contract,
// but its output must still be valid Prometheus text: the official
// parser is the arbiter.
func TestBuilderOutputParsesAsPrometheusText(t *testing.T) {
	b := New()
	WriteDevices(b, []model.DeviceRecord{{
		UUID:               "GPU-abc",
		Name:               "Test GPU",
		DeviceType:         model.DeviceTypeGPU,
		Hostname:           "node1",
		Instance:           "node1:9090",
		Index:              0,
		Utilization:        87.5,
		MemoryUsedBytes:    3 << 30,
		MemoryTotalBytes:   8 << 30,
		TemperatureCelsius: 61,
		PowerWatts:         142.25,
		FrequencyMHz:       1410,
		Detail:             map[string]string{"driver_version": "550.54"},
	}})
	WriteChassis(b, []model.ChassisRecord{{
		Hostname: "node1",
		Instance: "node1:9090",
		Fans:     []model.Fan{{ID: "0", Name: "Exhaust", SpeedRPM: 2400}},
	}})

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(b.String()))
	require.NoError(t, err)

	util, ok := families["all_smi_gpu_utilization"]
	require.True(t, ok)
	require.Len(t, util.GetMetric(), 1)
	assert.Equal(t, 87.5, util.GetMetric()[0].GetGauge().GetValue())

	power := families["all_smi_gpu_power_watts"]
	require.NotNil(t, power)
	assert.Equal(t, 142.25, power.GetMetric()[0].GetGauge().GetValue())

	for name, fam := range families {
		assert.True(t, strings.HasPrefix(name, "all_smi_"), name)
		assert.NotEmpty(t, fam.GetMetric())
	}
}
