package nvidia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmiFloatHandlesNASentinel(t *testing.T) {
	assert.Equal(t, 0.0, smiFloat("[N/A]"))
	assert.Equal(t, 0.0, smiFloat(""))
	assert.Equal(t, 42.5, smiFloat("42.5"))
}

func TestParseSMIOutputConvertsMegabytesToBytes(t *testing.T) {
	out := []byte("GPU-1, NVIDIA A100, 0, 50, 1024, 40960, 60, 120.5, 1410\n")
	records := parseSMIOutput(out, "h1", "h1:9090")
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "GPU-1", r.UUID)
	assert.Equal(t, "NVIDIA A100", r.Name)
	assert.Equal(t, 50.0, r.Utilization)
	assert.Equal(t, uint64(1024*1024*1024), r.MemoryUsedBytes)
	assert.Equal(t, uint64(40960*1024*1024), r.MemoryTotalBytes)
	assert.Equal(t, uint32(60), r.TemperatureCelsius)
	assert.Equal(t, 120.5, r.PowerWatts)
	assert.Equal(t, "nvidia-smi", r.Detail["collection_method"])
}

func TestParseSMIOutputSkipsMalformedLines(t *testing.T) {
	out := []byte("too,few,columns\n")
	records := parseSMIOutput(out, "h1", "h1:9090")
	assert.Empty(t, records)
}
