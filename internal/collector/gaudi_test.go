package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGaudiCSV(t *testing.T) {
	out := []byte("HL-1, Gaudi2, 0, 30, 2048, 98304, 45, 300\n")
	records, err := parseGaudiCSV(out, "h1", "h1:9090")
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "HL-1", r.UUID)
	assert.Equal(t, uint64(2048*1024*1024), r.MemoryUsedBytes)
	assert.Equal(t, 300.0, r.PowerWatts)
}

func TestGaudiFloatHandlesNA(t *testing.T) {
	assert.Equal(t, 0.0, gaudiFloat("N/A"))
	assert.Equal(t, 12.0, gaudiFloat("12"))
}
