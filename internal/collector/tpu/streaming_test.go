package tpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowPatternParsesDeviceAndValue(t *testing.T) {
	m := rowPattern.FindStringSubmatch("0  TPU chip 0        87.5")
	require.NotNil(t, m)
	assert.Equal(t, "0", m[1])
	assert.Equal(t, "87.5", m[3])
}

func TestSnapshotStaleAfterFreshnessWindow(t *testing.T) {
	s := newStreamingScraper()
	s.record(0, "duty_cycle_percent", 42)
	s.lastSeen = time.Now().Add(-streamingFreshness - time.Second)

	recs := s.snapshot("h1", "h1:9090")
	assert.Nil(t, recs)
}

func TestSnapshotFreshReturnsRecords(t *testing.T) {
	s := newStreamingScraper()
	s.record(0, "duty_cycle_percent", 42)

	recs := s.snapshot("h1", "h1:9090")
	require.Len(t, recs, 1)
	assert.Equal(t, 42.0, recs[0].Utilization)
}

func TestPauseSuppressesFurtherRecording(t *testing.T) {
	s := newStreamingScraper()
	s.pause()
	s.record(0, "duty_cycle_percent", 42)

	recs := s.snapshot("h1", "h1:9090")
	assert.Nil(t, recs)
}
