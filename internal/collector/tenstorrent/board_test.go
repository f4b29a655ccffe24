package tenstorrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardTypeN150(t *testing.T) {
	serial := uint64(0x1) << 36 // family 0x1
	serial |= uint64(0x4) << 32 // sub-case 0x4 -> n150
	assert.Equal(t, "n150", BoardType(serial))
}

func TestBoardTypeN300(t *testing.T) {
	serial := uint64(0x1)<<36 | uint64(0x2)<<32
	assert.Equal(t, "n300", BoardType(serial))
}

func TestTDPForBoardKnownAndDefault(t *testing.T) {
	assert.Equal(t, 160.0, TDPForBoard("n150"))
	assert.Equal(t, 300.0, TDPForBoard("n300"))
	assert.Equal(t, defaultBoardTDPWatts, TDPForBoard("something-unknown"))
}

func TestEstimateUtilizationWeightedCombination(t *testing.T) {
	// power=96/160=60% -> 0.6*60=36; aiclk=600/1200=50% -> 0.3*50=15; heartbeat +10 => 61
	got := EstimateUtilization(96, 160, 600, true)
	assert.InDelta(t, 61.0, got, 1e-9)
}

func TestEstimateUtilizationClampsAt100(t *testing.T) {
	got := EstimateUtilization(1000, 160, 5000, true)
	assert.Equal(t, 100.0, got)
}
