package apple

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanInRangeFiltersImplausibleReadings(t *testing.T) {
	mean, ok := meanInRange([]float64{0, 45, 200, 55}, 10, 120)
	assert.True(t, ok)
	assert.Equal(t, 50.0, mean)
}

func TestMeanInRangeEmptyWhenNothingSurvives(t *testing.T) {
	_, ok := meanInRange([]float64{0, 200}, 10, 120)
	assert.False(t, ok)
}

func TestAneUtilizationFromWattsCapsAt100(t *testing.T) {
	assert.Equal(t, 100.0, aneUtilizationFromWatts(50))
	assert.Equal(t, 0.0, aneUtilizationFromWatts(0))
}
