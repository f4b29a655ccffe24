package tenstorrent

import "fmt"

// BoardType decodes the vendor's nested serial-number switch: the
// family is bits [55:36] of the serial, with the 0x1 family further
// split on bits [35:32].
func BoardType(serial uint64) string {
	family := (serial >> 36) & 0xFFFFF
	switch family {
	case 0x1:
		switch (serial >> 32) & 0xF {
		case 0x2:
			return "n300"
		case 0x4:
			return "n150"
		default:
			return "wh-unknown"
		}
	case 0x3:
		return "p150a"
	case 0x4:
		return "p300a"
	case 0x7:
		return "galaxy"
	default:
		return fmt.Sprintf("unknown-0x%x", family)
	}
}

// boardTDPWatts is the default TDP table keyed on board type string
//, used when live power-limit telemetry is unavailable.
var boardTDPWatts = map[string]float64{
	"n150":   160,
	"n300":   300,
	"p150a":  250,
	"p300a":  300,
	"galaxy": 200,
}

const defaultBoardTDPWatts float64 = 200

// TDPForBoard returns the default TDP in watts for a board type,
// falling back to the catch-all default for unrecognized boards.
func TDPForBoard(boardType string) float64 {
	if tdp, ok := boardTDPWatts[boardType]; ok {
		return tdp
	}
	return defaultBoardTDPWatts
}

// EstimateUtilization computes a weighted estimate, since
// Tenstorrent exposes no direct utilization counter.
func EstimateUtilization(powerWatts, tdpWatts, aiclkMHz float64, heartbeatIncrementing bool) float64 {
	powerTerm := 0.6 * min100(powerWatts/tdpWatts*100)
	clockTerm := 0.3 * min100(aiclkMHz/1200*100)
	heartbeatTerm := 0.0
	if heartbeatIncrementing {
		heartbeatTerm = 10
	}
	total := powerTerm + clockTerm + heartbeatTerm
	return min100(total)
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
