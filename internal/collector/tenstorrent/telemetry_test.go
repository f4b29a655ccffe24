package tenstorrent

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAsicTemperatureBlackholeFixedPoint(t *testing.T) {
	// 0x00480000 -> whole=0x0048=72, frac=0 -> 72.0
	got := DecodeAsicTemperature(0x00480000, ArchBlackhole)
	assert.InDelta(t, 72.0, got, 1e-6)
}

func TestDecodeAsicTemperatureNonBlackholeRawShift(t *testing.T) {
	// raw=0x0480=1152; (1152 & 0xffff) >> 4 == 72
	got := DecodeAsicTemperature(0x0480, ArchWormhole)
	assert.Equal(t, 72.0, got)
}

func TestDecodeFirmwareDate(t *testing.T) {
	// year=2020+5=2025, month=6, day=15
	raw := uint32(5)<<28 | uint32(6)<<24 | uint32(15)<<16
	year, month, day := DecodeFirmwareDate(raw)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 6, month)
	assert.Equal(t, 15, day)
}

func TestDecodeFWVersionExtractsTriple(t *testing.T) {
	raw := uint32(1)<<16 | uint32(2)<<8 | uint32(3)
	v := decodeFWVersion(raw)
	assert.Equal(t, [3]byte{1, 2, 3}, v)
}

func TestDecodeTelemetryShortBufferReturnsZeroValue(t *testing.T) {
	got := DecodeTelemetry([]byte{1, 2, 3}, ArchWormhole)
	assert.Equal(t, Telemetry{}, got)
}

func TestDecodeTelemetryReadsFixedOffsets(t *testing.T) {
	buf := make([]byte, minTelemetryStructSz)
	binary.LittleEndian.PutUint32(buf[offVcore:], 900)
	binary.LittleEndian.PutUint32(buf[offTDP:], 85)
	binary.LittleEndian.PutUint32(buf[offTDC:], 12)
	binary.LittleEndian.PutUint32(buf[offAiclk:], 1100)

	tel := DecodeTelemetry(buf, ArchWormhole)
	assert.InDelta(t, 0.9, tel.VcoreVolts, 1e-9)
	assert.Equal(t, 85.0, tel.PowerWatts)
	assert.Equal(t, 12.0, tel.CurrentAmps)
	assert.Equal(t, uint32(1100), tel.AiclkMHz)
}
