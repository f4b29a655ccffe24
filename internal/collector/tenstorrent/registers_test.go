package tenstorrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArchFromDeviceID(t *testing.T) {
	assert.Equal(t, ArchGrayskull, ArchFromDeviceID(0xfaca))
	assert.Equal(t, ArchWormhole, ArchFromDeviceID(0x401e))
	assert.Equal(t, ArchBlackhole, ArchFromDeviceID(0xb140))
	assert.Equal(t, ArchUnknown, ArchFromDeviceID(0xdead))
}

func TestParseHexRegister(t *testing.T) {
	v, ok := ParseHexRegister("0xdeadbeef")
	assert.True(t, ok)
	assert.Equal(t, 3735928559.0, v)
}

func TestParseHexRegisterRejectsTooLong(t *testing.T) {
	_, ok := ParseHexRegister("0x123456789")
	assert.False(t, ok)
}

func TestParseHexRegisterRejectsNonHex(t *testing.T) {
	_, ok := ParseHexRegister("0xgg")
	assert.False(t, ok)
}

func TestAddressForSameOffsetsAcrossArchs(t *testing.T) {
	// Blackhole renames the registers (arc_ss.reset_unit.*) but keeps
	// the same BAR-relative offsets as Grayskull/Wormhole.
	for _, arch := range []Arch{ArchGrayskull, ArchWormhole, ArchBlackhole} {
		assert.Equal(t, uint32(0x60), addressFor(arch, RegARCResetScratchBase, 0), arch)
		assert.Equal(t, uint32(0x64), addressFor(arch, RegARCResetScratchBase, 1), arch)
		assert.Equal(t, uint32(0x68), addressFor(arch, RegARCResetScratchBase, 2), arch)
		assert.Equal(t, uint32(0x100), addressFor(arch, RegARCMiscCntl, 0), arch)
	}
}

func TestDoorbellBitPerArch(t *testing.T) {
	assert.Equal(t, uint32(1<<5), doorbellBit(ArchGrayskull))
	assert.Equal(t, uint32(1<<16), doorbellBit(ArchWormhole))
	assert.Equal(t, uint32(1<<16), doorbellBit(ArchBlackhole))
}
