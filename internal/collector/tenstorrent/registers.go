// Package tenstorrent implements the embedded Tenstorrent driver stack
//: device open and BAR mapping, the fixed register address
// table, the ARC mailbox wire protocol, and telemetry struct decoding.
// This replaces a dependency on an external vendor library with an
// in-tree reproduction of the wire semantics, which are fixed by
// firmware and must match exactly.
package tenstorrent

import "strconv"

// Arch identifies the Tenstorrent silicon generation, decoded from the
// PCI device id.
type Arch string

const (
	ArchGrayskull Arch = "Grayskull"
	ArchWormhole  Arch = "Wormhole"
	ArchBlackhole Arch = "Blackhole"
	ArchUnknown   Arch = ""
)

// ArchFromDeviceID maps a PCI device id to its architecture. An unknown
// id is a fatal error for that one device only: the caller skips
// it rather than aborting the process.
func ArchFromDeviceID(deviceID uint16) Arch {
	switch deviceID {
	case 0xfaca:
		return ArchGrayskull
	case 0x401e:
		return ArchWormhole
	case 0xb140:
		return ArchBlackhole
	default:
		return ArchUnknown
	}
}

// register names the small fixed set of symbolic registers the core
// touches. Absolute addresses are resolved per-arch in addressFor.
type register string

const (
	RegARCResetScratchBase register = "ARC_RESET.SCRATCH"
	RegARCMiscCntl         register = "ARC_RESET.ARC_MISC_CNTL"
	RegARCCSMData0         register = "ARC_CSM.DATA[0]"
)

// preBlackholeWCSize and blackholeWCSize are the arch-specific BAR0 WC
// mapping sizes used to shift the UC region when both are present
//.
const (
	preBlackholeWCSize = (156 << 20) + (10 << 21) + (18 << 24)
	blackholeWCSize    = 188 << 21
)

// wcMappingSize returns the WC region size to shift BAR0 UC by, for
// arches where both UC and WC are mapped.
func wcMappingSize(a Arch) uint64 {
	if a == ArchBlackhole {
		return blackholeWCSize
	}
	return preBlackholeWCSize
}

// addressFor resolves a symbolic register name plus a scratch index to
// an offset within the ARC_RESET BAR region. Blackhole names these
// registers arc_ss.reset_unit.* but keeps the same low-order offsets
// (scratch at 0x60, ARC_MISC_CNTL at 0x100); only the high bits of the
// absolute NOC address differ by arch, and those are absorbed by the
// BAR base, not by this table.
func addressFor(a Arch, r register, scratchIndex int) uint32 {
	const (
		scratchBase uint32 = 0x60
		miscCntl    uint32 = 0x100
	)

	switch r {
	case RegARCResetScratchBase:
		return scratchBase + uint32(scratchIndex)*4
	case RegARCMiscCntl:
		return miscCntl
	default:
		return 0
	}
}

// doorbellBit returns the ARC_MISC_CNTL bit that rings the ARC mailbox
// doorbell for the given arch.
func doorbellBit(a Arch) uint32 {
	if a == ArchGrayskull {
		return 1 << 5
	}
	return 1 << 16
}

// ParseHexRegister parses a "0x"-prefixed hex string into its numeric
// value. Strings longer than 8 hex digits or containing non-hex
// characters return (0, false) rather than panicking.
func ParseHexRegister(s string) (float64, bool) {
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, false
	}
	digits := s[2:]
	if len(digits) == 0 || len(digits) > 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, false
	}
	return float64(v), true
}
