//go:build linux

package tenstorrent

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The ttkmd ioctl numbers and struct layouts below are fixed by the
// kernel-mode driver ABI and cannot be discovered at
// runtime; they are reproduced here rather than imported because the
// driver ships no Go bindings.
const (
	ttIoctlMagic          = 0xFA
	ttIoctlGetDeviceInfo  = 0
	ttIoctlQueryMappings  = 2
	maxMappings           = 8
)

type ttDeviceInfoIn struct {
	OutputSizeBytes uint32
	_               uint32
}

type ttDeviceInfoOut struct {
	OutputSizeBytes  uint32
	VendorID         uint16
	DeviceID         uint16
	SubsystemVendor  uint16
	SubsystemID      uint16
	BusDevFn         uint16
	MaxDmaBufSizeLog2 uint8
	PciDomain        uint8
}

type ttMappingOut struct {
	MappingID   uint32
	_           uint32
	MappingBase uint64
	MappingSize uint64
}

type ttQueryMappingsIn struct {
	OutputMappingCount uint32
	_                  uint32
}

type ttQueryMappingsOut struct {
	OutputMappingCount uint32
	_                  uint32
	Mappings           [maxMappings]ttMappingOut
}

// Mapping ids for the regions this reader needs; the rest (DMA buffers,
// IATU windows) are left unmapped.
const (
	mappingResourceBAR0UC = 1
	mappingResourceBAR0WC = 2
)

func ioctlPtr(fd int, nr uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), nr, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlNo(numberSize uintptr, nr uint8) uintptr {
	// _IOWR equivalent: direction bits are not checked by this driver,
	// only the magic/number/size fields, matching ttkmd's permissive ioctl dispatch.
	return (uintptr(ttIoctlMagic) << 8) | uintptr(nr) | (numberSize << 16)
}

// memoryMappedBAR backs the bar interface with a real mmap'd PCIe BAR.
type memoryMappedBAR struct {
	data []byte
}

func (m *memoryMappedBAR) Read32(offset uint32) uint32 {
	if int(offset)+4 > len(m.data) {
		return 0
	}
	return binary.LittleEndian.Uint32(m.data[offset : offset+4])
}

func (m *memoryMappedBAR) Write32(offset uint32, value uint32) {
	if int(offset)+4 > len(m.data) {
		return
	}
	binary.LittleEndian.PutUint32(m.data[offset:offset+4], value)
}

func (m *memoryMappedBAR) close() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}

// openDevice opens /dev/tenstorrent/<id>, resolves its PCI device id via
// GET_DEVICE_INFO, and mmaps BAR0 via QUERY_MAPPINGS, reconciling the UC
// and WC regions: when both are present, the WC mapping
// sits immediately below the UC one and the caller must mmap the union
// and treat the UC slice as starting at wcMappingSize(arch).
func openDevice(path string) (fd int, deviceID uint16, b *memoryMappedBAR, err error) {
	fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, 0, nil, fmt.Errorf("tenstorrent: open %s: %w", path, err)
	}

	var infoIn ttDeviceInfoIn
	infoIn.OutputSizeBytes = uint32(unsafe.Sizeof(ttDeviceInfoOut{}))
	var infoOut ttDeviceInfoOut
	infoOut.OutputSizeBytes = infoIn.OutputSizeBytes
	if err = ioctlPtr(fd, ioctlNo(unsafe.Sizeof(infoOut), ttIoctlGetDeviceInfo), unsafe.Pointer(&infoOut)); err != nil {
		unix.Close(fd)
		return -1, 0, nil, fmt.Errorf("tenstorrent: GET_DEVICE_INFO: %w", err)
	}
	deviceID = infoOut.DeviceID
	arch := ArchFromDeviceID(deviceID)

	var mapIn ttQueryMappingsIn
	mapIn.OutputMappingCount = maxMappings
	var mapOut ttQueryMappingsOut
	mapOut.OutputMappingCount = maxMappings
	if err = ioctlPtr(fd, ioctlNo(unsafe.Sizeof(mapOut), ttIoctlQueryMappings), unsafe.Pointer(&mapOut)); err != nil {
		unix.Close(fd)
		return -1, 0, nil, fmt.Errorf("tenstorrent: QUERY_MAPPINGS: %w", err)
	}

	var ucBase, ucSize, wcSize uint64
	for i := uint32(0); i < mapOut.OutputMappingCount && i < maxMappings; i++ {
		mm := mapOut.Mappings[i]
		switch mm.MappingID {
		case mappingResourceBAR0UC:
			ucBase, ucSize = mm.MappingBase, mm.MappingSize
		case mappingResourceBAR0WC:
			wcSize = mm.MappingSize
		}
	}
	if ucSize == 0 {
		unix.Close(fd)
		return -1, 0, nil, fmt.Errorf("tenstorrent: no BAR0 UC mapping reported")
	}
	if wcSize == 0 {
		wcSize = wcMappingSize(arch)
	}

	total := int(wcSize + ucSize)
	data, merr := unix.Mmap(fd, int64(ucBase), total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if merr != nil {
		unix.Close(fd)
		return -1, 0, nil, fmt.Errorf("tenstorrent: mmap BAR0: %w", merr)
	}

	// The ARC register block lives within the UC region; callers index
	// into data starting at the WC offset, per the reconciliation rule above.
	b = &memoryMappedBAR{data: data[wcSize:]}
	return fd, deviceID, b, nil
}

// enumerateDevices lists /dev/tenstorrent/<n> device nodes in numeric
// order, matching how tt-smi enumerates the fleet.
func enumerateDevices() ([]string, error) {
	entries, err := os.ReadDir("/dev/tenstorrent")
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		n, convErr := strconv.Atoi(e.Name())
		if convErr != nil {
			continue
		}
		ids = append(ids, n)
	}
	sort.Ints(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, filepath.Join("/dev/tenstorrent", strconv.Itoa(id)))
	}
	return out, nil
}

// readTelemetryBlob copies the ARC CSM telemetry struct from the BAR at
// csmOffset (the address returned by getSmbusTelemetryAddr), sized to
// cover every field this reader decodes.
func readTelemetryBlob(b *memoryMappedBAR, csmOffset uint32) []byte {
	buf := make([]byte, minTelemetryStructSz+64)
	for i := 0; i+4 <= len(buf); i += 4 {
		v := b.Read32(csmOffset + uint32(i))
		binary.LittleEndian.PutUint32(buf[i:i+4], v)
	}
	return buf
}
