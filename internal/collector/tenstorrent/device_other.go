//go:build !linux

package tenstorrent

import "fmt"

// enumerateDevices reports no devices on non-Linux platforms; the
// ttkmd character devices this reader depends on are Linux-only.
func enumerateDevices() ([]string, error) {
	return nil, nil
}

func openDevice(path string) (fd int, deviceID uint16, b *memoryMappedBAR, err error) {
	return -1, 0, nil, fmt.Errorf("tenstorrent: device file access is only supported on linux")
}

// memoryMappedBAR is an empty placeholder satisfying the bar interface
// shape referenced by reader.go on platforms without real mmap support.
type memoryMappedBAR struct{}

func (m *memoryMappedBAR) Read32(offset uint32) uint32 { return 0 }
func (m *memoryMappedBAR) Write32(offset uint32, v uint32) {}
func (m *memoryMappedBAR) close() error { return nil }

func readTelemetryBlob(b *memoryMappedBAR, csmOffset uint32) []byte {
	return nil
}
