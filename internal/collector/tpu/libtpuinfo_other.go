//go:build !linux

package tpu

import "github.com/all-smi/all-smi/internal/model"

// readViaLibtpuinfo has no equivalent outside Linux; libtpuinfo.so is a
// Linux-only shared object shipped alongside libtpu.
func readViaLibtpuinfo(hostname, instance string) ([]model.DeviceRecord, bool) {
	return nil, false
}
