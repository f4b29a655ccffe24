package collector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/all-smi/all-smi/internal/model"
)

type fakeDeviceReader struct {
	name    string
	records []model.DeviceRecord
	err     error
}

func (f fakeDeviceReader) Name() string { return f.name }
func (f fakeDeviceReader) ReadDevices() ([]model.DeviceRecord, error) {
	return f.records, f.err
}

type fakeHostReader struct{}

func (fakeHostReader) Name() string { return "host" }
func (fakeHostReader) ReadCPU() ([]model.CpuRecord, error) {
	return []model.CpuRecord{{Hostname: "h1"}}, nil
}
func (fakeHostReader) ReadMemory() ([]model.MemoryRecord, error) {
	return []model.MemoryRecord{{Hostname: "h1"}}, nil
}
func (fakeHostReader) ReadStorage() ([]model.StorageRecord, error) {
	return []model.StorageRecord{{Hostname: "h1"}}, nil
}

func TestCollectMergesAllReaders(t *testing.T) {
	r := NewRegistry(fakeHostReader{})
	r.AddDeviceReader(fakeDeviceReader{name: "a", records: []model.DeviceRecord{{UUID: "u-1"}}})
	r.AddDeviceReader(fakeDeviceReader{name: "b", records: []model.DeviceRecord{{UUID: "u-2"}}})

	snap := r.Collect()
	require.Len(t, snap.Devices, 2)
	require.Len(t, snap.CPUs, 1)
	require.Len(t, snap.Memory, 1)
	require.Len(t, snap.Storage, 1)
}

func TestCollectDegradesSilentlyOnReaderError(t *testing.T) {
	r := NewRegistry(fakeHostReader{})
	r.AddDeviceReader(fakeDeviceReader{name: "broken", err: errors.New("boom")})
	r.AddDeviceReader(fakeDeviceReader{name: "ok", records: []model.DeviceRecord{{UUID: "u-1"}}})

	snap := r.Collect()
	assert.Len(t, snap.Devices, 1)
	assert.Equal(t, "u-1", snap.Devices[0].UUID)
}

type fakeProcessDeviceReader struct {
	fakeDeviceReader
	procs []model.ProcessRecord
}

func (f fakeProcessDeviceReader) ReadProcesses() ([]model.ProcessRecord, error) {
	return f.procs, nil
}

func TestCollectProcessesOnlyQueriesProcessReaders(t *testing.T) {
	r := NewRegistry(fakeHostReader{})
	r.AddDeviceReader(fakeDeviceReader{name: "no-proc"})
	r.AddDeviceReader(fakeProcessDeviceReader{
		fakeDeviceReader: fakeDeviceReader{name: "has-proc"},
		procs:            []model.ProcessRecord{{PID: 42}},
	})

	procs := r.CollectProcesses()
	require.Len(t, procs, 1)
	assert.Equal(t, int32(42), procs[0].PID)
}
