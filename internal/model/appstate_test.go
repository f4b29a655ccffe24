package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupStorageIdempotence(t *testing.T) {
	rows := []StorageRecord{
		{Hostname: "a", MountPoint: "/", TotalBytes: 100},
		{Hostname: "a", MountPoint: "/data", TotalBytes: 200},
		{Hostname: "a", MountPoint: "/", TotalBytes: 150}, // later writer wins
		{Hostname: "b", MountPoint: "/", TotalBytes: 300},
	}

	once := DedupStorage(rows)
	twice := DedupStorage(once)

	assert.Equal(t, once, twice)
	assert.Len(t, once, 3)

	want := map[string]uint64{}
	for _, r := range rows {
		want[r.DedupKey()] = r.TotalBytes
	}
	assert.Len(t, want, 3)

	for _, r := range once {
		assert.Equal(t, want[r.DedupKey()], r.TotalBytes)
	}
}

func TestDedupStorageSortOrder(t *testing.T) {
	rows := []StorageRecord{
		{Hostname: "b", MountPoint: "/z"},
		{Hostname: "a", MountPoint: "/z"},
		{Hostname: "a", MountPoint: "/a"},
	}
	out := DedupStorage(rows)
	assert.Equal(t, []StorageRecord{
		{Hostname: "a", MountPoint: "/a"},
		{Hostname: "a", MountPoint: "/z"},
		{Hostname: "b", MountPoint: "/z"},
	}, out)
}

func TestHistoryGatingSkipsZeroMemoryCycle(t *testing.T) {
	s := NewAppState([]string{"h1"}, 10)

	devices := []DeviceRecord{{UUID: "u1", MemoryTotalBytes: 0}}
	s.RecordCycle(devices, 50, 50, 50)

	assert.Equal(t, 0, ringFor(s.UtilizationHistory, "fleet", 10).Len())
}

func TestHistoryGatingAppendsWhenAnyDeviceHasMemory(t *testing.T) {
	s := NewAppState([]string{"h1"}, 10)

	devices := []DeviceRecord{
		{UUID: "u1", MemoryTotalBytes: 0},
		{UUID: "u2", MemoryTotalBytes: 1024},
	}
	s.RecordCycle(devices, 50, 50, 50)

	assert.Equal(t, 1, ringFor(s.UtilizationHistory, "fleet", 10).Len())
}

func TestHistoryRingBounded(t *testing.T) {
	r := NewHistoryRing(3)
	for i := 0; i < 10; i++ {
		r.Append(float64(i))
	}
	assert.Equal(t, []float64{7, 8, 9}, r.Samples())
}

func TestMergeGPUInfoByUUIDKeepsAbsentUUIDs(t *testing.T) {
	s := NewAppState(nil, 10)
	s.MergeGPUInfoByUUID([]DeviceRecord{
		{UUID: "a", Utilization: 10},
		{UUID: "b", Utilization: 20},
	})
	s.MergeGPUInfoByUUID([]DeviceRecord{
		{UUID: "a", Utilization: 99},
	})

	byUUID := map[string]float64{}
	for _, d := range s.GPUInfo {
		byUUID[d.UUID] = d.Utilization
	}
	assert.Equal(t, 99.0, byUUID["a"])
	assert.Equal(t, 20.0, byUUID["b"])
	assert.Len(t, s.GPUInfo, 2)
}

func TestReplaceGPUInfoAtomicReplacement(t *testing.T) {
	s := NewAppState(nil, 10)
	s.MergeGPUInfoByUUID([]DeviceRecord{{UUID: "a"}, {UUID: "b"}})
	s.ReplaceGPUInfo([]DeviceRecord{{UUID: "c"}})

	assert.Len(t, s.GPUInfo, 1)
	assert.Equal(t, "c", s.GPUInfo[0].UUID)
}

func TestSortDeviceListByHostnameThenIndex(t *testing.T) {
	devices := []DeviceRecord{
		{Hostname: "b", Index: 0},
		{Hostname: "a", Index: 1},
		{Hostname: "a", Index: 0},
	}
	SortDeviceList(devices)
	assert.Equal(t, []DeviceRecord{
		{Hostname: "a", Index: 0},
		{Hostname: "a", Index: 1},
		{Hostname: "b", Index: 0},
	}, devices)
}
