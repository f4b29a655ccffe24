// Package collector implements the platform reader registry:
// a set of named Reader implementations producing the core data-model
// records, fanned out concurrently and merged with the same
// wait-group/pipeline shape the fleet fetcher uses for remote hosts.
// Readers never panic and never block past their own I/O; a failing
// device or chassis reader degrades to an empty result logged at debug
// level, and a failing host reader is logged at warn level.
package collector

import (
	"sync"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
)

// Snapshot is the full set of local-host records produced by one
// collection cycle in API mode.
type Snapshot struct {
	Devices []model.DeviceRecord
	Chassis []model.ChassisRecord
	CPUs    []model.CpuRecord
	Memory  []model.MemoryRecord
	Storage []model.StorageRecord
}

// DeviceReader produces accelerator records for one vendor family.
// Implementations cache immutable static info internally and perform a
// fresh acquisition of dynamic fields on every call.
type DeviceReader interface {
	Name() string
	ReadDevices() ([]model.DeviceRecord, error)
}

// ChassisReader produces node-level thermal/power telemetry.
type ChassisReader interface {
	Name() string
	ReadChassis() ([]model.ChassisRecord, error)
}

// ProcessReader produces the list of processes using devices from a
// vendor's accelerator family. A DeviceReader implementing this
// interface is probed for its process list only when --processes is
// requested.
type ProcessReader interface {
	ReadProcesses() ([]model.ProcessRecord, error)
}

// HostReader produces host CPU/memory/storage telemetry.
type HostReader interface {
	Name() string
	ReadCPU() ([]model.CpuRecord, error)
	ReadMemory() ([]model.MemoryRecord, error)
	ReadStorage() ([]model.StorageRecord, error)
}

// Registry holds every reader wired in for the running platform.
// buildRegistry, in probe.go, populates one per accelerator family
// detected on the host; a vendor with no
// hardware present is simply never registered, not probed and
// rejected: absent hardware is invisible, never an error.
type Registry struct {
	mu       sync.Mutex
	devices  []DeviceReader
	chassis  []ChassisReader
	hostOnly HostReader
}

// NewRegistry creates an empty registry. host is required; it backs
// the CPU/memory/storage families every platform must expose.
func NewRegistry(host HostReader) *Registry {
	return &Registry{hostOnly: host}
}

// AddDeviceReader registers one accelerator-family reader.
func (r *Registry) AddDeviceReader(d DeviceReader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, d)
}

// AddChassisReader registers one chassis-telemetry reader.
func (r *Registry) AddChassisReader(c ChassisReader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chassis = append(r.chassis, c)
}

// Collect runs every registered reader concurrently and merges their
// output into one Snapshot. A device or chassis reader that returns an
// error contributes nothing to the snapshot and is logged at debug
// level; host reader errors are logged at warn level. No error aborts
// collection of the other readers.
func (r *Registry) Collect() Snapshot {
	r.mu.Lock()
	devices := append([]DeviceReader(nil), r.devices...)
	chassis := append([]ChassisReader(nil), r.chassis...)
	host := r.hostOnly
	r.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var snap Snapshot

	wg.Add(len(devices) + len(chassis))
	for _, d := range devices {
		go func(d DeviceReader) {
			defer wg.Done()
			recs, err := d.ReadDevices()
			if err != nil {
				log.Debugf("%s device reader: %s", d.Name(), err)
				return
			}
			mu.Lock()
			snap.Devices = append(snap.Devices, recs...)
			mu.Unlock()
		}(d)
	}
	for _, c := range chassis {
		go func(c ChassisReader) {
			defer wg.Done()
			recs, err := c.ReadChassis()
			if err != nil {
				log.Debugf("%s chassis reader: %s", c.Name(), err)
				return
			}
			mu.Lock()
			snap.Chassis = append(snap.Chassis, recs...)
			mu.Unlock()
		}(c)
	}

	if host != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cpus, err := host.ReadCPU()
			if err != nil {
				log.Warnf("host cpu reader: %s", err)
			}
			mems, err := host.ReadMemory()
			if err != nil {
				log.Warnf("host memory reader: %s", err)
			}
			storage, err := host.ReadStorage()
			if err != nil {
				log.Warnf("host storage reader: %s", err)
			}
			mu.Lock()
			snap.CPUs = append(snap.CPUs, cpus...)
			snap.Memory = append(snap.Memory, mems...)
			snap.Storage = append(snap.Storage, storage...)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return snap
}

// CollectProcesses runs ReadProcesses on every registered device reader
// that implements ProcessReader. It is only invoked when the caller
// requested process lists with --processes; the extra per-device work
// is otherwise skipped entirely.
func (r *Registry) CollectProcesses() []model.ProcessRecord {
	r.mu.Lock()
	devices := append([]DeviceReader(nil), r.devices...)
	r.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []model.ProcessRecord

	for _, d := range devices {
		pr, ok := d.(ProcessReader)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, pr ProcessReader) {
			defer wg.Done()
			procs, err := pr.ReadProcesses()
			if err != nil {
				log.Debugf("%s process reader: %s", name, err)
				return
			}
			mu.Lock()
			out = append(out, procs...)
			mu.Unlock()
		}(d.Name(), pr)
	}

	wg.Wait()
	return out
}
