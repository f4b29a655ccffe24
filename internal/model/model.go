// Package model defines the plain data records that flow through the
// core: device readers construct them, the exposition builder renders
// them to Prometheus text, and the fleet aggregator reconstructs them
// from a peer's scrape body. Ownership is single-writer; records move by
// value or by explicit copy, never by shared mutable reference across
// goroutines.
package model

import "time"

// DeviceType enumerates the accelerator classes the core understands.
type DeviceType string

const (
	DeviceTypeGPU DeviceType = "GPU"
	DeviceTypeNPU DeviceType = "NPU"
	DeviceTypeTPU DeviceType = "TPU"
)

// ThermalPressure is Apple's four-level thermal classification.
type ThermalPressure string

const (
	ThermalNominal  ThermalPressure = "Nominal"
	ThermalFair     ThermalPressure = "Fair"
	ThermalSerious  ThermalPressure = "Serious"
	ThermalCritical ThermalPressure = "Critical"
)

// CPUPlatform classifies the host CPU vendor/architecture family.
type CPUPlatform string

const (
	CPUPlatformIntel CPUPlatform = "Intel"
	CPUPlatformAMD   CPUPlatform = "Amd"
	CPUPlatformARM   CPUPlatform = "Arm"
	CPUPlatformApple CPUPlatform = "AppleSilicon"
	CPUPlatformOther CPUPlatform = "Other"
)

// CoreType tags a CPU core as standard or, on hybrid parts, its cluster.
type CoreType string

const (
	CoreTypeStandard    CoreType = "Standard"
	CoreTypePerformance CoreType = "Performance"
	CoreTypeEfficiency  CoreType = "Efficiency"
)

// DeviceRecord is one sample of one accelerator.
type DeviceRecord struct {
	UUID       string
	Name       string
	DeviceType DeviceType
	HostID     string
	Hostname   string
	Instance   string
	Index      int
	Time       time.Time

	Utilization        float64
	MemoryUsedBytes    uint64
	MemoryTotalBytes   uint64
	TemperatureCelsius uint32
	PowerWatts         float64
	FrequencyMHz       uint32

	ANEUtilization *float64
	DLAUtilization *float64
	GPUCoreCount   *uint32

	// Detail carries vendor-specific fields already stringified for
	// exposition (firmware versions, PCIe link width, board id, thermal
	// pressure level, collection method). Keys are unique; insertion
	// order is irrelevant.
	Detail map[string]string
}

// CloneDetail returns a shallow copy of d.Detail safe to mutate.
func (d DeviceRecord) CloneDetail() map[string]string {
	out := make(map[string]string, len(d.Detail))
	for k, v := range d.Detail {
		out[k] = v
	}
	return out
}

// Fan describes one chassis fan reading.
type Fan struct {
	ID       string
	Name     string
	SpeedRPM uint32
}

// ChassisRecord is node-level thermal/power telemetry, mainly populated on
// Apple Silicon and servers exposing BMC sensors.
type ChassisRecord struct {
	Hostname string
	Instance string

	TotalPowerWatts *float64
	ThermalPressure *ThermalPressure
	InletTempC      *float64
	OutletTempC     *float64

	Fans []Fan

	// Detail carries component power breakdown (cpu_watts, gpu_watts,
	// ane_watts, dram_watts, ...) already stringified.
	Detail map[string]string
}

// CoreUtilization is one core's utilization sample tagged by its type.
type CoreUtilization struct {
	Index       int
	Utilization float64
	Type        CoreType
}

// SocketRecord is per-socket CPU telemetry.
type SocketRecord struct {
	Index       int
	Utilization float64
	Cores       []CoreUtilization
}

// CpuRecord is per-host-socket-group CPU telemetry. When the host is
// containerized, counts and utilization are scaled by the effective-CPU
// factor (see internal/container).
type CpuRecord struct {
	Hostname     string
	Instance     string
	Model        string
	Architecture string
	Platform     CPUPlatform

	SocketCount int
	CoreCount   int
	ThreadCount int

	BaseMHz  uint32
	MaxMHz   uint32
	CacheMiB float64

	Utilization float64
	Sockets     []SocketRecord

	// ContainerScaled is true when Utilization/CoreCount were scaled by
	// the effective-CPU factor because the host is containerized.
	ContainerScaled bool
	EffectiveCPUs   float64
}

// MemoryRecord is host memory telemetry. In containers TotalBytes reflects
// the container limit and UsedBytes reflects cgroup accounting.
type MemoryRecord struct {
	Hostname       string
	Instance       string
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	CachedBytes    uint64
	Utilization    float64
}

// ProcessRecord is one process using a device, plus the standard host
// process fields.
type ProcessRecord struct {
	PID             int32
	DeviceIndex     int
	DeviceUUID      string
	ProcessName     string
	UsedMemoryBytes uint64

	User       string
	State      string
	RSSBytes   uint64
	VMSBytes   uint64
	CPUPercent float64
	Nice       int32
	Priority   int32
	Threads    int32
	Command    string
}

// StorageRecord is one mounted filesystem. Deduplication key is
// (Hostname, MountPoint).
type StorageRecord struct {
	Hostname       string
	Index          int
	MountPoint     string
	TotalBytes     uint64
	AvailableBytes uint64
}

// DedupKey returns the (hostname, mount_point) identity used for
// deduplicating storage rows fleet-wide.
func (s StorageRecord) DedupKey() string { return s.Hostname + "\x00" + s.MountPoint }

// ConnectionStatus tracks the health of one remote peer in view/remote
// mode. It is keyed by the host:port extracted from the configured URL,
// never by the peer's self-reported hostname.
type ConnectionStatus struct {
	ConfiguredURL      string
	Hostname           string // most-recently-seen peer hostname; may lag
	Connected          bool
	LastSuccess        time.Time
	ConsecutiveFailure int
	LastError          string
	LastUpdate         time.Time
}
