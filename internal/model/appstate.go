package model

import "sort"

// HistoryRing is a bounded, append-only ring of samples. It is the only
// persisted-in-memory history the core keeps; there is no on-disk history.
type HistoryRing struct {
	capacity int
	samples  []float64
}

// NewHistoryRing creates a ring bounded to capacity samples.
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryRing{capacity: capacity}
}

// Append adds v, evicting the oldest sample once capacity is exceeded.
func (r *HistoryRing) Append(v float64) {
	r.samples = append(r.samples, v)
	if len(r.samples) > r.capacity {
		r.samples = r.samples[len(r.samples)-r.capacity:]
	}
}

// Samples returns the ring contents, oldest first.
func (r *HistoryRing) Samples() []float64 {
	out := make([]float64, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len reports how many samples are currently held.
func (r *HistoryRing) Len() int { return len(r.samples) }

// AppState is the aggregator's in-memory view of the fleet (or of the
// local host, in local/API mode). It has no persisted form: a restart
// loses history and ConnectionStatus entirely.
type AppState struct {
	// KnownHosts preserves the input host-list order; it is the source
	// of truth for tab ordering in the TUI, independent of map iteration.
	KnownHosts []string

	// Connections is the host_id -> ConnectionStatus map; it is the
	// source of truth for tab visibility.
	Connections map[string]ConnectionStatus

	// HostnameToHostID is rebuilt each cycle from currently-successful
	// statuses, to support tab-name display by the peer's actual
	// self-reported hostname.
	HostnameToHostID map[string]string

	GPUInfo []DeviceRecord
	Chassis []ChassisRecord
	CPUs    []CpuRecord
	Memory  []MemoryRecord
	Storage []StorageRecord

	UtilizationHistory map[string]*HistoryRing
	MemoryHistory      map[string]*HistoryRing
	TemperatureHistory map[string]*HistoryRing

	historyCapacity int
}

// NewAppState creates an AppState whose history rings are bounded to
// historyCapacity samples, with hosts pre-seeded in the given order so
// that known-hosts order is preserved from input.
func NewAppState(hosts []string, historyCapacity int) *AppState {
	s := &AppState{
		KnownHosts:         append([]string(nil), hosts...),
		Connections:        make(map[string]ConnectionStatus, len(hosts)),
		HostnameToHostID:   make(map[string]string),
		UtilizationHistory: make(map[string]*HistoryRing),
		MemoryHistory:      make(map[string]*HistoryRing),
		TemperatureHistory: make(map[string]*HistoryRing),
		historyCapacity:    historyCapacity,
	}
	return s
}

// ringFor returns (creating if necessary) the named ring in m.
func ringFor(m map[string]*HistoryRing, key string, capacity int) *HistoryRing {
	r, ok := m[key]
	if !ok {
		r = NewHistoryRing(capacity)
		m[key] = r
	}
	return r
}

// RecordCycle appends one cycle's fleet-wide aggregate samples to the
// history rings, but only when at least one device in devices has a
// non-zero MemoryTotalBytes: this prevents a transient
// empty scrape from corrupting rolling averages. avgUtil/avgMem/avgTemp
// are the already-computed fleet-wide averages for this cycle.
func (s *AppState) RecordCycle(devices []DeviceRecord, avgUtil, avgMemPct, avgTemp float64) {
	hasMemory := false
	for _, d := range devices {
		if d.MemoryTotalBytes != 0 {
			hasMemory = true
			break
		}
	}
	if !hasMemory {
		return
	}

	ringFor(s.UtilizationHistory, "fleet", s.historyCapacity).Append(avgUtil)
	ringFor(s.MemoryHistory, "fleet", s.historyCapacity).Append(avgMemPct)
	ringFor(s.TemperatureHistory, "fleet", s.historyCapacity).Append(avgTemp)
}

// ReplaceGPUInfo implements the remote-mode replacement rule (invariant
// iii): gpu_info is replaced atomically per cycle.
func (s *AppState) ReplaceGPUInfo(devices []DeviceRecord) {
	s.GPUInfo = devices
}

// MergeGPUInfoByUUID implements the local-mode merge rule:
// update-in-place by uuid; absent uuids retain their last value and are
// not removed until the next full replace.
func (s *AppState) MergeGPUInfoByUUID(devices []DeviceRecord) {
	byUUID := make(map[string]int, len(s.GPUInfo))
	for i, d := range s.GPUInfo {
		byUUID[d.UUID] = i
	}

	for _, d := range devices {
		if i, ok := byUUID[d.UUID]; ok {
			s.GPUInfo[i] = d
		} else {
			s.GPUInfo = append(s.GPUInfo, d)
			byUUID[d.UUID] = len(s.GPUInfo) - 1
		}
	}
}

// SortDeviceList sorts devices by (hostname, index) as required by the
// remote-mode ordering guarantee.
func SortDeviceList(devices []DeviceRecord) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Hostname != devices[j].Hostname {
			return devices[i].Hostname < devices[j].Hostname
		}
		return devices[i].Index < devices[j].Index
	})
}

// DedupStorage deduplicates storage rows by (hostname, mount_point) and
// sorts the result by (hostname, mount_point). It is idempotent:
// DedupStorage(DedupStorage(s)) == DedupStorage(s).
func DedupStorage(rows []StorageRecord) []StorageRecord {
	seen := make(map[string]StorageRecord, len(rows))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		key := r.DedupKey()
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
		// Last writer for a given key wins, matching the "merge" semantics
		// used for connection status.
		seen[key] = r
	}

	out := make([]StorageRecord, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].MountPoint < out[j].MountPoint
	})
	return out
}

// TabOrder returns host identifiers in known-hosts input order, which is
// the order the TUI must render tabs in regardless of connection map
// iteration order.
func (s *AppState) TabOrder() []string {
	return append([]string(nil), s.KnownHosts...)
}
