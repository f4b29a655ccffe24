package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/all-smi/all-smi/internal/config"
	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/metricsparse"
	"github.com/all-smi/all-smi/internal/model"
)

// noResponseError is the status message recorded for a host that has
// never produced a fetch outcome since startup.
const noResponseError = "No response received"

// Aggregator drives remote/view mode: each cycle it fans out over the
// configured host list, parses successful bodies and folds the results
// into its AppState under the per-host merge rules.
type Aggregator struct {
	cfg     config.FleetConfig
	hosts   []string // configured entries, input order
	ids     []string // HostID per hosts entry, same order
	fetcher *Fetcher

	mu    sync.Mutex
	state *model.AppState

	now func() time.Time
}

// NewAggregator creates an Aggregator polling hosts, with history rings
// bounded by hist.RingCapacity.
func NewAggregator(hosts []string, cfg config.FleetConfig, hist config.HistoryConfig) *Aggregator {
	ids := HostIDs(hosts)
	return &Aggregator{
		cfg:     cfg,
		hosts:   append([]string(nil), hosts...),
		ids:     ids,
		fetcher: NewFetcher(cfg),
		state:   model.NewAppState(ids, hist.RingCapacity),
		now:     time.Now,
	}
}

// State returns the aggregator's AppState. Callers must treat it as
// read-only outside the aggregator's own cycle; the TUI reads it
// between cycles under Snapshot.
func (a *Aggregator) State() *model.AppState { return a.state }

// Snapshot runs fn with the state locked, for readers that need a
// consistent view while a cycle may be merging.
func (a *Aggregator) Snapshot(fn func(*model.AppState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.state)
}

// RunCycle performs one fetch-parse-merge cycle. It returns within the
// cycle deadline plus scheduling noise regardless of peer behavior:
// hosts still in flight when the deadline fires contribute nothing this
// cycle and retain their previous ConnectionStatus.
func (a *Aggregator) RunCycle(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.CycleDeadline)
	defer cancel()

	outcomes := a.fetcher.FetchAll(cctx, a.hosts)
	received := make(map[string]Outcome, len(a.hosts))

collect:
	for {
		select {
		case o, ok := <-outcomes:
			if !ok {
				break collect
			}
			received[o.HostID] = o
		case <-cctx.Done():
			break collect
		}
	}

	a.merge(received)
}

// hostnameOf extracts the peer's self-reported hostname from a parse
// result, falling back across record families since a host with no
// accelerators still reports CPU and memory.
func hostnameOf(r metricsparse.Result) string {
	if len(r.CPUs) > 0 {
		return r.CPUs[0].Hostname
	}
	if len(r.Memory) > 0 {
		return r.Memory[0].Hostname
	}
	if len(r.Devices) > 0 {
		return r.Devices[0].Hostname
	}
	if len(r.Storage) > 0 {
		return r.Storage[0].Hostname
	}
	return ""
}

// merge folds one cycle's outcomes into the AppState.
func (a *Aggregator) merge(received map[string]Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var devices []model.DeviceRecord
	var chassis []model.ChassisRecord
	var cpus []model.CpuRecord
	var memory []model.MemoryRecord
	var storage []model.StorageRecord

	for i, id := range a.ids {
		prior, known := a.state.Connections[id]
		if !known {
			prior = model.ConnectionStatus{ConfiguredURL: MetricsURL(a.hosts[i])}
		}

		o, ok := received[id]
		switch {
		case !ok && !known:
			// Never heard from this host: record the default failure so
			// the tab renders as unreachable rather than missing.
			prior.Connected = false
			prior.ConsecutiveFailure++
			prior.LastError = noResponseError
			prior.LastUpdate = now
			a.state.Connections[id] = prior

		case !ok:
			// In flight past the deadline, or simply not produced this
			// cycle: prior status is preserved untouched.

		case o.Err != nil:
			prior.Connected = false
			prior.ConsecutiveFailure++
			prior.LastError = o.Err.Error()
			prior.LastUpdate = now
			a.state.Connections[id] = prior

		default:
			result := metricsparse.Parse(o.Body)
			for j := range result.Devices {
				result.Devices[j].HostID = id
				result.Devices[j].Time = now
			}
			devices = append(devices, result.Devices...)
			chassis = append(chassis, result.Chassis...)
			cpus = append(cpus, result.CPUs...)
			memory = append(memory, result.Memory...)
			storage = append(storage, result.Storage...)

			if h := hostnameOf(result); h != "" {
				prior.Hostname = h
			}
			prior.Connected = true
			prior.LastSuccess = now
			prior.ConsecutiveFailure = 0
			prior.LastError = ""
			prior.LastUpdate = now
			a.state.Connections[id] = prior
		}
	}

	// The reverse map supports tab-name display and is rebuilt from
	// currently-successful statuses only, so a stale hostname from a
	// failing peer cannot shadow a healthy one.
	a.state.HostnameToHostID = make(map[string]string)
	for id, st := range a.state.Connections {
		if st.Connected && st.Hostname != "" {
			a.state.HostnameToHostID[st.Hostname] = id
		}
	}

	model.SortDeviceList(devices)
	a.state.ReplaceGPUInfo(devices)
	a.state.Chassis = chassis
	a.state.CPUs = cpus
	a.state.Memory = memory
	a.state.Storage = model.DedupStorage(storage)

	avgUtil, avgMemPct, avgTemp := Averages(devices)
	a.state.RecordCycle(devices, avgUtil, avgMemPct, avgTemp)

	log.Debugf("cycle merged: %d hosts responded, %d devices", len(received), len(devices))
}

// Averages computes the cycle's device-wide average utilization,
// memory percentage and temperature fed into the history rings. Memory
// is averaged as a percentage over devices that report a total.
func Averages(devices []model.DeviceRecord) (avgUtil, avgMemPct, avgTemp float64) {
	if len(devices) == 0 {
		return 0, 0, 0
	}

	var memSamples int
	for _, d := range devices {
		avgUtil += d.Utilization
		avgTemp += float64(d.TemperatureCelsius)
		if d.MemoryTotalBytes > 0 {
			avgMemPct += float64(d.MemoryUsedBytes) / float64(d.MemoryTotalBytes) * 100
			memSamples++
		}
	}
	avgUtil /= float64(len(devices))
	avgTemp /= float64(len(devices))
	if memSamples > 0 {
		avgMemPct /= float64(memSamples)
	}
	return avgUtil, avgMemPct, avgTemp
}
