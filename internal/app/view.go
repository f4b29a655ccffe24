package app

import (
	"context"
	"time"

	"github.com/all-smi/all-smi/internal/collector"
	"github.com/all-smi/all-smi/internal/config"
	"github.com/all-smi/all-smi/internal/fleet"
	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
)

// StateSink receives the aggregated AppState once per cycle. The TUI
// renderer implements it; tests use a capture function.
type StateSink func(*model.AppState)

// RunView runs view mode until ctx is cancelled. With hosts configured
// it fans out over the fleet each interval; with none it polls local
// hardware, merging device records by uuid so absent devices retain
// their last value until the next full replace.
func RunView(ctx context.Context, view config.ViewConfig, fc config.FleetConfig, hist config.HistoryConfig, sink StateSink) error {
	if len(view.Hosts) > 0 {
		return runRemoteView(ctx, view, fc, hist, sink)
	}
	return runLocalView(ctx, view, hist, sink)
}

func runRemoteView(ctx context.Context, view config.ViewConfig, fc config.FleetConfig, hist config.HistoryConfig, sink StateSink) error {
	agg := fleet.NewAggregator(view.Hosts, fc, hist)
	interval := view.EffectiveInterval()
	log.Infof("view: polling %d hosts every %s", len(view.Hosts), interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		agg.RunCycle(ctx)
		if sink != nil {
			agg.Snapshot(sink)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func runLocalView(ctx context.Context, view config.ViewConfig, hist config.HistoryConfig, sink StateSink) error {
	apiDefaults := config.DefaultAPIConfig()
	reg, err := collector.BuildRegistry(int(apiDefaults.Port))
	if err != nil {
		return err
	}

	state := model.NewAppState(nil, hist.RingCapacity)
	interval := view.EffectiveInterval()
	log.Infof("view: polling local hardware every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap := reg.Collect()
		mergeLocalCycle(state, snap)
		if sink != nil {
			sink(state)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// mergeLocalCycle folds one local snapshot into state: devices merge
// in place by uuid, host families replace, history advances under the
// memory-total gate.
func mergeLocalCycle(state *model.AppState, snap collector.Snapshot) {
	state.MergeGPUInfoByUUID(snap.Devices)
	state.Chassis = snap.Chassis
	state.CPUs = snap.CPUs
	state.Memory = snap.Memory
	state.Storage = model.DedupStorage(snap.Storage)

	avgUtil, avgMemPct, avgTemp := fleet.Averages(snap.Devices)
	state.RecordCycle(snap.Devices, avgUtil, avgMemPct, avgTemp)
}
