// Package app orchestrates the two run modes of the binary: API mode
// (scrape local hardware on an interval, serve the exposition body over
// HTTP) and view mode (poll local hardware, or fan out over a fleet of
// API-mode peers and aggregate).
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/all-smi/all-smi/internal/collector"
	"github.com/all-smi/all-smi/internal/config"
	"github.com/all-smi/all-smi/internal/exposition"
	"github.com/all-smi/all-smi/internal/http"
	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
)

// Version is stamped by the build; the /version endpoint reports it.
var Version = "devel"

// bodyHolder stores the most recent exposition body. The HTTP server
// reads whatever is current; collection replaces it atomically each
// interval, so a scrape never observes a half-written body.
type bodyHolder struct {
	mu   sync.RWMutex
	body string
}

func (h *bodyHolder) MetricsBody() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.body
}

func (h *bodyHolder) set(body string) {
	h.mu.Lock()
	h.body = body
	h.mu.Unlock()
}

// renderBody builds the exposition text for one snapshot. Families with
// no samples are absent from the output, keeping scrape bodies empty on
// hosts with no detectable devices.
func renderBody(snap collector.Snapshot, procs []model.ProcessRecord) string {
	b := exposition.New()
	exposition.WriteDevices(b, snap.Devices)
	exposition.WriteChassis(b, snap.Chassis)
	exposition.WriteCPU(b, snap.CPUs)
	exposition.WriteMemory(b, snap.Memory)
	exposition.WriteStorage(b, snap.Storage)
	exposition.WriteProcesses(b, procs)
	return b.String()
}

// RunAPI runs API mode until ctx is cancelled: collect once per
// interval, refresh the served body, serve /metrics. The only fatal
// error is failure to bind the port.
func RunAPI(ctx context.Context, cfg config.APIConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	reg, err := collector.BuildRegistry(int(cfg.Port))
	if err != nil {
		return fmt.Errorf("assemble readers: %w", err)
	}

	holder := &bodyHolder{}
	refresh := func() {
		snap := reg.Collect()
		var procs []model.ProcessRecord
		if cfg.IncludeProcesses {
			procs = reg.CollectProcesses()
		}
		holder.set(renderBody(snap, procs))
	}
	// Serve a populated body from the very first scrape.
	refresh()

	srv := http.NewServer(http.ServerConfig{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Version: Version,
	}, holder)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	ticker := time.NewTicker(cfg.ScrapeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			refresh()
		case err := <-serveErr:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("server shutdown: %s", err)
			}
			return nil
		}
	}
}
