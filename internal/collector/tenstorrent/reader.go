package tenstorrent

import (
	"fmt"
	"sync"
	"time"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
	"github.com/all-smi/all-smi/internal/notify"
)

const vendorSlot = "tenstorrent"

// telemetryCacheTTL bounds how often a device's ARC mailbox and BAR are
// actually touched; reads within the window return the cached decode.
const telemetryCacheTTL = 500 * time.Millisecond

// arcReadyTimeout is the total time one readiness check retries the
// NOP before the current read fails; a device that is not yet ready is
// checked again on its next read.
const arcReadyTimeout = 5 * time.Second

// heartbeatWindow is the spacing between the two telemetry snapshots
// used to confirm the ARC heartbeat counter is actually incrementing,
// as opposed to a firmware hang that still answers mailbox NOPs.
const heartbeatWindow = 100 * time.Millisecond

// device bundles one open /dev/tenstorrent/<id> with its resolved
// identity and the bookkeeping needed for caching and heartbeat checks.
type device struct {
	path     string
	fd       int
	bar      *memoryMappedBAR
	arch     Arch
	deviceID uint16
	mbox     *mailbox

	telemetryAddr uint32
	arcReady      bool

	mu            sync.Mutex
	cached        Telemetry
	cachedAt      time.Time
	lastHeartbeat uint32
}

// Reader implements collector.DeviceReader and collector.ChassisReader
// for Tenstorrent NPUs.
type Reader struct {
	hostname string
	instance string

	mu      sync.Mutex
	opened  bool
	devices []*device
}

// New creates a Tenstorrent reader. Device files are opened lazily on
// the first ReadDevices call.
func New(hostname, instance string) *Reader {
	return &Reader{hostname: hostname, instance: instance}
}

func (r *Reader) Name() string { return "tenstorrent" }

// ensureOpened enumerates and opens every /dev/tenstorrent/<id> node
// exactly once per process lifetime. A device that fails to open or
// whose architecture is unrecognized is skipped, not fatal to the rest
//.
func (r *Reader) ensureOpened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return
	}
	r.opened = true

	paths, err := enumerateDevices()
	if err != nil {
		notify.Default.Once(vendorSlot, fmt.Sprintf("no tenstorrent devices: %s", err))
		return
	}

	for _, p := range paths {
		fd, deviceID, b, openErr := openDevice(p)
		if openErr != nil {
			log.Debugf("tenstorrent: %s: %s", p, openErr)
			continue
		}
		arch := ArchFromDeviceID(deviceID)
		if arch == ArchUnknown {
			log.Warnf("tenstorrent: %s: unrecognized device id 0x%x", p, deviceID)
			continue
		}
		r.devices = append(r.devices, &device{
			path:     p,
			fd:       fd,
			bar:      b,
			arch:     arch,
			deviceID: deviceID,
			mbox:     newMailbox(b, arch),
		})
	}
}

// ensureARCReady gates a freshly-opened device on the ARC firmware
// answering a liveness NOP, retrying for up to arcReadyTimeout. The
// telemetry struct address is cached from getSmbusTelemetryAddr once
// ARC is confirmed ready.
func ensureARCReady(d *device) error {
	if d.arcReady {
		return nil
	}
	deadline := time.Now().Add(arcReadyTimeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := d.mbox.nop(time.Second); err != nil {
			lastErr = err
			continue
		}
		addr, err := d.mbox.getSmbusTelemetryAddr(time.Second)
		if err != nil {
			lastErr = err
			continue
		}
		d.telemetryAddr = addr
		d.arcReady = true
		return nil
	}
	if lastErr == nil {
		lastErr = errMailboxTimeout
	}
	return fmt.Errorf("tenstorrent: %s: ARC not ready: %w", d.path, lastErr)
}

// readTelemetry returns a fresh or cached telemetry decode for d,
// refreshing at most once per telemetryCacheTTL.
func (d *device) readTelemetry() (Telemetry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Since(d.cachedAt) < telemetryCacheTTL {
		return d.cached, nil
	}
	if err := ensureARCReady(d); err != nil {
		return Telemetry{}, err
	}

	blob := readTelemetryBlob(d.bar, d.telemetryAddr)
	t := DecodeTelemetry(blob, d.arch)
	d.cached = t
	d.cachedAt = time.Now()
	return t, nil
}

// heartbeatIncrementing confirms the ARC is live, not merely answering
// mailbox NOPs from a stuck loop, by comparing the heartbeat field
// across two reads separated by heartbeatWindow.
func (d *device) heartbeatIncrementing(first Telemetry) bool {
	time.Sleep(heartbeatWindow)
	blob := readTelemetryBlob(d.bar, d.telemetryAddr)
	second := DecodeTelemetry(blob, d.arch)
	incrementing := second.TimerHeartbeat != first.TimerHeartbeat
	d.lastHeartbeat = second.TimerHeartbeat
	return incrementing
}

// ReadDevices returns one DeviceRecord per Tenstorrent device, with
// ANEUtilization/DLAUtilization left nil (Apple-only fields) and
// Detail carrying firmware versions, board type, and collection method
//.
func (r *Reader) ReadDevices() ([]model.DeviceRecord, error) {
	r.ensureOpened()

	r.mu.Lock()
	devices := append([]*device(nil), r.devices...)
	r.mu.Unlock()

	var out []model.DeviceRecord
	for i, d := range devices {
		tel, err := d.readTelemetry()
		if err != nil {
			log.Debugf("tenstorrent: %s: %s", d.path, err)
			continue
		}

		boardType := BoardType(uint64(tel.BoardIDHigh)<<32 | uint64(tel.BoardIDLow))
		tdp := TDPForBoard(boardType)
		heartbeatLive := d.heartbeatIncrementing(tel)
		util := EstimateUtilization(tel.PowerWatts, tdp, float64(tel.AiclkMHz), heartbeatLive)

		detail := map[string]string{
			"collection_method": "device_file",
			"board_type":        boardType,
			"ARC Firmware":      fwVersionString(tel.ARC0FW),
			"ETH Firmware":      fwVersionString(tel.EthFW),
			"Board Type":        boardType,
		}

		rec := model.DeviceRecord{
			UUID:               fmt.Sprintf("tt-%s-%d", boardType, i),
			Name:               fmt.Sprintf("Tenstorrent %s %s", d.arch, boardType),
			DeviceType:         model.DeviceTypeNPU,
			Hostname:           r.hostname,
			Instance:           r.instance,
			Index:              i,
			Utilization:        util,
			MemoryTotalBytes:   0,
			TemperatureCelsius: uint32(tel.AsicTemperatureC),
			PowerWatts:         tel.PowerWatts,
			FrequencyMHz:       tel.AiclkMHz,
			Detail:             detail,
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadChassis reports each device's power and board temperature (as
// the inlet temperature) as chassis telemetry, since Tenstorrent boards have no separate chassis sensor
// hub the way Apple systems do.
func (r *Reader) ReadChassis() ([]model.ChassisRecord, error) {
	r.ensureOpened()

	r.mu.Lock()
	devices := append([]*device(nil), r.devices...)
	r.mu.Unlock()

	var out []model.ChassisRecord
	for _, d := range devices {
		tel, err := d.readTelemetry()
		if err != nil {
			continue
		}
		power := tel.PowerWatts
		boardTemp := tel.BoardTemperatureC
		out = append(out, model.ChassisRecord{
			Hostname:        r.hostname,
			Instance:        r.instance,
			TotalPowerWatts: &power,
			InletTempC:      &boardTemp,
			Detail: map[string]string{
				"device": d.path,
			},
		})
	}
	return out, nil
}

func fwVersionString(v [3]byte) string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}
