package tpu

import (
	"bufio"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
)

// streamingFreshness bounds how old the background scraper's last
// update may be before its snapshot is considered stale and discarded;
// a wedged or killed tpu-info process must not serve frozen numbers
// forever.
const streamingFreshness = 10 * time.Second

// tableRuntimeUtilization and tableTensorCoreUtilization are the two
// tables tpu-info's streaming output alternates between.
const (
	tableRuntimeUtilization    = "TPU Runtime Utilization"
	tableTensorCoreUtilization = "TensorCore Utilization"
)

var rowPattern = regexp.MustCompile(`^\s*(\d+)\s+(\S.*?)\s{2,}([\d.]+)\s*$`)

// streamingScraper owns one background OS thread running
// `tpu-info --streaming`, writing parsed samples into a
// mutex-protected map. The main runtime never blocks on it; it reads
// whatever the latest snapshot holds.
type streamingScraper struct {
	mu       sync.Mutex
	started  bool
	paused   bool
	lastSeen time.Time
	metrics  map[int]map[string]float64 // device index -> metric name -> value
	stopCh   chan struct{}
}

func newStreamingScraper() *streamingScraper {
	return &streamingScraper{metrics: make(map[int]map[string]float64)}
}

// ensureStarted spawns the background scraper exactly once. Calling it
// again after pause() resumes delivery without respawning the process.
func (s *streamingScraper) ensureStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	go s.run(s.stopCh)
}

// pause stops feeding fresh samples into the shared map without
// killing the process, so a later tier-1/tier-2 recovery followed by a
// second failure can resume immediately.
func (s *streamingScraper) pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *streamingScraper) run(stop chan struct{}) {
	cmd := exec.Command("tpu-info", "--streaming", "--rate", "2")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Debugf("tpu: streaming scraper: %s", err)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Debugf("tpu: streaming scraper: %s", err)
		return
	}
	defer cmd.Wait()

	activeTable := ""
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case <-stop:
			_ = cmd.Process.Kill()
			return
		default:
		}

		line := scanner.Text()
		switch {
		case strings.Contains(line, tableRuntimeUtilization):
			activeTable = "duty_cycle_percent"
			continue
		case strings.Contains(line, tableTensorCoreUtilization):
			activeTable = "tensorcore_utilization_percent"
			continue
		}

		if activeTable == "" {
			continue
		}
		m := rowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}

		s.record(index, activeTable, value)
	}
}

func (s *streamingScraper) record(index int, metric string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	if s.metrics[index] == nil {
		s.metrics[index] = make(map[string]float64)
	}
	s.metrics[index][metric] = value
	s.lastSeen = time.Now()
}

// snapshot returns one DeviceRecord per device index the scraper has
// ever seen, or nil if the last sample is older than streamingFreshness
// (stale scraper).
func (s *streamingScraper) snapshot(hostname, instance string) []model.DeviceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSeen.IsZero() || time.Since(s.lastSeen) > streamingFreshness {
		return nil
	}

	var records []model.DeviceRecord
	for index, values := range s.metrics {
		records = append(records, model.DeviceRecord{
			UUID:        deviceUUID(int32(index)),
			Name:        "Google TPU",
			DeviceType:  model.DeviceTypeTPU,
			Hostname:    hostname,
			Instance:    instance,
			Index:       index,
			Utilization: values["duty_cycle_percent"],
			Detail:      map[string]string{"collection_method": "tpu-info-streaming"},
		})
	}
	return records
}
