// Package config defines the durable configuration knobs the core owns:
// adaptive-interval thresholds, retry counts, stagger parameters, HTTP pool
// settings and the concurrency-cap function. CLI flag parsing
// itself lives in cmd; this package
// defines the struct an external CLI layer populates and validates.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FleetConfig holds the knobs driving the remote aggregation
// pipeline.
type FleetConfig struct {
	// CycleDeadline bounds how long the aggregator waits for one cycle's
	// worth of peer responses before moving on with partial results.
	CycleDeadline time.Duration `yaml:"cycle_deadline"`

	// PerRequestTimeout bounds a single HTTP GET attempt.
	PerRequestTimeout time.Duration `yaml:"per_request_timeout"`

	// RetryCount is the number of attempts (including the first) made
	// per host per cycle before giving up.
	RetryCount int `yaml:"retry_count"`

	// RetryBaseDelay is the base of the exponential backoff between
	// retries: attempt n sleeps RetryBaseDelay * 2^(n-1).
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// StaggerWindow is the total span over which the concurrent
	// fan-out's connection starts are spread.
	StaggerWindow time.Duration `yaml:"stagger_window"`

	// IdleConnTimeout bounds how long a pooled connection may sit idle.
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// MaxConcurrency and MinConcurrency bound the adaptive concurrency
	// cap computed from the fleet size by ConcurrencyCap.
	MinConcurrency int `yaml:"min_concurrency"`
	MaxConcurrency int `yaml:"max_concurrency"`

	// SmallFleetThreshold and LargeFleetThreshold are the |H| breakpoints
	// ConcurrencyCap uses to pick between small/medium/large fan-out.
	SmallFleetThreshold int `yaml:"small_fleet_threshold"`
	LargeFleetThreshold int `yaml:"large_fleet_threshold"`
}

// DefaultFleetConfig returns the stock defaults.
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		CycleDeadline:       4 * time.Second,
		PerRequestTimeout:   2 * time.Second,
		RetryCount:          3,
		RetryBaseDelay:      100 * time.Millisecond,
		StaggerWindow:       500 * time.Millisecond,
		IdleConnTimeout:     60 * time.Second,
		MinConcurrency:      4,
		MaxConcurrency:      64,
		SmallFleetThreshold: 20,
		LargeFleetThreshold: 200,
	}
}

// applyEnvDuration overrides d with the environment variable named key, if
// set and parseable.
func applyEnvDuration(key string, d *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err == nil {
		*d = parsed
	}
}

func applyEnvInt(key string, i *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err == nil {
		*i = parsed
	}
}

// ApplyEnv overrides fc's fields from ALL_SMI_* environment variables,
// falling back to the struct's existing values when unset or unparseable.
func (fc *FleetConfig) ApplyEnv() {
	applyEnvDuration("ALL_SMI_CYCLE_DEADLINE", &fc.CycleDeadline)
	applyEnvDuration("ALL_SMI_PER_REQUEST_TIMEOUT", &fc.PerRequestTimeout)
	applyEnvInt("ALL_SMI_RETRY_COUNT", &fc.RetryCount)
	applyEnvDuration("ALL_SMI_RETRY_BASE_DELAY", &fc.RetryBaseDelay)
	applyEnvDuration("ALL_SMI_STAGGER_WINDOW", &fc.StaggerWindow)
	applyEnvDuration("ALL_SMI_IDLE_CONN_TIMEOUT", &fc.IdleConnTimeout)
	applyEnvInt("ALL_SMI_MIN_CONCURRENCY", &fc.MinConcurrency)
	applyEnvInt("ALL_SMI_MAX_CONCURRENCY", &fc.MaxConcurrency)
}

// Validate returns an error describing the first invalid field found.
func (fc FleetConfig) Validate() error {
	if fc.CycleDeadline <= 0 {
		return fmt.Errorf("cycle_deadline must be positive")
	}
	if fc.RetryCount < 1 {
		return fmt.Errorf("retry_count must be at least 1")
	}
	if fc.MinConcurrency < 1 || fc.MaxConcurrency < fc.MinConcurrency {
		return fmt.Errorf("concurrency bounds invalid: min=%d max=%d", fc.MinConcurrency, fc.MaxConcurrency)
	}
	return nil
}

// ConcurrencyCap computes the adaptive concurrency cap K for a fleet of
// size n: small fleets get higher concurrency, large fleets cap
// to avoid listen-queue overwhelm.
func (fc FleetConfig) ConcurrencyCap(n int) int {
	if n <= 0 {
		return fc.MinConcurrency
	}

	var k int
	switch {
	case n <= fc.SmallFleetThreshold:
		k = n
	case n <= fc.LargeFleetThreshold:
		k = fc.SmallFleetThreshold + (n-fc.SmallFleetThreshold)/2
	default:
		k = fc.MaxConcurrency
	}

	if k < fc.MinConcurrency {
		k = fc.MinConcurrency
	}
	if k > fc.MaxConcurrency {
		k = fc.MaxConcurrency
	}
	return k
}

// APIConfig holds settings for API mode.
type APIConfig struct {
	Port             uint16        `yaml:"port"`
	ScrapeInterval   time.Duration `yaml:"scrape_interval"`
	IncludeProcesses bool          `yaml:"include_processes"`
}

// DefaultAPIConfig returns the stock defaults (port 9090, 3s interval).
func DefaultAPIConfig() APIConfig {
	return APIConfig{Port: 9090, ScrapeInterval: 3 * time.Second}
}

// Validate checks APIConfig invariants.
func (c APIConfig) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("port must not be zero")
	}
	if c.ScrapeInterval <= 0 {
		return fmt.Errorf("scrape_interval must be positive")
	}
	return nil
}

// HistoryConfig bounds the in-memory rolling history rings; there is no persisted history.
type HistoryConfig struct {
	RingCapacity int `yaml:"ring_capacity"`
}

// DefaultHistoryConfig returns a sane default ring length.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{RingCapacity: 120}
}

// ViewConfig holds settings for view mode. Hosts is the static input
// host list (the core does not discover hosts); when empty, view mode
// polls local hardware instead of fanning out.
type ViewConfig struct {
	Hosts    []string      `yaml:"hosts"`
	Interval time.Duration `yaml:"interval"`
}

// adaptiveIntervals maps fleet-size breakpoints to the default poll
// interval used when the operator did not pass one explicitly: larger
// fleets poll slower so the fan-out finishes well inside the cycle.
var adaptiveIntervals = []struct {
	maxHosts int
	interval time.Duration
}{
	{10, 2 * time.Second},
	{50, 3 * time.Second},
	{100, 4 * time.Second},
	{200, 5 * time.Second},
}

// AdaptiveInterval returns the default poll interval for a fleet of n
// hosts. Fleets beyond the last breakpoint settle at 6 seconds.
func AdaptiveInterval(n int) time.Duration {
	for _, row := range adaptiveIntervals {
		if n <= row.maxHosts {
			return row.interval
		}
	}
	return 6 * time.Second
}

// EffectiveInterval resolves the poll interval: an explicit value wins,
// otherwise the adaptive table keyed on the fleet size decides.
func (c ViewConfig) EffectiveInterval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	return AdaptiveInterval(len(c.Hosts))
}
