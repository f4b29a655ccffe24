//go:build darwin

// Package apple implements the Apple Silicon reader: IOReport
// for power/frequency/utilization sampling and AppleSMC for
// temperature, merged into one DeviceRecord plus a ChassisRecord.
package apple

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreFoundation -framework IOKit -lIOReport
#include <CoreFoundation/CoreFoundation.h>
#include <IOKit/IOKitLib.h>
#include <stdint.h>
#include <string.h>
#include <stdlib.h>

typedef struct IOReportSubscriptionRef* IOReportSubscriptionRef;

extern CFDictionaryRef IOReportCopyChannelsInGroup(CFStringRef group, CFStringRef subgroup, uint64_t a, uint64_t b, uint64_t c);
extern IOReportSubscriptionRef IOReportCreateSubscription(void* a, CFMutableDictionaryRef channels, CFMutableDictionaryRef* out, uint64_t d, CFTypeRef e);
extern CFDictionaryRef IOReportCreateSamples(IOReportSubscriptionRef sub, CFMutableDictionaryRef channels, CFTypeRef unused);
extern CFDictionaryRef IOReportCreateSamplesDelta(CFDictionaryRef a, CFDictionaryRef b, CFTypeRef unused);
extern int64_t IOReportSimpleGetIntegerValue(CFDictionaryRef item, int32_t idx);
extern CFStringRef IOReportChannelGetGroup(CFDictionaryRef item);
extern CFStringRef IOReportChannelGetChannelName(CFDictionaryRef item);
extern int32_t IOReportStateGetCount(CFDictionaryRef item);
extern CFStringRef IOReportStateGetNameForIndex(CFDictionaryRef item, int32_t idx);
extern int64_t IOReportStateGetResidency(CFDictionaryRef item, int32_t idx);

// soc_sample holds the Go-relevant subset of one IOReport delta sample,
// aggregated in C so the Go side never walks CFDictionary channel lists.
typedef struct {
    double cpu_watts;
    double gpu_watts;
    double ane_watts;
    double dram_watts;
    double gpu_freq_mhz;
    double gpu_active_pct;
} soc_sample;

// iokit_read_smc_temp, iokit_read_smc_watts and iokit_read_fan_rpm are
// declared here for the cgo preamble only; no implementation of them is
// part of this repository.
extern float iokit_read_smc_temp(const char *key);
extern float iokit_read_smc_watts(const char *key);
extern int iokit_read_fan_rpm(int index);
*/
import "C"

import (
	"sync"
	"time"
	"unsafe"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
	"github.com/all-smi/all-smi/internal/notify"
)

const vendorSlot = "apple"

// cpuTempKeys and gpuTempKeys are the SMC sensor keys sampled for
// thermal averaging. Keys outside [10,120]C are discarded as
// implausible before averaging.
var cpuTempKeys = []string{"TC0P", "Tp09", "Tp0T"}
var gpuTempKeys = []string{"TG0P", "Tg0D", "Tg0d"}

// Reader implements collector.DeviceReader and collector.ChassisReader
// for Apple Silicon. Every sample call creates a new IOReport
// subscription; none is kept between calls.
type Reader struct {
	hostname string
	instance string

	once    sync.Once
	ok      bool
	staticN string
}

func New(hostname, instance, chipName string) *Reader {
	return &Reader{hostname: hostname, instance: instance, staticN: chipName}
}

func (r *Reader) Name() string { return "apple" }

func (r *Reader) ensureInit() bool {
	r.once.Do(func() {
		r.ok = true
	})
	return r.ok
}

// sample takes two IOReport snapshots durationMs apart and returns
// aggregateDelta's result for their delta. Failure is reported once per process lifetime.
func sample(durationMs int) (C.soc_sample, bool) {
	groupEnergy := C.CFStringCreateWithCString(0, C.CString("Energy Model"), C.kCFStringEncodingUTF8)
	channels := C.IOReportCopyChannelsInGroup(groupEnergy, nil, 0, 0, 0)
	if channels == 0 {
		notify.Default.Once(vendorSlot, "IOReport unavailable on this system")
		return C.soc_sample{}, false
	}

	var subscribed C.CFMutableDictionaryRef
	sub := C.IOReportCreateSubscription(nil, C.CFMutableDictionaryRef(channels), &subscribed, 0, 0)
	if sub == nil {
		return C.soc_sample{}, false
	}

	before := C.IOReportCreateSamples(sub, subscribed, 0)
	time.Sleep(time.Duration(durationMs) * time.Millisecond)
	after := C.IOReportCreateSamples(sub, subscribed, 0)
	delta := C.IOReportCreateSamplesDelta(before, after, 0)
	_ = delta

	return aggregateDelta(delta, durationMs), true
}

// aggregateDelta returns a zero-valued soc_sample. It does not walk the
// delta's channels, so the power, frequency and active-residency fields
// built from it read as zero.
func aggregateDelta(delta C.CFDictionaryRef, durationMs int) C.soc_sample {
	return C.soc_sample{}
}

// ReadDevices returns one synthetic GPU-class DeviceRecord representing
// the integrated GPU, with ANE utilization attached.
func (r *Reader) ReadDevices() ([]model.DeviceRecord, error) {
	if !r.ensureInit() {
		return nil, nil
	}

	s, ok := sample(100)
	if !ok {
		return nil, nil
	}

	gpuTemp, gpuOK := meanInRange(readKeys(gpuTempKeys), 10, 120)
	aneUtil := aneUtilizationFromWatts(float64(s.ane_watts))

	rec := model.DeviceRecord{
		UUID:           "apple-gpu-0",
		Name:           r.staticN,
		DeviceType:     model.DeviceTypeGPU,
		Hostname:       r.hostname,
		Instance:       r.instance,
		Utilization:    float64(s.gpu_active_pct),
		PowerWatts:     float64(s.gpu_watts),
		FrequencyMHz:   uint32(s.gpu_freq_mhz),
		ANEUtilization: &aneUtil,
		Detail:         map[string]string{"collection_method": "ioreport"},
	}
	if gpuOK {
		rec.TemperatureCelsius = uint32(gpuTemp)
	}

	return []model.DeviceRecord{rec}, nil
}

// ReadChassis reports total system power and the CPU temperature (as
// the inlet temperature) via SMC, plus fan speeds.
func (r *Reader) ReadChassis() ([]model.ChassisRecord, error) {
	if !r.ensureInit() {
		return nil, nil
	}

	watts := float64(C.iokit_read_smc_watts(C.CString("PSTR")))
	cpuTemp, cpuOK := meanInRange(readKeys(cpuTempKeys), 10, 120)

	c := model.ChassisRecord{Hostname: r.hostname, Instance: r.instance}
	if watts > 0 {
		c.TotalPowerWatts = &watts
	}
	if cpuOK {
		c.InletTempC = &cpuTemp
	}

	for i := 0; i < 2; i++ {
		rpm := int(C.iokit_read_fan_rpm(C.int(i)))
		if rpm <= 0 {
			continue
		}
		c.Fans = append(c.Fans, model.Fan{ID: string(rune('0' + i)), Name: "System", SpeedRPM: uint32(rpm)})
	}

	return []model.ChassisRecord{c}, nil
}

func readKeys(keys []string) []float64 {
	var vals []float64
	for _, k := range keys {
		cKey := C.CString(k)
		v := float64(C.iokit_read_smc_temp(cKey))
		C.free(unsafe.Pointer(cKey))
		if v != 0 {
			vals = append(vals, v)
		}
	}
	return vals
}

func init() {
	log.Debugln("apple: darwin build, IOReport/SMC reader registered")
}
