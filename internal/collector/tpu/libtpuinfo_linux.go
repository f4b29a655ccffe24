//go:build linux

package tpu

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*tpu_chip_count_fn)(void);
typedef int (*tpu_metrics_fn)(int device, double *util, unsigned long long *mem_used, unsigned long long *mem_total);

static void *libtpuinfo_handle = 0;
static tpu_chip_count_fn chip_count_fn = 0;
static tpu_metrics_fn metrics_fn = 0;

static int libtpuinfo_load() {
    if (libtpuinfo_handle != 0) {
        return 1;
    }
    libtpuinfo_handle = dlopen("libtpuinfo.so", RTLD_NOW);
    if (libtpuinfo_handle == 0) {
        return 0;
    }
    chip_count_fn = (tpu_chip_count_fn)dlsym(libtpuinfo_handle, "tpu_chip_count");
    metrics_fn = (tpu_metrics_fn)dlsym(libtpuinfo_handle, "tpu_metrics");
    return chip_count_fn != 0 && metrics_fn != 0;
}

static int libtpuinfo_chip_count() {
    return chip_count_fn ? chip_count_fn() : 0;
}

static int libtpuinfo_metrics(int device, double *util, unsigned long long *mem_used, unsigned long long *mem_total) {
    return metrics_fn ? metrics_fn(device, util, mem_used, mem_total) : -1;
}
*/
import "C"

import (
	"sync"

	"github.com/all-smi/all-smi/internal/log"
	"github.com/all-smi/all-smi/internal/model"
	"github.com/all-smi/all-smi/internal/notify"
)

var libtpuinfoOnce sync.Once
var libtpuinfoOK bool

const vendorSlot = "tpu"

func ensureLibtpuinfo() bool {
	libtpuinfoOnce.Do(func() {
		libtpuinfoOK = C.libtpuinfo_load() != 0
		if !libtpuinfoOK {
			notify.Default.Once(vendorSlot, "libtpuinfo.so not found; falling back to streaming tpu-info")
			log.Debugln("tpu: libtpuinfo.so not found")
		}
	})
	return libtpuinfoOK
}

// readViaLibtpuinfo is tier 2: dynamically loaded libtpuinfo.so,
// tried only after the gRPC tier has failed this cycle.
func readViaLibtpuinfo(hostname, instance string) ([]model.DeviceRecord, bool) {
	if !ensureLibtpuinfo() {
		return nil, false
	}

	count := int(C.libtpuinfo_chip_count())
	if count <= 0 {
		return nil, false
	}

	var records []model.DeviceRecord
	for i := 0; i < count; i++ {
		var util C.double
		var memUsed, memTotal C.ulonglong
		if C.libtpuinfo_metrics(C.int(i), &util, &memUsed, &memTotal) != 0 {
			continue
		}
		records = append(records, model.DeviceRecord{
			UUID:             deviceUUID(int32(i)),
			Name:             "Google TPU",
			DeviceType:       model.DeviceTypeTPU,
			Hostname:         hostname,
			Instance:         instance,
			Index:            i,
			Utilization:      float64(util),
			MemoryUsedBytes:  uint64(memUsed),
			MemoryTotalBytes: uint64(memTotal),
			Detail:           map[string]string{"collection_method": "libtpuinfo"},
		})
	}
	return records, len(records) > 0
}
