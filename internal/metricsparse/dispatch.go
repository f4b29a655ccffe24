package metricsparse

import (
	"strconv"
	"strings"

	"github.com/all-smi/all-smi/internal/model"
)

// dispatch routes one parsed sample to the record it belongs to, keyed
// by the identity labels carried on every sample of that family.
func dispatch(ws *workspace, suffix string, labels map[string]string, value float64) {
	switch {
	case strings.HasPrefix(suffix, "gpu_") || suffix == "device_info" || suffix == "tenstorrent_info":
		dispatchDevice(ws, suffix, labels, value)
	case strings.HasPrefix(suffix, "cpu_"):
		dispatchCPU(ws, suffix, labels, value)
	case strings.HasPrefix(suffix, "memory_"):
		dispatchMemory(ws, suffix, labels, value)
	case strings.HasPrefix(suffix, "storage_"):
		dispatchStorage(ws, suffix, labels, value)
	case strings.HasPrefix(suffix, "chassis_"):
		dispatchChassis(ws, suffix, labels, value)
	}
}

// hostnameFromInstance derives a hostname from an "host:port" instance
// label when no explicit hostname label is present, which is the case
// for every per-device sample.
func hostnameFromInstance(instance string) string {
	if i := strings.LastIndexByte(instance, ':'); i >= 0 {
		return instance[:i]
	}
	return instance
}

func deviceFor(ws *workspace, labels map[string]string) *model.DeviceRecord {
	uuid := labels["uuid"]
	if d, ok := ws.devices[uuid]; ok {
		return d
	}
	name := labels["gpu"]
	dtype := model.DeviceTypeGPU
	if n, ok := labels["npu"]; ok {
		name = n
		dtype = model.DeviceTypeNPU
	}
	index, _ := strconv.Atoi(labels["index"])
	d := &model.DeviceRecord{
		UUID:       uuid,
		Name:       name,
		DeviceType: dtype,
		Hostname:   hostnameFromInstance(labels["instance"]),
		Instance:   labels["instance"],
		Index:      index,
		Detail:     make(map[string]string),
	}
	ws.devices[uuid] = d
	return d
}

func dispatchDevice(ws *workspace, suffix string, labels map[string]string, value float64) {
	d := deviceFor(ws, labels)

	switch suffix {
	case "gpu_utilization":
		d.Utilization = value
	case "gpu_memory_used_bytes":
		d.MemoryUsedBytes = uint64(value)
	case "gpu_memory_total_bytes":
		d.MemoryTotalBytes = uint64(value)
	case "gpu_temperature_celsius":
		d.TemperatureCelsius = uint32(value)
	case "gpu_power_watts":
		d.PowerWatts = value
	case "gpu_frequency_mhz":
		d.FrequencyMHz = uint32(value)
	case "gpu_ane_utilization":
		v := value
		d.ANEUtilization = &v
	case "gpu_dla_utilization":
		v := value
		d.DLAUtilization = &v
	case "gpu_core_count":
		v := uint32(value)
		d.GPUCoreCount = &v
	case "device_info", "tenstorrent_info":
		for k, v := range labels {
			if k == "gpu" || k == "npu" || k == "instance" || k == "uuid" || k == "index" {
				continue
			}
			d.Detail[k] = v
		}
	}
}

func cpuFor(ws *workspace, labels map[string]string) *model.CpuRecord {
	key := labels["hostname"] + "\x00" + labels["instance"]
	if c, ok := ws.cpus[key]; ok {
		return c
	}
	c := &model.CpuRecord{Hostname: labels["hostname"], Instance: labels["instance"]}
	ws.cpus[key] = c
	return c
}

func dispatchCPU(ws *workspace, suffix string, labels map[string]string, value float64) {
	c := cpuFor(ws, labels)

	switch suffix {
	case "cpu_utilization":
		c.Utilization = value
	case "cpu_socket_count":
		c.SocketCount = int(value)
	case "cpu_core_count":
		c.CoreCount = int(value)
	case "cpu_socket_utilization":
		idx, _ := strconv.Atoi(labels["socket"])
		c.Sockets = upsertSocket(c.Sockets, idx, value)
	case "cpu_core_utilization":
		sidx, _ := strconv.Atoi(labels["socket"])
		cidx, _ := strconv.Atoi(labels["core"])
		c.Sockets = upsertCore(c.Sockets, sidx, cidx, model.CoreType(labels["core_type"]), value)
	case "cpu_info":
		if v, ok := labels["model"]; ok {
			c.Model = v
		}
		if v, ok := labels["architecture"]; ok {
			c.Architecture = v
		}
		if v, ok := labels["platform"]; ok {
			c.Platform = model.CPUPlatform(v)
		}
		if v, ok := labels["collection_method"]; ok && v == "cgroup_scaled" {
			c.ContainerScaled = true
		}
	}
}

func upsertSocket(sockets []model.SocketRecord, index int, utilization float64) []model.SocketRecord {
	for i := range sockets {
		if sockets[i].Index == index {
			sockets[i].Utilization = utilization
			return sockets
		}
	}
	return append(sockets, model.SocketRecord{Index: index, Utilization: utilization})
}

func upsertCore(sockets []model.SocketRecord, socketIdx, coreIdx int, coreType model.CoreType, utilization float64) []model.SocketRecord {
	for i := range sockets {
		if sockets[i].Index == socketIdx {
			for j := range sockets[i].Cores {
				if sockets[i].Cores[j].Index == coreIdx {
					sockets[i].Cores[j].Utilization = utilization
					return sockets
				}
			}
			sockets[i].Cores = append(sockets[i].Cores, model.CoreUtilization{Index: coreIdx, Utilization: utilization, Type: coreType})
			return sockets
		}
	}
	return append(sockets, model.SocketRecord{
		Index: socketIdx,
		Cores: []model.CoreUtilization{{Index: coreIdx, Utilization: utilization, Type: coreType}},
	})
}

func memFor(ws *workspace, labels map[string]string) *model.MemoryRecord {
	key := labels["hostname"] + "\x00" + labels["instance"]
	if m, ok := ws.mems[key]; ok {
		return m
	}
	m := &model.MemoryRecord{Hostname: labels["hostname"], Instance: labels["instance"]}
	ws.mems[key] = m
	return m
}

func dispatchMemory(ws *workspace, suffix string, labels map[string]string, value float64) {
	m := memFor(ws, labels)
	switch suffix {
	case "memory_total_bytes":
		m.TotalBytes = uint64(value)
	case "memory_used_bytes":
		m.UsedBytes = uint64(value)
	case "memory_available_bytes":
		m.AvailableBytes = uint64(value)
	case "memory_utilization":
		m.Utilization = value
	}
}

func storageFor(ws *workspace, labels map[string]string) *model.StorageRecord {
	key := labels["hostname"] + "\x00" + labels["mount_point"] + "\x00" + labels["index"]
	if s, ok := ws.storage[key]; ok {
		return s
	}
	index, _ := strconv.Atoi(labels["index"])
	s := &model.StorageRecord{Hostname: labels["hostname"], MountPoint: labels["mount_point"], Index: index}
	ws.storage[key] = s
	return s
}

func dispatchStorage(ws *workspace, suffix string, labels map[string]string, value float64) {
	s := storageFor(ws, labels)
	switch suffix {
	case "storage_total_bytes":
		s.TotalBytes = uint64(value)
	case "storage_available_bytes":
		s.AvailableBytes = uint64(value)
	}
}

func chassisFor(ws *workspace, labels map[string]string) *model.ChassisRecord {
	key := labels["hostname"] + "\x00" + labels["instance"]
	if c, ok := ws.chassis[key]; ok {
		return c
	}
	c := &model.ChassisRecord{Hostname: labels["hostname"], Instance: labels["instance"], Detail: make(map[string]string)}
	ws.chassis[key] = c
	return c
}

func dispatchChassis(ws *workspace, suffix string, labels map[string]string, value float64) {
	c := chassisFor(ws, labels)
	switch suffix {
	case "chassis_power_watts":
		v := value
		c.TotalPowerWatts = &v
	case "chassis_thermal_pressure":
		tp := model.ThermalPressure(labels["level"])
		c.ThermalPressure = &tp
	case "chassis_inlet_temperature_celsius":
		v := value
		c.InletTempC = &v
	case "chassis_outlet_temperature_celsius":
		v := value
		c.OutletTempC = &v
	case "chassis_fan_speed_rpm":
		c.Fans = append(c.Fans, model.Fan{ID: labels["fan_id"], Name: labels["fan_name"], SpeedRPM: uint32(value)})
	case "chassis_detail":
		for k, v := range labels {
			if k == "hostname" || k == "instance" {
				continue
			}
			c.Detail[k] = v
		}
	}
}
