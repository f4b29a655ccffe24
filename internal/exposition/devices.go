package exposition

import (
	"sort"
	"strconv"
	"strings"

	"github.com/all-smi/all-smi/internal/model"
)

const namePrefix = "all_smi_"

// deviceLabel returns "gpu" or "npu": every GPU
// metric carries {gpu, instance, uuid, index}; NPU variants substitute
// "npu" for "gpu".
func deviceLabel(t model.DeviceType) string {
	if t == model.DeviceTypeNPU {
		return "npu"
	}
	return "gpu"
}

func baseLabels(d model.DeviceRecord) []Label {
	return []Label{
		{Key: deviceLabel(d.DeviceType), Value: d.Name},
		{Key: "instance", Value: d.Instance},
		{Key: "uuid", Value: d.UUID},
		{Key: "index", Value: strconv.Itoa(d.Index)},
	}
}

// WriteDevices emits the generic accelerator metric families for every
// device in devices, plus vendor-scoped detail metrics carried in
// Detail. Families with zero samples are never announced.
func WriteDevices(b *Builder, devices []model.DeviceRecord) {
	b.Help(namePrefix+"gpu_utilization", "Utilization percentage of the accelerator.")
	b.Type(namePrefix+"gpu_utilization", Gauge)
	b.Help(namePrefix+"gpu_memory_used_bytes", "Memory currently used on the accelerator, in bytes.")
	b.Type(namePrefix+"gpu_memory_used_bytes", Gauge)
	b.Help(namePrefix+"gpu_memory_total_bytes", "Total memory available on the accelerator, in bytes.")
	b.Type(namePrefix+"gpu_memory_total_bytes", Gauge)
	b.Help(namePrefix+"gpu_temperature_celsius", "Temperature of the accelerator, in Celsius.")
	b.Type(namePrefix+"gpu_temperature_celsius", Gauge)
	b.Help(namePrefix+"gpu_power_watts", "Power draw of the accelerator, in watts.")
	b.Type(namePrefix+"gpu_power_watts", Gauge)
	b.Help(namePrefix+"gpu_frequency_mhz", "Core clock frequency of the accelerator, in MHz.")
	b.Type(namePrefix+"gpu_frequency_mhz", Gauge)

	for _, d := range devices {
		labels := baseLabels(d)

		b.Metric(namePrefix+"gpu_utilization", labels, d.Utilization)
		b.Metric(namePrefix+"gpu_memory_used_bytes", labels, float64(d.MemoryUsedBytes))
		b.Metric(namePrefix+"gpu_memory_total_bytes", labels, float64(d.MemoryTotalBytes))
		b.Metric(namePrefix+"gpu_temperature_celsius", labels, float64(d.TemperatureCelsius))
		b.Metric(namePrefix+"gpu_power_watts", labels, d.PowerWatts)
		b.Metric(namePrefix+"gpu_frequency_mhz", labels, float64(d.FrequencyMHz))

		if d.ANEUtilization != nil {
			b.Help(namePrefix+"gpu_ane_utilization", "Apple Neural Engine utilization percentage.")
			b.Type(namePrefix+"gpu_ane_utilization", Gauge)
			b.Metric(namePrefix+"gpu_ane_utilization", labels, *d.ANEUtilization)
		}
		if d.DLAUtilization != nil {
			b.Help(namePrefix+"gpu_dla_utilization", "Deep Learning Accelerator utilization percentage.")
			b.Type(namePrefix+"gpu_dla_utilization", Gauge)
			b.Metric(namePrefix+"gpu_dla_utilization", labels, *d.DLAUtilization)
		}
		if d.GPUCoreCount != nil {
			b.Help(namePrefix+"gpu_core_count", "Number of GPU cores present.")
			b.Type(namePrefix+"gpu_core_count", Gauge)
			b.Metric(namePrefix+"gpu_core_count", labels, float64(*d.GPUCoreCount))
		}

		writeDetail(b, detailFamilyName(d.Name), labels, d.Detail)
	}
}

// detailFamilyName picks the vendor-scoped detail metric family prefix.
// Tenstorrent devices get their own dedicated family; everything
// else shares the generic "device_info" family.
func detailFamilyName(name string) string {
	if strings.Contains(strings.ToLower(name), "tenstorrent") {
		return namePrefix + "tenstorrent_info"
	}
	return namePrefix + "device_info"
}

func writeDetail(b *Builder, family string, baseLbls []Label, detail map[string]string) {
	if len(detail) == 0 {
		return
	}

	b.Help(family, "Informational accelerator detail fields; value is always 1.")
	b.Type(family, Gauge)

	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		labels := append(append([]Label{}, baseLbls...), Label{Key: detailKeyToLabel(k), Value: detail[k]})
		b.Metric(family, labels, 1)
	}
}

// detailKeyToLabel normalizes a human-readable detail key ("ARC Firmware")
// into a Prometheus label name ("arc_firmware").
func detailKeyToLabel(key string) string {
	out := make([]byte, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		case r >= 'A' && r <= 'Z':
			out = append(out, byte(r-'A'+'a'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// WriteChassis emits chassis-level thermal/power metrics.
func WriteChassis(b *Builder, chassis []model.ChassisRecord) {
	for _, c := range chassis {
		base := []Label{{Key: "hostname", Value: c.Hostname}, {Key: "instance", Value: c.Instance}}

		if c.TotalPowerWatts != nil {
			b.Help(namePrefix+"chassis_power_watts", "Total system power draw, in watts.")
			b.Type(namePrefix+"chassis_power_watts", Gauge)
			b.Metric(namePrefix+"chassis_power_watts", base, *c.TotalPowerWatts)
		}

		if c.ThermalPressure != nil {
			b.Help(namePrefix+"chassis_thermal_pressure", "Thermal pressure level; value is always 1.")
			b.Type(namePrefix+"chassis_thermal_pressure", Gauge)
			labels := append(append([]Label{}, base...), Label{Key: "level", Value: string(*c.ThermalPressure)})
			b.Metric(namePrefix+"chassis_thermal_pressure", labels, 1)
		}

		if c.InletTempC != nil {
			b.Help(namePrefix+"chassis_inlet_temperature_celsius", "Chassis inlet air temperature, in Celsius.")
			b.Type(namePrefix+"chassis_inlet_temperature_celsius", Gauge)
			b.Metric(namePrefix+"chassis_inlet_temperature_celsius", base, *c.InletTempC)
		}
		if c.OutletTempC != nil {
			b.Help(namePrefix+"chassis_outlet_temperature_celsius", "Chassis outlet air temperature, in Celsius.")
			b.Type(namePrefix+"chassis_outlet_temperature_celsius", Gauge)
			b.Metric(namePrefix+"chassis_outlet_temperature_celsius", base, *c.OutletTempC)
		}

		for _, fan := range c.Fans {
			b.Help(namePrefix+"chassis_fan_speed_rpm", "Fan speed, in RPM.")
			b.Type(namePrefix+"chassis_fan_speed_rpm", Gauge)
			labels := append(append([]Label{}, base...), Label{Key: "fan_id", Value: fan.ID}, Label{Key: "fan_name", Value: fan.Name})
			b.Metric(namePrefix+"chassis_fan_speed_rpm", labels, float64(fan.SpeedRPM))
		}

		writeDetail(b, namePrefix+"chassis_detail", base, c.Detail)
	}
}
