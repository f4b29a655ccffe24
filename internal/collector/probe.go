package collector

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	cpuinfo "github.com/shirou/gopsutil/v3/cpu"

	"github.com/all-smi/all-smi/internal/collector/apple"
	"github.com/all-smi/all-smi/internal/collector/nvidia"
	"github.com/all-smi/all-smi/internal/collector/tenstorrent"
	"github.com/all-smi/all-smi/internal/collector/tpu"
	"github.com/all-smi/all-smi/internal/log"
)

// probeEnv abstracts the handful of OS facts the startup probes look at,
// so detection logic is testable without the hardware present.
type probeEnv struct {
	goos     string
	goarch   string
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	readFile func(string) ([]byte, error)
	glob     func(string) ([]string, error)
}

func defaultProbeEnv() probeEnv {
	return probeEnv{
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
		lookPath: exec.LookPath,
		stat:     os.Stat,
		readFile: os.ReadFile,
		glob:     filepath.Glob,
	}
}

// Platforms is the outcome of the one-time startup detection pass.
// Each flag answers "is this vendor plausibly present", not
// "is it guaranteed to produce records": a detected reader that finds
// no devices degrades to empty results.
type Platforms struct {
	NVIDIA       bool
	AMD          bool
	AppleSilicon bool
	Jetson       bool
	Tenstorrent  bool
	Rebellion    bool
	Furiosa      bool
	Gaudi        bool
	GoogleTPU    bool
}

// wellKnown lists extra directories searched for vendor binaries that
// installers drop outside PATH.
var wellKnown = []string{"/usr/local/bin", "/opt/bin", "/usr/bin"}

func (e probeEnv) binaryPresent(name string) bool {
	if _, err := e.lookPath(name); err == nil {
		return true
	}
	for _, dir := range wellKnown {
		if _, err := e.stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// googleVendorID is Google's PCI vendor id, used to tell TPU accel
// nodes apart from other /dev/accel* devices.
const googleVendorID = "0x1ae0"

func (e probeEnv) tpuPresent() bool {
	nodes, err := e.glob("/dev/accel*")
	if err != nil || len(nodes) == 0 {
		return false
	}
	for _, node := range nodes {
		name := filepath.Base(node)
		vendor, err := e.readFile("/sys/class/accel/" + name + "/device/vendor")
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(vendor)) == googleVendorID {
			return true
		}
	}
	return false
}

func (e probeEnv) tenstorrentPresent() bool {
	nodes, err := e.glob("/dev/tenstorrent/*")
	return err == nil && len(nodes) > 0
}

func (e probeEnv) jetsonPresent() bool {
	compat, err := e.readFile("/proc/device-tree/compatible")
	return err == nil && strings.Contains(string(compat), "tegra")
}

// detect runs the cheap startup probes and returns the platform set
// for this host. Nothing is cached: every call probes again.
func detect(e probeEnv) Platforms {
	var p Platforms

	switch e.goos {
	case "darwin":
		p.AppleSilicon = e.goarch == "arm64"
	case "linux":
		p.Jetson = e.jetsonPresent()
		p.Tenstorrent = e.tenstorrentPresent() || e.binaryPresent("tt-smi")
		p.GoogleTPU = e.tpuPresent()
		p.AMD = e.binaryPresent("rocm-smi") || e.binaryPresent("amd-smi")
		p.Rebellion = e.binaryPresent("rbln-stat")
		p.Furiosa = e.binaryPresent("furiosactl")
		p.Gaudi = e.binaryPresent("hl-smi")
	}
	p.NVIDIA = p.Jetson || e.binaryPresent("nvidia-smi")

	return p
}

// Detect probes the running host once and reports which vendor
// families are plausibly present.
func Detect() Platforms { return detect(defaultProbeEnv()) }

// BuildRegistry assembles the reader set for the detected platforms.
// port is the API port; the host collector takes the hostname from the
// operating system and formats the instance as "hostname:port", and
// that identity is stamped on every produced record.
func BuildRegistry(port int) (*Registry, error) {
	host, err := NewHostCollector(port)
	if err != nil {
		return nil, err
	}
	return buildRegistry(detect(defaultProbeEnv()), host), nil
}

func buildRegistry(p Platforms, host *HostCollector) *Registry {
	reg := NewRegistry(host)
	hostname, instance := host.Identity()

	if p.NVIDIA {
		reg.AddDeviceReader(nvidia.New(hostname, instance))
	}
	if p.AppleSilicon {
		r := apple.New(hostname, instance, appleChipName())
		reg.AddDeviceReader(r)
		reg.AddChassisReader(r)
	}
	if p.AMD {
		reg.AddDeviceReader(NewAMDReader(hostname, instance))
	}
	if p.Tenstorrent {
		r := tenstorrent.New(hostname, instance)
		reg.AddDeviceReader(r)
		reg.AddChassisReader(r)
	}
	if p.GoogleTPU {
		reg.AddDeviceReader(tpu.New(hostname, instance))
	}
	if p.Rebellion {
		reg.AddDeviceReader(NewRebellionReader(hostname, instance))
	}
	if p.Furiosa {
		reg.AddDeviceReader(NewFuriosaReader(hostname, instance))
	}
	if p.Gaudi {
		reg.AddDeviceReader(NewGaudiReader(hostname, instance))
	}

	log.Debugf("reader registry assembled: %+v", p)
	return reg
}

// appleChipName reports the marketing name of the SoC ("Apple M3 Pro")
// for device records; falls back to a generic name when unavailable.
func appleChipName() string {
	infos, err := cpuinfo.Info()
	if err == nil && len(infos) > 0 && infos[0].ModelName != "" {
		return infos[0].ModelName
	}
	return "Apple Silicon"
}
