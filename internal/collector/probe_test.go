package collector

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("not found")

// fakeEnv builds a probeEnv where only the named binaries and files exist.
func fakeEnv(goos, goarch string, binaries []string, files map[string]string, globs map[string][]string) probeEnv {
	has := make(map[string]bool, len(binaries))
	for _, b := range binaries {
		has[b] = true
	}
	return probeEnv{
		goos:   goos,
		goarch: goarch,
		lookPath: func(name string) (string, error) {
			if has[name] {
				return "/usr/bin/" + name, nil
			}
			return "", errNotFound
		},
		stat: func(string) (os.FileInfo, error) { return nil, errNotFound },
		readFile: func(path string) ([]byte, error) {
			if v, ok := files[path]; ok {
				return []byte(v), nil
			}
			return nil, errNotFound
		},
		glob: func(pattern string) ([]string, error) { return globs[pattern], nil },
	}
}

func TestDetectBareLinuxHost(t *testing.T) {
	p := detect(fakeEnv("linux", "amd64", nil, nil, nil))
	assert.Equal(t, Platforms{}, p)
}

func TestDetectNvidiaSMI(t *testing.T) {
	p := detect(fakeEnv("linux", "amd64", []string{"nvidia-smi"}, nil, nil))
	assert.True(t, p.NVIDIA)
	assert.False(t, p.Tenstorrent)
}

func TestDetectAppleSilicon(t *testing.T) {
	assert.True(t, detect(fakeEnv("darwin", "arm64", nil, nil, nil)).AppleSilicon)
	assert.False(t, detect(fakeEnv("darwin", "amd64", nil, nil, nil)).AppleSilicon)
}

func TestDetectJetsonImpliesNvidia(t *testing.T) {
	files := map[string]string{"/proc/device-tree/compatible": "nvidia,p3737-0000+p3701-0000nvidia,tegra234"}
	p := detect(fakeEnv("linux", "arm64", nil, files, nil))
	assert.True(t, p.Jetson)
	assert.True(t, p.NVIDIA)
}

func TestDetectTenstorrentDeviceNode(t *testing.T) {
	globs := map[string][]string{"/dev/tenstorrent/*": {"/dev/tenstorrent/0"}}
	p := detect(fakeEnv("linux", "amd64", nil, nil, globs))
	assert.True(t, p.Tenstorrent)
}

func TestDetectTPURequiresGoogleVendor(t *testing.T) {
	globs := map[string][]string{"/dev/accel*": {"/dev/accel0"}}

	p := detect(fakeEnv("linux", "amd64", nil, nil, globs))
	assert.False(t, p.GoogleTPU, "accel node with unknown vendor must not count")

	files := map[string]string{"/sys/class/accel/accel0/device/vendor": "0x1ae0\n"}
	p = detect(fakeEnv("linux", "amd64", nil, files, globs))
	assert.True(t, p.GoogleTPU)
}

func TestDetectCLIScrapers(t *testing.T) {
	p := detect(fakeEnv("linux", "amd64", []string{"rbln-stat", "furiosactl", "hl-smi", "rocm-smi"}, nil, nil))
	assert.True(t, p.Rebellion)
	assert.True(t, p.Furiosa)
	assert.True(t, p.Gaudi)
	assert.True(t, p.AMD)
}

func TestBuildRegistryWiresDetectedReaders(t *testing.T) {
	host := &HostCollector{hostname: "testhost", instance: "testhost:9090"}

	reg := buildRegistry(Platforms{NVIDIA: true, Gaudi: true}, host)
	assert.Len(t, reg.devices, 2)
	assert.Empty(t, reg.chassis)

	reg = buildRegistry(Platforms{Tenstorrent: true}, host)
	assert.Len(t, reg.devices, 1)
	assert.Len(t, reg.chassis, 1)
}
