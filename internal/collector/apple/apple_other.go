//go:build !darwin

package apple

import "github.com/all-smi/all-smi/internal/model"

// Reader is a no-op stand-in on non-Darwin platforms: the registry
// never constructs one outside a Darwin/arm64 build, but the type must
// exist so collector wiring compiles uniformly across platforms.
type Reader struct{}

func New(hostname, instance, chipName string) *Reader { return &Reader{} }

func (r *Reader) Name() string { return "apple" }

func (r *Reader) ReadDevices() ([]model.DeviceRecord, error) { return nil, nil }

func (r *Reader) ReadChassis() ([]model.ChassisRecord, error) { return nil, nil }
