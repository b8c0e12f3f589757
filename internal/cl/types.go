package cl

import "strings"

// DeviceType describes the class of an OpenCL device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeAll         DeviceType = "All"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// ParseDeviceType maps user input to a device type. It returns
// DeviceTypeUnknown for anything it does not recognise.
func ParseDeviceType(name string) DeviceType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gpu":
		return DeviceTypeGPU
	case "cpu":
		return DeviceTypeCPU
	case "accelerator", "acc":
		return DeviceTypeAccelerator
	case "default":
		return DeviceTypeDefault
	case "all", "any":
		return DeviceTypeAll
	default:
		return DeviceTypeUnknown
	}
}

// Matches reports whether a device of type dt satisfies a query for want.
func (dt DeviceType) Matches(want DeviceType) bool {
	return want == DeviceTypeAll || dt == want
}

// MemFlags mirror cl_mem_flags bit values.
type MemFlags uint64

const (
	MemReadWrite MemFlags = 1 << 0
	MemWriteOnly MemFlags = 1 << 1
	MemReadOnly  MemFlags = 1 << 2
)

// Opaque handles issued by an API implementation. Zero is the null handle.
type (
	PlatformID   uint64
	DeviceID     uint64
	Context      uint64
	CommandQueue uint64
	Mem          uint64
	Program      uint64
	Kernel       uint64
)

// DeviceInfo captures metadata about an OpenCL device.
type DeviceInfo struct {
	Name            string     `json:"name"`
	Vendor          string     `json:"vendor"`
	Version         string     `json:"version"`
	Type            DeviceType `json:"type"`
	MaxComputeUnits uint32     `json:"maxComputeUnits"`
}

// PlatformInfo captures metadata about an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string       `json:"name"`
	Vendor  string       `json:"vendor"`
	Version string       `json:"version"`
	Devices []DeviceInfo `json:"devices"`
}

func trimNull(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	if buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}
