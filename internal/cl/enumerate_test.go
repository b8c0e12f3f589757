package cl_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clintro/internal/cl"
	"github.com/cwbudde/clintro/internal/cl/cltest"
)

func TestEnumerate(t *testing.T) {
	fake := cltest.NewFake(
		cltest.Platform{
			Name:    "Vendor A",
			Vendor:  "A Corp",
			Version: "OpenCL 3.0",
			Devices: []cltest.Device{
				{Name: "a-gpu", Vendor: "A Corp", Version: "OpenCL 3.0", Type: cl.DeviceTypeGPU, ComputeUnits: 80},
				{Name: "a-cpu", Vendor: "A Corp", Version: "OpenCL 1.2", Type: cl.DeviceTypeCPU, ComputeUnits: 16},
			},
		},
		cltest.Platform{Name: "Vendor B", Vendor: "B Inc", Version: "OpenCL 1.2"},
	)

	got, err := cl.Enumerate(fake)
	require.NoError(t, err)

	want := []cl.PlatformInfo{
		{
			Name:    "Vendor A",
			Vendor:  "A Corp",
			Version: "OpenCL 3.0",
			Devices: []cl.DeviceInfo{
				{Name: "a-gpu", Vendor: "A Corp", Version: "OpenCL 3.0", Type: cl.DeviceTypeGPU, MaxComputeUnits: 80},
				{Name: "a-cpu", Vendor: "A Corp", Version: "OpenCL 1.2", Type: cl.DeviceTypeCPU, MaxComputeUnits: 16},
			},
		},
		{Name: "Vendor B", Vendor: "B Inc", Version: "OpenCL 1.2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Enumerate mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateNoPlatforms(t *testing.T) {
	got, err := cl.Enumerate(cltest.NewFake())
	require.NoError(t, err)
	require.Empty(t, got)

	fake := cltest.NewFake()
	fake.Failures["clGetPlatformIDs"] = cl.PlatformNotFoundKHR
	got, err = cl.Enumerate(fake)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEnumeratePropagatesErrors(t *testing.T) {
	fake := cltest.SingleGPU("gpu0")
	fake.Failures["clGetDeviceInfo"] = cl.OutOfHostMemory

	_, err := cl.Enumerate(fake)
	require.Error(t, err)
	status, ok := cl.StatusOf(err)
	require.True(t, ok)
	require.Equal(t, cl.OutOfHostMemory, status)
}
