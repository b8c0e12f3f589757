package cltest

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clintro/internal/cl"
)

const addSource = `__kernel void add_floats(float a, float b, __global float* c) { c[0] = a + b; }`

func openDevice(t *testing.T, f *Fake) (cl.DeviceID, cl.Context) {
	t.Helper()

	platforms, err := f.PlatformIDs()
	require.NoError(t, err)
	require.Len(t, platforms, 1)

	devices, err := f.DeviceIDs(platforms[0], cl.DeviceTypeGPU)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	ctx, err := f.CreateContext(devices[0])
	require.NoError(t, err)
	return devices[0], ctx
}

func TestFakeExecutesAddFloats(t *testing.T) {
	f := SingleGPU("gpu0")
	device, ctx := openDevice(t, f)

	queue, err := f.CreateCommandQueue(ctx, device)
	require.NoError(t, err)
	mem, err := f.CreateBuffer(ctx, cl.MemWriteOnly, 4)
	require.NoError(t, err)
	prog, err := f.CreateProgramWithSource(ctx, addSource)
	require.NoError(t, err)
	require.NoError(t, f.BuildProgram(prog, device, ""))
	kern, err := f.CreateKernel(prog, "add_floats")
	require.NoError(t, err)

	require.NoError(t, f.SetKernelArg(kern, 0, float32(1.5)))
	require.NoError(t, f.SetKernelArg(kern, 1, float32(2.25)))
	require.NoError(t, f.SetKernelArg(kern, 2, mem))
	require.NoError(t, f.EnqueueNDRangeKernel(queue, kern, 1))
	require.NoError(t, f.Finish(queue))

	buf := make([]byte, 4)
	require.NoError(t, f.EnqueueReadBuffer(queue, mem, 0, buf))
	assert.Equal(t, float32(3.75), math.Float32frombits(binary.NativeEndian.Uint32(buf)))

	assert.Equal(t, 5, f.Live())
	require.NoError(t, f.ReleaseMemObject(mem))
	require.NoError(t, f.ReleaseKernel(kern))
	require.NoError(t, f.ReleaseProgram(prog))
	require.NoError(t, f.ReleaseCommandQueue(queue))
	require.NoError(t, f.ReleaseContext(ctx))
	assert.Zero(t, f.Live())
}

func TestFakeDoubleRelease(t *testing.T) {
	f := SingleGPU("gpu0")
	_, ctx := openDevice(t, f)

	require.NoError(t, f.ReleaseContext(ctx))

	err := f.ReleaseContext(ctx)
	status, ok := cl.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, cl.InvalidContext, status)
}

func TestFakeKernelRequiresBuild(t *testing.T) {
	f := SingleGPU("gpu0")
	device, ctx := openDevice(t, f)

	prog, err := f.CreateProgramWithSource(ctx, addSource)
	require.NoError(t, err)

	_, err = f.CreateKernel(prog, "add_floats")
	status, _ := cl.StatusOf(err)
	assert.Equal(t, cl.InvalidProgramExecutable, status)

	require.NoError(t, f.BuildProgram(prog, device, ""))
	_, err = f.CreateKernel(prog, "mul_floats")
	status, _ = cl.StatusOf(err)
	assert.Equal(t, cl.InvalidKernelName, status)
}

func TestFakeUnboundArgs(t *testing.T) {
	f := SingleGPU("gpu0")
	device, ctx := openDevice(t, f)

	queue, err := f.CreateCommandQueue(ctx, device)
	require.NoError(t, err)
	prog, err := f.CreateProgramWithSource(ctx, addSource)
	require.NoError(t, err)
	require.NoError(t, f.BuildProgram(prog, device, ""))
	kern, err := f.CreateKernel(prog, "add_floats")
	require.NoError(t, err)

	require.NoError(t, f.SetKernelArg(kern, 0, float32(1)))
	require.NoError(t, f.SetKernelArg(kern, 1, float32(2)))

	err = f.EnqueueNDRangeKernel(queue, kern, 1)
	status, _ := cl.StatusOf(err)
	assert.Equal(t, cl.InvalidKernelArgs, status)

	err = f.SetKernelArg(kern, 2, "not a buffer")
	status, _ = cl.StatusOf(err)
	assert.Equal(t, cl.InvalidArgValue, status)
}

func TestFakeFailureInjection(t *testing.T) {
	f := SingleGPU("gpu0")
	f.Failures["clGetPlatformIDs"] = cl.OutOfHostMemory

	_, err := f.PlatformIDs()
	assert.EqualError(t, err, "clGetPlatformIDs: CL_OUT_OF_HOST_MEMORY (-6)")
	assert.Equal(t, []string{"clGetPlatformIDs"}, f.Calls())
}

func TestFakeDeviceFilter(t *testing.T) {
	f := NewFake(Platform{Devices: []Device{{Name: "cpu0", Type: cl.DeviceTypeCPU}}})

	platforms, err := f.PlatformIDs()
	require.NoError(t, err)

	_, err = f.DeviceIDs(platforms[0], cl.DeviceTypeGPU)
	status, _ := cl.StatusOf(err)
	assert.Equal(t, cl.DeviceNotFound, status)

	all, err := f.DeviceIDs(platforms[0], cl.DeviceTypeAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
