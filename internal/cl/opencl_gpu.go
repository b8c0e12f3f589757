//go:build gpu

package cl

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>

static cl_command_queue clintro_create_queue(cl_context ctx, cl_device_id device, cl_int *status) {
#if CL_TARGET_OPENCL_VERSION >= 200
	const cl_queue_properties props[] = {0};
	return clCreateCommandQueueWithProperties(ctx, device, props, status);
#else
	return clCreateCommandQueue(ctx, device, 0, status);
#endif
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// openCL binds API to the system OpenCL ICD loader.
type openCL struct {
	platforms handleTable[C.cl_platform_id]
	devices   handleTable[C.cl_device_id]
	contexts  handleTable[C.cl_context]
	queues    handleTable[C.cl_command_queue]
	mems      handleTable[C.cl_mem]
	programs  handleTable[C.cl_program]
	kernels   handleTable[C.cl_kernel]
}

// New returns the cgo-backed OpenCL API.
func New() (API, error) {
	return &openCL{}, nil
}

func check(op string, status C.cl_int) error {
	return NewStatusError(op, Status(status))
}

func (o *openCL) PlatformIDs() ([]PlatformID, error) {
	var count C.cl_uint
	if err := check("clGetPlatformIDs(count)", C.clGetPlatformIDs(0, nil, &count)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	raw := make([]C.cl_platform_id, int(count))
	if err := check("clGetPlatformIDs(list)", C.clGetPlatformIDs(count, &raw[0], nil)); err != nil {
		return nil, err
	}

	ids := make([]PlatformID, len(raw))
	for i, p := range raw {
		ids[i] = PlatformID(o.platforms.put(p))
	}
	return ids, nil
}

func (o *openCL) PlatformInfo(platform PlatformID) (PlatformInfo, error) {
	pid, ok := o.platforms.get(uint64(platform))
	if !ok {
		return PlatformInfo{}, NewStatusError("clGetPlatformInfo", InvalidPlatform)
	}

	name, err := getPlatformString(pid, C.CL_PLATFORM_NAME)
	if err != nil {
		return PlatformInfo{}, err
	}
	vendor, err := getPlatformString(pid, C.CL_PLATFORM_VENDOR)
	if err != nil {
		return PlatformInfo{}, err
	}
	version, err := getPlatformString(pid, C.CL_PLATFORM_VERSION)
	if err != nil {
		return PlatformInfo{}, err
	}

	return PlatformInfo{Name: name, Vendor: vendor, Version: version}, nil
}

func (o *openCL) DeviceIDs(platform PlatformID, deviceType DeviceType) ([]DeviceID, error) {
	pid, ok := o.platforms.get(uint64(platform))
	if !ok {
		return nil, NewStatusError("clGetDeviceIDs", InvalidPlatform)
	}
	rawType, err := toCLDeviceType(deviceType)
	if err != nil {
		return nil, err
	}

	var count C.cl_uint
	if err := check("clGetDeviceIDs(count)", C.clGetDeviceIDs(pid, rawType, 0, nil, &count)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	raw := make([]C.cl_device_id, int(count))
	if err := check("clGetDeviceIDs(list)", C.clGetDeviceIDs(pid, rawType, count, &raw[0], nil)); err != nil {
		return nil, err
	}

	ids := make([]DeviceID, len(raw))
	for i, d := range raw {
		ids[i] = DeviceID(o.devices.put(d))
	}
	return ids, nil
}

func (o *openCL) DeviceInfo(device DeviceID) (DeviceInfo, error) {
	id, ok := o.devices.get(uint64(device))
	if !ok {
		return DeviceInfo{}, NewStatusError("clGetDeviceInfo", InvalidDevice)
	}

	name, err := getDeviceString(id, C.CL_DEVICE_NAME)
	if err != nil {
		return DeviceInfo{}, err
	}
	vendor, err := getDeviceString(id, C.CL_DEVICE_VENDOR)
	if err != nil {
		return DeviceInfo{}, err
	}
	version, err := getDeviceString(id, C.CL_DEVICE_VERSION)
	if err != nil {
		return DeviceInfo{}, err
	}

	var rawType C.cl_device_type
	status := C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(rawType)), unsafe.Pointer(&rawType), nil)
	if err := check("clGetDeviceInfo(type)", status); err != nil {
		return DeviceInfo{}, err
	}

	var computeUnits C.cl_uint
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(computeUnits)), unsafe.Pointer(&computeUnits), nil)
	if err := check("clGetDeviceInfo(computeUnits)", status); err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{
		Name:            name,
		Vendor:          vendor,
		Version:         version,
		Type:            mapDeviceType(rawType),
		MaxComputeUnits: uint32(computeUnits),
	}, nil
}

func (o *openCL) CreateContext(device DeviceID) (Context, error) {
	id, ok := o.devices.get(uint64(device))
	if !ok {
		return 0, NewStatusError("clCreateContext", InvalidDevice)
	}

	var status C.cl_int
	ctx := C.clCreateContext(nil, 1, &id, nil, nil, &status)
	if err := check("clCreateContext", status); err != nil {
		return 0, err
	}
	return Context(o.contexts.put(ctx)), nil
}

func (o *openCL) CreateCommandQueue(ctx Context, device DeviceID) (CommandQueue, error) {
	c, ok := o.contexts.get(uint64(ctx))
	if !ok {
		return 0, NewStatusError("clCreateCommandQueue", InvalidContext)
	}
	id, ok := o.devices.get(uint64(device))
	if !ok {
		return 0, NewStatusError("clCreateCommandQueue", InvalidDevice)
	}

	var status C.cl_int
	queue := C.clintro_create_queue(c, id, &status)
	if err := check("clCreateCommandQueue", status); err != nil {
		return 0, err
	}
	return CommandQueue(o.queues.put(queue)), nil
}

func (o *openCL) CreateBuffer(ctx Context, flags MemFlags, size int) (Mem, error) {
	c, ok := o.contexts.get(uint64(ctx))
	if !ok {
		return 0, NewStatusError("clCreateBuffer", InvalidContext)
	}
	if size <= 0 {
		return 0, NewStatusError("clCreateBuffer", InvalidBufferSize)
	}

	var status C.cl_int
	mem := C.clCreateBuffer(c, C.cl_mem_flags(flags), C.size_t(size), nil, &status)
	if err := check("clCreateBuffer", status); err != nil {
		return 0, err
	}
	return Mem(o.mems.put(mem)), nil
}

func (o *openCL) CreateProgramWithSource(ctx Context, source string) (Program, error) {
	c, ok := o.contexts.get(uint64(ctx))
	if !ok {
		return 0, NewStatusError("clCreateProgramWithSource", InvalidContext)
	}

	src := C.CString(source)
	defer C.free(unsafe.Pointer(src))

	var status C.cl_int
	program := C.clCreateProgramWithSource(c, 1, &src, nil, &status)
	if err := check("clCreateProgramWithSource", status); err != nil {
		return 0, err
	}
	return Program(o.programs.put(program)), nil
}

func (o *openCL) BuildProgram(program Program, device DeviceID, options string) error {
	p, ok := o.programs.get(uint64(program))
	if !ok {
		return NewStatusError("clBuildProgram", InvalidProgram)
	}
	id, ok := o.devices.get(uint64(device))
	if !ok {
		return NewStatusError("clBuildProgram", InvalidDevice)
	}

	var opts *C.char
	if options != "" {
		opts = C.CString(options)
		defer C.free(unsafe.Pointer(opts))
	}

	return check("clBuildProgram", C.clBuildProgram(p, 1, &id, opts, nil, nil))
}

func (o *openCL) ProgramBuildLog(program Program, device DeviceID) (string, error) {
	p, ok := o.programs.get(uint64(program))
	if !ok {
		return "", NewStatusError("clGetProgramBuildInfo", InvalidProgram)
	}
	id, ok := o.devices.get(uint64(device))
	if !ok {
		return "", NewStatusError("clGetProgramBuildInfo", InvalidDevice)
	}

	var logSize C.size_t
	if err := check("clGetProgramBuildInfo(size)", C.clGetProgramBuildInfo(p, id, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)); err != nil {
		return "", err
	}
	if logSize == 0 {
		return "", nil
	}

	buf := make([]byte, int(logSize))
	if err := check("clGetProgramBuildInfo(value)", C.clGetProgramBuildInfo(p, id, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return trimNull(buf), nil
}

func (o *openCL) CreateKernel(program Program, name string) (Kernel, error) {
	p, ok := o.programs.get(uint64(program))
	if !ok {
		return 0, NewStatusError("clCreateKernel", InvalidProgram)
	}

	kernelName := C.CString(name)
	defer C.free(unsafe.Pointer(kernelName))

	var status C.cl_int
	kernel := C.clCreateKernel(p, kernelName, &status)
	if err := check("clCreateKernel", status); err != nil {
		return 0, err
	}
	return Kernel(o.kernels.put(kernel)), nil
}

func (o *openCL) SetKernelArg(kernel Kernel, index int, value any) error {
	op := fmt.Sprintf("clSetKernelArg(%d)", index)
	k, ok := o.kernels.get(uint64(kernel))
	if !ok {
		return NewStatusError(op, InvalidKernel)
	}
	idx := C.cl_uint(index)

	var status C.cl_int
	switch v := value.(type) {
	case float32:
		cv := C.cl_float(v)
		status = C.clSetKernelArg(k, idx, C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
	case int32:
		cv := C.cl_int(v)
		status = C.clSetKernelArg(k, idx, C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
	case Mem:
		mem, ok := o.mems.get(uint64(v))
		if !ok {
			return NewStatusError(op, InvalidMemObject)
		}
		status = C.clSetKernelArg(k, idx, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem))
	default:
		return NewStatusError(op, InvalidArgValue)
	}
	return check(op, status)
}

func (o *openCL) EnqueueNDRangeKernel(queue CommandQueue, kernel Kernel, globalSize int) error {
	q, ok := o.queues.get(uint64(queue))
	if !ok {
		return NewStatusError("clEnqueueNDRangeKernel", InvalidCommandQueue)
	}
	k, ok := o.kernels.get(uint64(kernel))
	if !ok {
		return NewStatusError("clEnqueueNDRangeKernel", InvalidKernel)
	}

	global := C.size_t(globalSize)
	return check("clEnqueueNDRangeKernel", C.clEnqueueNDRangeKernel(q, k, 1, nil, &global, nil, 0, nil, nil))
}

func (o *openCL) EnqueueReadBuffer(queue CommandQueue, mem Mem, offset int, dst []byte) error {
	q, ok := o.queues.get(uint64(queue))
	if !ok {
		return NewStatusError("clEnqueueReadBuffer", InvalidCommandQueue)
	}
	m, ok := o.mems.get(uint64(mem))
	if !ok {
		return NewStatusError("clEnqueueReadBuffer", InvalidMemObject)
	}
	if len(dst) == 0 {
		return nil
	}

	status := C.clEnqueueReadBuffer(q, m, C.CL_TRUE, C.size_t(offset), C.size_t(len(dst)), unsafe.Pointer(&dst[0]), 0, nil, nil)
	return check("clEnqueueReadBuffer", status)
}

func (o *openCL) Finish(queue CommandQueue) error {
	q, ok := o.queues.get(uint64(queue))
	if !ok {
		return NewStatusError("clFinish", InvalidCommandQueue)
	}
	return check("clFinish", C.clFinish(q))
}

func (o *openCL) ReleaseMemObject(mem Mem) error {
	m, ok := o.mems.take(uint64(mem))
	if !ok {
		return NewStatusError("clReleaseMemObject", InvalidMemObject)
	}
	return check("clReleaseMemObject", C.clReleaseMemObject(m))
}

func (o *openCL) ReleaseKernel(kernel Kernel) error {
	k, ok := o.kernels.take(uint64(kernel))
	if !ok {
		return NewStatusError("clReleaseKernel", InvalidKernel)
	}
	return check("clReleaseKernel", C.clReleaseKernel(k))
}

func (o *openCL) ReleaseProgram(program Program) error {
	p, ok := o.programs.take(uint64(program))
	if !ok {
		return NewStatusError("clReleaseProgram", InvalidProgram)
	}
	return check("clReleaseProgram", C.clReleaseProgram(p))
}

func (o *openCL) ReleaseCommandQueue(queue CommandQueue) error {
	q, ok := o.queues.take(uint64(queue))
	if !ok {
		return NewStatusError("clReleaseCommandQueue", InvalidCommandQueue)
	}
	return check("clReleaseCommandQueue", C.clReleaseCommandQueue(q))
}

func (o *openCL) ReleaseContext(ctx Context) error {
	c, ok := o.contexts.take(uint64(ctx))
	if !ok {
		return NewStatusError("clReleaseContext", InvalidContext)
	}
	return check("clReleaseContext", C.clReleaseContext(c))
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	var size C.size_t
	if err := check("clGetPlatformInfo(size)", C.clGetPlatformInfo(id, param, 0, nil, &size)); err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	if err := check("clGetPlatformInfo(value)", C.clGetPlatformInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return trimNull(buf), nil
}

// getDeviceString sizes the buffer from the driver, so long names are never
// truncated.
func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	var size C.size_t
	if err := check("clGetDeviceInfo(size)", C.clGetDeviceInfo(id, param, 0, nil, &size)); err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	if err := check("clGetDeviceInfo(value)", C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)); err != nil {
		return "", err
	}
	return trimNull(buf), nil
}

func toCLDeviceType(dt DeviceType) (C.cl_device_type, error) {
	switch dt {
	case DeviceTypeGPU:
		return C.CL_DEVICE_TYPE_GPU, nil
	case DeviceTypeCPU:
		return C.CL_DEVICE_TYPE_CPU, nil
	case DeviceTypeAccelerator:
		return C.CL_DEVICE_TYPE_ACCELERATOR, nil
	case DeviceTypeDefault:
		return C.CL_DEVICE_TYPE_DEFAULT, nil
	case DeviceTypeAll:
		return C.CL_DEVICE_TYPE_ALL, nil
	default:
		return 0, NewStatusError("clGetDeviceIDs", InvalidDeviceType)
	}
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	case dt&C.CL_DEVICE_TYPE_DEFAULT != 0:
		return DeviceTypeDefault
	default:
		return DeviceTypeUnknown
	}
}
