// Package cltest provides an in-memory implementation of cl.API for tests.
//
// The fake keeps real object lifecycles (unknown or double-released handles
// fail with the matching CL_INVALID_* status), records every call it serves,
// and executes registered kernels on the host.
package cltest

import (
	"encoding/binary"
	"math"
	"regexp"
	"sync"

	"github.com/cwbudde/clintro/internal/cl"
)

// Device describes a fake device.
type Device struct {
	Name         string
	Vendor       string
	Version      string
	Type         cl.DeviceType
	ComputeUnits uint32
}

// Platform describes a fake platform and its devices.
type Platform struct {
	Name    string
	Vendor  string
	Version string
	Devices []Device
}

// Arg is a bound kernel argument as seen by a KernelFunc.
type Arg struct {
	Value any    // float32, int32 or cl.Mem
	Data  []byte // backing store when Value is a cl.Mem
}

// KernelFunc emulates a kernel launch over globalSize work-items.
type KernelFunc func(globalSize int, args []Arg) cl.Status

// AddFloats emulates `c[0] = a + b`.
func AddFloats(_ int, args []Arg) cl.Status {
	if len(args) != 3 {
		return cl.InvalidKernelArgs
	}
	a, okA := args[0].Value.(float32)
	b, okB := args[1].Value.(float32)
	if !okA || !okB || len(args[2].Data) < 4 {
		return cl.InvalidKernelArgs
	}
	binary.NativeEndian.PutUint32(args[2].Data, math.Float32bits(a+b))
	return cl.Success
}

// Fake implements cl.API.
type Fake struct {
	Platforms []Platform
	// Kernels maps entry-point names to host emulations. NewFake registers
	// add_floats.
	Kernels map[string]KernelFunc
	// Failures forces the named call (e.g. "clBuildProgram") to return the
	// given status.
	Failures map[string]cl.Status
	// BuildLog is returned by ProgramBuildLog.
	BuildLog string

	mu       sync.Mutex
	calls    []string
	next     uint64
	devices  map[cl.DeviceID]Device
	contexts map[cl.Context]struct{}
	queues   map[cl.CommandQueue]struct{}
	mems     map[cl.Mem][]byte
	programs map[cl.Program]*program
	kernels  map[cl.Kernel]*kernel
}

type program struct {
	source string
	built  bool
}

type kernel struct {
	name string
	args map[int]any
}

var _ cl.API = (*Fake)(nil)

// NewFake returns a fake exposing the given platforms.
func NewFake(platforms ...Platform) *Fake {
	return &Fake{
		Platforms: platforms,
		Kernels:   map[string]KernelFunc{"add_floats": AddFloats},
		Failures:  map[string]cl.Status{},
		devices:   map[cl.DeviceID]Device{},
		contexts:  map[cl.Context]struct{}{},
		queues:    map[cl.CommandQueue]struct{}{},
		mems:      map[cl.Mem][]byte{},
		programs:  map[cl.Program]*program{},
		kernels:   map[cl.Kernel]*kernel{},
	}
}

// SingleGPU returns a fake with one platform holding one GPU named name.
func SingleGPU(name string) *Fake {
	return NewFake(Platform{
		Name:    "Fake OpenCL",
		Vendor:  "clintro",
		Version: "OpenCL 1.2 fake",
		Devices: []Device{{
			Name:         name,
			Vendor:       "clintro",
			Version:      "OpenCL 1.2",
			Type:         cl.DeviceTypeGPU,
			ComputeUnits: 8,
		}},
	})
}

// Calls returns the OpenCL entry points served so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Live returns the number of created objects that have not been released.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.contexts) + len(f.queues) + len(f.mems) + len(f.programs) + len(f.kernels)
}

// enter records the call and reports an injected failure, if any.
func (f *Fake) enter(op string) error {
	f.calls = append(f.calls, op)
	if status, ok := f.Failures[op]; ok {
		return cl.NewStatusError(op, status)
	}
	return nil
}

func (f *Fake) id() uint64 {
	f.next++
	return f.next
}

// Platform and device handles are positional so repeated enumeration is
// stable: platform i is i+1, device j of platform i is (i+1)<<16 | j+1.
func deviceHandle(platform, device int) cl.DeviceID {
	return cl.DeviceID(uint64(platform+1)<<16 | uint64(device+1))
}

func (f *Fake) platform(p cl.PlatformID) (int, bool) {
	i := int(p) - 1
	return i, i >= 0 && i < len(f.Platforms)
}

func (f *Fake) PlatformIDs() ([]cl.PlatformID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clGetPlatformIDs"); err != nil {
		return nil, err
	}
	ids := make([]cl.PlatformID, len(f.Platforms))
	for i := range f.Platforms {
		ids[i] = cl.PlatformID(i + 1)
	}
	return ids, nil
}

func (f *Fake) PlatformInfo(p cl.PlatformID) (cl.PlatformInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clGetPlatformInfo"); err != nil {
		return cl.PlatformInfo{}, err
	}
	i, ok := f.platform(p)
	if !ok {
		return cl.PlatformInfo{}, cl.NewStatusError("clGetPlatformInfo", cl.InvalidPlatform)
	}
	pl := f.Platforms[i]
	return cl.PlatformInfo{Name: pl.Name, Vendor: pl.Vendor, Version: pl.Version}, nil
}

func (f *Fake) DeviceIDs(p cl.PlatformID, deviceType cl.DeviceType) ([]cl.DeviceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clGetDeviceIDs"); err != nil {
		return nil, err
	}
	i, ok := f.platform(p)
	if !ok {
		return nil, cl.NewStatusError("clGetDeviceIDs", cl.InvalidPlatform)
	}

	var ids []cl.DeviceID
	for j, d := range f.Platforms[i].Devices {
		if !d.Type.Matches(deviceType) {
			continue
		}
		id := deviceHandle(i, j)
		f.devices[id] = d
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, cl.NewStatusError("clGetDeviceIDs", cl.DeviceNotFound)
	}
	return ids, nil
}

func (f *Fake) DeviceInfo(d cl.DeviceID) (cl.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clGetDeviceInfo"); err != nil {
		return cl.DeviceInfo{}, err
	}
	dev, ok := f.devices[d]
	if !ok {
		return cl.DeviceInfo{}, cl.NewStatusError("clGetDeviceInfo", cl.InvalidDevice)
	}
	return cl.DeviceInfo{
		Name:            dev.Name,
		Vendor:          dev.Vendor,
		Version:         dev.Version,
		Type:            dev.Type,
		MaxComputeUnits: dev.ComputeUnits,
	}, nil
}

func (f *Fake) CreateContext(d cl.DeviceID) (cl.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clCreateContext"); err != nil {
		return 0, err
	}
	if _, ok := f.devices[d]; !ok {
		return 0, cl.NewStatusError("clCreateContext", cl.InvalidDevice)
	}
	ctx := cl.Context(f.id())
	f.contexts[ctx] = struct{}{}
	return ctx, nil
}

func (f *Fake) CreateCommandQueue(ctx cl.Context, d cl.DeviceID) (cl.CommandQueue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clCreateCommandQueue"); err != nil {
		return 0, err
	}
	if _, ok := f.contexts[ctx]; !ok {
		return 0, cl.NewStatusError("clCreateCommandQueue", cl.InvalidContext)
	}
	if _, ok := f.devices[d]; !ok {
		return 0, cl.NewStatusError("clCreateCommandQueue", cl.InvalidDevice)
	}
	q := cl.CommandQueue(f.id())
	f.queues[q] = struct{}{}
	return q, nil
}

func (f *Fake) CreateBuffer(ctx cl.Context, _ cl.MemFlags, size int) (cl.Mem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clCreateBuffer"); err != nil {
		return 0, err
	}
	if _, ok := f.contexts[ctx]; !ok {
		return 0, cl.NewStatusError("clCreateBuffer", cl.InvalidContext)
	}
	if size <= 0 {
		return 0, cl.NewStatusError("clCreateBuffer", cl.InvalidBufferSize)
	}
	m := cl.Mem(f.id())
	f.mems[m] = make([]byte, size)
	return m, nil
}

func (f *Fake) CreateProgramWithSource(ctx cl.Context, source string) (cl.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clCreateProgramWithSource"); err != nil {
		return 0, err
	}
	if _, ok := f.contexts[ctx]; !ok {
		return 0, cl.NewStatusError("clCreateProgramWithSource", cl.InvalidContext)
	}
	if source == "" {
		return 0, cl.NewStatusError("clCreateProgramWithSource", cl.InvalidValue)
	}
	p := cl.Program(f.id())
	f.programs[p] = &program{source: source}
	return p, nil
}

func (f *Fake) BuildProgram(p cl.Program, d cl.DeviceID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clBuildProgram"); err != nil {
		return err
	}
	prog, ok := f.programs[p]
	if !ok {
		return cl.NewStatusError("clBuildProgram", cl.InvalidProgram)
	}
	if _, ok := f.devices[d]; !ok {
		return cl.NewStatusError("clBuildProgram", cl.InvalidDevice)
	}
	prog.built = true
	return nil
}

func (f *Fake) ProgramBuildLog(p cl.Program, _ cl.DeviceID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clGetProgramBuildInfo"); err != nil {
		return "", err
	}
	if _, ok := f.programs[p]; !ok {
		return "", cl.NewStatusError("clGetProgramBuildInfo", cl.InvalidProgram)
	}
	return f.BuildLog, nil
}

var kernelDecl = regexp.MustCompile(`__kernel\s+void\s+(\w+)\s*\(`)

func (f *Fake) CreateKernel(p cl.Program, name string) (cl.Kernel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clCreateKernel"); err != nil {
		return 0, err
	}
	prog, ok := f.programs[p]
	if !ok {
		return 0, cl.NewStatusError("clCreateKernel", cl.InvalidProgram)
	}
	if !prog.built {
		return 0, cl.NewStatusError("clCreateKernel", cl.InvalidProgramExecutable)
	}

	declared := false
	for _, m := range kernelDecl.FindAllStringSubmatch(prog.source, -1) {
		if m[1] == name {
			declared = true
			break
		}
	}
	if _, ok := f.Kernels[name]; !ok || !declared {
		return 0, cl.NewStatusError("clCreateKernel", cl.InvalidKernelName)
	}

	k := cl.Kernel(f.id())
	f.kernels[k] = &kernel{name: name, args: map[int]any{}}
	return k, nil
}

func (f *Fake) SetKernelArg(k cl.Kernel, index int, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clSetKernelArg"); err != nil {
		return err
	}
	kern, ok := f.kernels[k]
	if !ok {
		return cl.NewStatusError("clSetKernelArg", cl.InvalidKernel)
	}
	if index < 0 {
		return cl.NewStatusError("clSetKernelArg", cl.InvalidArgIndex)
	}
	switch v := value.(type) {
	case float32, int32:
	case cl.Mem:
		if _, ok := f.mems[v]; !ok {
			return cl.NewStatusError("clSetKernelArg", cl.InvalidMemObject)
		}
	default:
		return cl.NewStatusError("clSetKernelArg", cl.InvalidArgValue)
	}
	kern.args[index] = value
	return nil
}

func (f *Fake) EnqueueNDRangeKernel(q cl.CommandQueue, k cl.Kernel, globalSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clEnqueueNDRangeKernel"); err != nil {
		return err
	}
	if _, ok := f.queues[q]; !ok {
		return cl.NewStatusError("clEnqueueNDRangeKernel", cl.InvalidCommandQueue)
	}
	kern, ok := f.kernels[k]
	if !ok {
		return cl.NewStatusError("clEnqueueNDRangeKernel", cl.InvalidKernel)
	}
	if globalSize <= 0 {
		return cl.NewStatusError("clEnqueueNDRangeKernel", cl.InvalidWorkItemSize)
	}

	args := make([]Arg, len(kern.args))
	for i := range args {
		v, ok := kern.args[i]
		if !ok {
			return cl.NewStatusError("clEnqueueNDRangeKernel", cl.InvalidKernelArgs)
		}
		args[i].Value = v
		if m, isMem := v.(cl.Mem); isMem {
			data, ok := f.mems[m]
			if !ok {
				return cl.NewStatusError("clEnqueueNDRangeKernel", cl.InvalidMemObject)
			}
			args[i].Data = data
		}
	}

	return cl.NewStatusError("clEnqueueNDRangeKernel", f.Kernels[kern.name](globalSize, args))
}

func (f *Fake) EnqueueReadBuffer(q cl.CommandQueue, m cl.Mem, offset int, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clEnqueueReadBuffer"); err != nil {
		return err
	}
	if _, ok := f.queues[q]; !ok {
		return cl.NewStatusError("clEnqueueReadBuffer", cl.InvalidCommandQueue)
	}
	data, ok := f.mems[m]
	if !ok {
		return cl.NewStatusError("clEnqueueReadBuffer", cl.InvalidMemObject)
	}
	if offset < 0 || offset+len(dst) > len(data) {
		return cl.NewStatusError("clEnqueueReadBuffer", cl.InvalidValue)
	}
	copy(dst, data[offset:])
	return nil
}

func (f *Fake) Finish(q cl.CommandQueue) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clFinish"); err != nil {
		return err
	}
	if _, ok := f.queues[q]; !ok {
		return cl.NewStatusError("clFinish", cl.InvalidCommandQueue)
	}
	return nil
}

func (f *Fake) ReleaseMemObject(m cl.Mem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clReleaseMemObject"); err != nil {
		return err
	}
	if _, ok := f.mems[m]; !ok {
		return cl.NewStatusError("clReleaseMemObject", cl.InvalidMemObject)
	}
	delete(f.mems, m)
	return nil
}

func (f *Fake) ReleaseKernel(k cl.Kernel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clReleaseKernel"); err != nil {
		return err
	}
	if _, ok := f.kernels[k]; !ok {
		return cl.NewStatusError("clReleaseKernel", cl.InvalidKernel)
	}
	delete(f.kernels, k)
	return nil
}

func (f *Fake) ReleaseProgram(p cl.Program) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clReleaseProgram"); err != nil {
		return err
	}
	if _, ok := f.programs[p]; !ok {
		return cl.NewStatusError("clReleaseProgram", cl.InvalidProgram)
	}
	delete(f.programs, p)
	return nil
}

func (f *Fake) ReleaseCommandQueue(q cl.CommandQueue) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clReleaseCommandQueue"); err != nil {
		return err
	}
	if _, ok := f.queues[q]; !ok {
		return cl.NewStatusError("clReleaseCommandQueue", cl.InvalidCommandQueue)
	}
	delete(f.queues, q)
	return nil
}

func (f *Fake) ReleaseContext(ctx cl.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("clReleaseContext"); err != nil {
		return err
	}
	if _, ok := f.contexts[ctx]; !ok {
		return cl.NewStatusError("clReleaseContext", cl.InvalidContext)
	}
	delete(f.contexts, ctx)
	return nil
}
