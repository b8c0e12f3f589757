// Package session runs the add_floats kernel on one OpenCL device.
//
// A Session owns every driver object it creates. Open acquires them in
// dependency order and Close releases them in reverse, so a caller only needs
// to defer Close once Open has succeeded. A failing Open releases whatever it
// had already created before returning.
package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/clintro/internal/cl"
)

// KernelName is the entry point declared by KernelSource.
const KernelName = "add_floats"

// KernelSource computes c[0] = a + b on a single work-item.
const KernelSource = `__kernel void add_floats(float a, float b, __global float* c) {
    c[0] = a + b;
}
`

const resultSize = 4 // sizeof(float)

var (
	// ErrNoPlatform is returned when platform enumeration fails or finds nothing.
	ErrNoPlatform = errors.New("Cant find any platforms")
	// ErrNoDevice is returned when device enumeration fails or finds nothing.
	ErrNoDevice = errors.New("No device found")
)

// BuildError reports a failed program build together with the compiler log.
type BuildError struct {
	Log string
	Err error
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n%s", e.Err, e.Log)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Options select the device and the kernel operands.
type Options struct {
	PlatformIndex int
	DeviceIndex   int
	DeviceType    cl.DeviceType
	BuildOptions  string
	A, B          float32
	Logger        *slog.Logger
}

// DefaultOptions reproduces the classic demo: first GPU of the first
// platform, a = 5 and b = 10.
func DefaultOptions() Options {
	return Options{
		DeviceType: cl.DeviceTypeGPU,
		A:          5.0,
		B:          10.0,
	}
}

// Result is the outcome of one kernel execution.
type Result struct {
	A   float32 `json:"a"`
	B   float32 `json:"b"`
	Sum float32 `json:"result"`
}

// Session holds the context, queue, result buffer, program and kernel for
// one device. It is not safe for concurrent use.
type Session struct {
	api    cl.API
	logger *slog.Logger
	a, b   float32

	Platform cl.PlatformInfo
	Device   cl.DeviceInfo

	device  cl.DeviceID
	context cl.Context
	queue   cl.CommandQueue
	result  cl.Mem
	program cl.Program
	kernel  cl.Kernel

	closed bool
}

// Open discovers the device, allocates the driver objects, builds the
// kernel and binds its arguments.
func Open(api cl.API, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DeviceType == "" {
		opts.DeviceType = cl.DeviceTypeGPU
	}

	s := &Session{api: api, logger: logger, a: opts.A, b: opts.B}
	if err := s.open(opts); err != nil {
		if cerr := s.Close(); cerr != nil {
			logger.Warn("Release after failed open", "err", cerr)
		}
		return nil, err
	}

	logger.Info("OpenCL session opened",
		"platform", s.Platform.Name,
		"device", s.Device.Name,
		"vendor", s.Device.Vendor,
		"compute_units", s.Device.MaxComputeUnits,
	)
	return s, nil
}

func (s *Session) open(opts Options) error {
	platform, err := s.selectPlatform(opts.PlatformIndex)
	if err != nil {
		return err
	}
	if err := s.selectDevice(platform, opts.DeviceType, opts.DeviceIndex); err != nil {
		return err
	}

	if s.context, err = s.api.CreateContext(s.device); err != nil {
		return err
	}
	if s.queue, err = s.api.CreateCommandQueue(s.context, s.device); err != nil {
		return err
	}
	if s.result, err = s.api.CreateBuffer(s.context, cl.MemWriteOnly, resultSize); err != nil {
		return err
	}
	if err := s.build(opts.BuildOptions); err != nil {
		return err
	}
	return s.bind()
}

func (s *Session) selectPlatform(index int) (cl.PlatformID, error) {
	platforms, err := s.api.PlatformIDs()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoPlatform, err)
	}
	if len(platforms) == 0 {
		return 0, fmt.Errorf("%w: none reported", ErrNoPlatform)
	}
	if index < 0 || index >= len(platforms) {
		return 0, fmt.Errorf("%w: platform index %d, %d available", ErrNoPlatform, index, len(platforms))
	}

	pid := platforms[index]
	info, err := s.api.PlatformInfo(pid)
	if err != nil {
		return 0, err
	}
	s.Platform = info
	return pid, nil
}

func (s *Session) selectDevice(platform cl.PlatformID, deviceType cl.DeviceType, index int) error {
	devices, err := s.api.DeviceIDs(platform, deviceType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no %s devices reported", ErrNoDevice, deviceType)
	}
	if index < 0 || index >= len(devices) {
		return fmt.Errorf("%w: %s device index %d, %d available", ErrNoDevice, deviceType, index, len(devices))
	}

	s.device = devices[index]
	info, err := s.api.DeviceInfo(s.device)
	if err != nil {
		return err
	}
	s.Device = info
	return nil
}

func (s *Session) build(options string) error {
	var err error
	if s.program, err = s.api.CreateProgramWithSource(s.context, KernelSource); err != nil {
		return err
	}

	if err := s.api.BuildProgram(s.program, s.device, options); err != nil {
		log, logErr := s.api.ProgramBuildLog(s.program, s.device)
		if logErr != nil {
			s.logger.Error("OpenCL: failed to fetch build log", "err", logErr)
		}
		return &BuildError{Log: log, Err: err}
	}

	if s.kernel, err = s.api.CreateKernel(s.program, KernelName); err != nil {
		return err
	}
	return nil
}

func (s *Session) bind() error {
	if err := s.api.SetKernelArg(s.kernel, 0, s.a); err != nil {
		return err
	}
	if err := s.api.SetKernelArg(s.kernel, 1, s.b); err != nil {
		return err
	}
	return s.api.SetKernelArg(s.kernel, 2, s.result)
}

// Run launches one work-item and blocks until the result has been copied
// back to the host.
func (s *Session) Run() (Result, error) {
	if s.closed {
		return Result{}, errors.New("session is closed")
	}

	if err := s.api.EnqueueNDRangeKernel(s.queue, s.kernel, 1); err != nil {
		return Result{}, err
	}

	buf := make([]byte, resultSize)
	if err := s.api.EnqueueReadBuffer(s.queue, s.result, 0, buf); err != nil {
		return Result{}, err
	}

	sum := math.Float32frombits(binary.NativeEndian.Uint32(buf))
	s.logger.Debug("Kernel finished", "a", s.a, "b", s.b, "result", sum)
	return Result{A: s.a, B: s.b, Sum: sum}, nil
}

// Close releases the result buffer, kernel, program, command queue and
// context, in that order. Handles that were never created are skipped.
// Calling Close more than once is a no-op.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.result != 0 {
		errs = append(errs, s.api.ReleaseMemObject(s.result))
		s.result = 0
	}
	if s.kernel != 0 {
		errs = append(errs, s.api.ReleaseKernel(s.kernel))
		s.kernel = 0
	}
	if s.program != 0 {
		errs = append(errs, s.api.ReleaseProgram(s.program))
		s.program = 0
	}
	if s.queue != 0 {
		errs = append(errs, s.api.ReleaseCommandQueue(s.queue))
		s.queue = 0
	}
	if s.context != 0 {
		errs = append(errs, s.api.ReleaseContext(s.context))
		s.context = 0
	}
	return errors.Join(errs...)
}
