// Package cl exposes the subset of the OpenCL 1.2 host API needed to build,
// launch and read back a kernel.
//
// Handles returned by an API are plain integers owned by that API instance.
// Create-style calls must be paired with exactly one matching Release call.
// Platform and device handles are never released.
package cl

// API is the OpenCL call surface. Each method corresponds to one clXxx entry
// point and reports failures as *StatusError.
type API interface {
	PlatformIDs() ([]PlatformID, error)
	PlatformInfo(platform PlatformID) (PlatformInfo, error)
	DeviceIDs(platform PlatformID, deviceType DeviceType) ([]DeviceID, error)
	DeviceInfo(device DeviceID) (DeviceInfo, error)

	CreateContext(device DeviceID) (Context, error)
	CreateCommandQueue(ctx Context, device DeviceID) (CommandQueue, error)
	CreateBuffer(ctx Context, flags MemFlags, size int) (Mem, error)
	CreateProgramWithSource(ctx Context, source string) (Program, error)
	BuildProgram(program Program, device DeviceID, options string) error
	ProgramBuildLog(program Program, device DeviceID) (string, error)
	CreateKernel(program Program, name string) (Kernel, error)

	// SetKernelArg binds value to argument index. Supported values are
	// float32, int32 and Mem.
	SetKernelArg(kernel Kernel, index int, value any) error
	// EnqueueNDRangeKernel launches a one-dimensional range of globalSize
	// work-items.
	EnqueueNDRangeKernel(queue CommandQueue, kernel Kernel, globalSize int) error
	// EnqueueReadBuffer copies len(dst) bytes starting at offset into dst.
	// The read is always blocking.
	EnqueueReadBuffer(queue CommandQueue, mem Mem, offset int, dst []byte) error
	Finish(queue CommandQueue) error

	ReleaseMemObject(mem Mem) error
	ReleaseKernel(kernel Kernel) error
	ReleaseProgram(program Program) error
	ReleaseCommandQueue(queue CommandQueue) error
	ReleaseContext(ctx Context) error
}
