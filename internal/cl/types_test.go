package cl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceType(t *testing.T) {
	tests := []struct {
		in   string
		want DeviceType
	}{
		{"", DeviceTypeGPU},
		{"gpu", DeviceTypeGPU},
		{" GPU ", DeviceTypeGPU},
		{"cpu", DeviceTypeCPU},
		{"accelerator", DeviceTypeAccelerator},
		{"acc", DeviceTypeAccelerator},
		{"default", DeviceTypeDefault},
		{"all", DeviceTypeAll},
		{"tpu", DeviceTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDeviceType(tt.in))
		})
	}
}

func TestDeviceTypeMatches(t *testing.T) {
	assert.True(t, DeviceTypeGPU.Matches(DeviceTypeGPU))
	assert.True(t, DeviceTypeCPU.Matches(DeviceTypeAll))
	assert.False(t, DeviceTypeCPU.Matches(DeviceTypeGPU))
}

func TestTrimNull(t *testing.T) {
	assert.Equal(t, "", trimNull(nil))
	assert.Equal(t, "abc", trimNull([]byte("abc\x00")))
	assert.Equal(t, "abc", trimNull([]byte("abc")))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "CL_SUCCESS", Success.String())
	assert.Equal(t, "CL_DEVICE_NOT_FOUND", DeviceNotFound.String())
	assert.Equal(t, "CL_BUILD_PROGRAM_FAILURE", BuildProgramFailure.String())
	assert.Equal(t, "CL_PLATFORM_NOT_FOUND_KHR", PlatformNotFoundKHR.String())
	assert.Equal(t, "CL_UNKNOWN_ERROR", Status(-9999).String())
}

func TestStatusError(t *testing.T) {
	require.NoError(t, NewStatusError("clFinish", Success))

	err := NewStatusError("clCreateContext", OutOfHostMemory)
	require.Error(t, err)
	assert.Equal(t, "clCreateContext: CL_OUT_OF_HOST_MEMORY (-6)", err.Error())

	wrapped := fmt.Errorf("open session: %w", err)
	status, ok := StatusOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, OutOfHostMemory, status)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
}
