package api

import (
	"errors"
	"fmt"
)

// Capacity errors. The caller may recover by releasing objects and retrying.
var (
	// ErrOutOfMemory is returned when the native allocator or the layer's
	// allocation budget cannot satisfy a request.
	ErrOutOfMemory = errors.New("interpose: out of memory")

	// ErrPoolExhausted is returned when a descriptor pool has no room left.
	ErrPoolExhausted = errors.New("interpose: descriptor pool exhausted")
)

// Validation errors. Callers avoid them by querying capabilities first.
var (
	// ErrUnsupported is returned when a capability, format or usage is not
	// supported by the device.
	ErrUnsupported = errors.New("interpose: not supported by device")

	// ErrInvalidDesc is returned for malformed descriptions.
	ErrInvalidDesc = errors.New("interpose: invalid description")

	// ErrViewCreation is returned when a view description is incompatible
	// with its resource.
	ErrViewCreation = errors.New("interpose: incompatible resource view")

	// ErrNotMappable is returned when a resource is not CPU-visible for the
	// requested access.
	ErrNotMappable = errors.New("interpose: resource not mappable")

	// ErrAlreadyMapped is returned when mapping a resource that is mapped.
	ErrAlreadyMapped = errors.New("interpose: resource already mapped")
)

// ErrNotReady is returned when query results are not yet available. The
// condition is retryable.
var ErrNotReady = errors.New("interpose: not ready")

// ErrDeviceLost is returned once the native device reported loss. The device
// and everything it owns are unusable afterwards.
var ErrDeviceLost = errors.New("interpose: device lost")

// PipelineCompileError reports a shader stage that failed to compile or
// could not be turned into a native shader module.
type PipelineCompileError struct {
	// Stage is the failing shader stage.
	Stage ShaderStage

	// EntryPoint is the entry point of the failing stage.
	EntryPoint string

	// Err is the compiler or backend error.
	Err error
}

// Error implements the error interface.
func (e *PipelineCompileError) Error() string {
	return fmt.Sprintf("interpose: %s shader %q failed to compile: %v", e.Stage, e.EntryPoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineCompileError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a condition the caller can poll on.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNotReady)
}
