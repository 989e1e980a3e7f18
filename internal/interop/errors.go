package interop

import "github.com/pkg/errors"

var (
	// ErrInvalidDimensions is reported for descriptors built from non-positive sizes.
	ErrInvalidDimensions = errors.New("interop: invalid dimensions")
	// ErrInvalidDescriptor is reported for descriptors with neither host memory nor a device binding.
	ErrInvalidDescriptor = errors.New("interop: descriptor has no data source")
	// ErrSizeMismatch is reported when a host slice does not cover the descriptor exactly.
	ErrSizeMismatch = errors.New("interop: host buffer size mismatch")
	// ErrReadOnlyHost is reported when writing to host memory borrowed as an input.
	ErrReadOnlyHost = errors.New("interop: host buffer is borrowed read-only")
	// ErrNoHost is reported when a transfer needs host memory the descriptor does not have.
	ErrNoHost = errors.New("interop: descriptor has no host buffer")
	// ErrConflictingResidency is reported when host and device would both claim to be authoritative.
	ErrConflictingResidency = errors.New("interop: conflicting host and device residency")

	// ErrAlreadyWrapped is reported by Wrap on a descriptor that is still wrapped.
	ErrAlreadyWrapped = errors.New("interop: descriptor already wraps a texture")
	// ErrDetachedDescriptor is reported by Wrap on a descriptor that was already detached.
	ErrDetachedDescriptor = errors.New("interop: descriptor was detached")
	// ErrTextureInUse is reported by Wrap when another live descriptor wraps the texture.
	ErrTextureInUse = errors.New("interop: texture already wrapped by another descriptor")
	// ErrNotWrapped is reported by Detach on a descriptor whose device copy the runtime allocated.
	ErrNotWrapped = errors.New("interop: device copy was not wrapped")

	// ErrNoContextProvider is reported when a device operation runs without an installed provider.
	ErrNoContextProvider = errors.New("interop: no context provider installed")
	// ErrUnsupportedDevice is reported when the provider's device cannot run kernels.
	ErrUnsupportedDevice = errors.New("interop: provider device is not a compute device")
	// ErrContextLost is reported when the provider can no longer activate its context.
	ErrContextLost = errors.New("interop: device context lost")
	// ErrRuntimeReleased is reported for any device operation after ReleaseAllDeviceState.
	ErrRuntimeReleased = errors.New("interop: device state already released")
)

// contextLostError keeps the provider's failure in the chain next to
// ErrContextLost.
type contextLostError struct {
	op  string
	err error
}

func (e *contextLostError) Error() string {
	return ErrContextLost.Error() + ": " + e.op + ": " + e.err.Error()
}

func (e *contextLostError) Is(target error) bool { return target == ErrContextLost }

func (e *contextLostError) Unwrap() error { return e.err }

func contextLost(op string, err error) error {
	return errors.WithStack(&contextLostError{op: op, err: err})
}
