package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
)

// Backend identifies a device implementation.
type Backend string

const (
	BackendSoft   Backend = "soft"
	BackendOpenCL Backend = "opencl"
)

var (
	// ErrUnknownBackend is returned when the name does not match a known backend.
	ErrUnknownBackend = errors.New("unknown device backend")
	// ErrBackendUnavailable indicates the backend is not available in this build.
	ErrBackendUnavailable = errors.New("device backend unavailable")
	// ErrKernelUnsupported indicates the kernel has no program for this device.
	ErrKernelUnsupported = errors.New("kernel not supported by device")
	// ErrUnknownTexture is returned for handles the device never created or already deleted.
	ErrUnknownTexture = errors.New("unknown texture")
	// ErrSizeMismatch is returned when a host slice does not match the texture size.
	ErrSizeMismatch = errors.New("texture size mismatch")
	// ErrDeviceDestroyed is returned for any call after Destroy.
	ErrDeviceDestroyed = errors.New("device destroyed")
	// ErrNotBuilt indicates the binary was built without OpenCL support.
	ErrNotBuilt = errors.New("opencl support requires building with '-tags gpu'")
)

// Kernel is a whole-image RGBA8 pixel program.
//
// Apply is the host implementation; it must only write dst. OpenCL, when
// non-empty, is the source of a kernel function called Name with signature
//
//	__kernel void Name(__global const uchar4 *src, __global uchar4 *dst,
//	                   const int width, const int height)
type Kernel struct {
	Name   string
	Apply  func(dst, src []byte, width, height int)
	OpenCL string
}

// Device owns device-resident textures and runs kernels on them. All calls
// are synchronous: they return after the device finished the work. A
// ContextProvider hands it out as its gpucontext.Device.
type Device interface {
	// Poll waits for outstanding work when wait is true.
	Poll(wait bool)
	// Destroy releases every texture and the device itself.
	Destroy()

	Info() DeviceInfo
	// CreateTexture allocates a texture, initialised from pix when it is non-nil.
	CreateTexture(desc TextureDescriptor, pix []byte) (TextureHandle, error)
	DeleteTexture(tex TextureHandle) error
	Describe(tex TextureHandle) (TextureDescriptor, error)
	// Upload copies host pixels into the texture.
	Upload(tex TextureHandle, pix []byte) error
	// Download copies the texture into dst.
	Download(tex TextureHandle, dst []byte) error
	// Dispatch runs k reading src and writing dst. Both must have the same size.
	Dispatch(k Kernel, src, dst TextureHandle) error
}

// ContextProvider is the capability a host application installs so that the
// interop runtime activates the host's existing context instead of creating
// its own. Device() must return a value that also implements Device.
type ContextProvider interface {
	gpucontext.DeviceProvider

	// MakeCurrent activates the provider's context for the calling thread.
	MakeCurrent() error
}

// AdapterType maps a device type onto the gpucontext adapter classification.
func AdapterType(t DeviceType) gpucontext.AdapterType {
	switch t {
	case DeviceTypeGPU, DeviceTypeAccelerator:
		return gpucontext.AdapterTypeDiscrete
	case DeviceTypeCPU, DeviceTypeEmulated:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// NormalizeBackend maps arbitrary user input to a canonical backend identifier.
func NormalizeBackend(name string) Backend {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "soft", "software", "emulated":
		return BackendSoft
	case "gpu", "opencl", "cl":
		return BackendOpenCL
	default:
		return Backend(name)
	}
}

// SupportedBackends returns the list of backends understood by Open.
func SupportedBackends() []Backend {
	return []Backend{BackendSoft, BackendOpenCL}
}

// Open creates the requested device.
func Open(name string) (Device, error) {
	switch backend := NormalizeBackend(name); backend {
	case BackendSoft:
		return NewSoftDevice(), nil
	case BackendOpenCL:
		return openOpenCL()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

func checkHostSize(desc TextureDescriptor, pix []byte) error {
	if len(pix) != desc.ByteSize() {
		return fmt.Errorf("%w: texture %dx%d needs %d bytes, got %d",
			ErrSizeMismatch, desc.Width(), desc.Height(), desc.ByteSize(), len(pix))
	}
	return nil
}
