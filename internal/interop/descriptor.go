package interop

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cwbudde/filterdemo/internal/gpu"
)

const (
	// Channels is the extent of axis 2: interleaved R, G, B, A.
	Channels = 4
	// ElemSize is the size in bytes of one channel value.
	ElemSize = 1
	// Dims is the number of axes a descriptor describes.
	Dims = 3
)

// BindingState tracks a descriptor's association with a wrapped texture.
type BindingState int

const (
	Unbound BindingState = iota
	Wrapped
	Detached
)

func (s BindingState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Wrapped:
		return "wrapped"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("BindingState(%d)", int(s))
	}
}

// deviceCopy is the device side of a descriptor. owned copies were allocated
// by the runtime and are freed by it; wrapped ones belong to the caller.
type deviceCopy struct {
	tex   gpu.TextureHandle
	owned bool
}

// Descriptor describes a 2D image of interleaved 8-bit RGBA pixels stored
// row-major, in host memory, on the device, or both.
//
// Geometry is fixed by NewDescriptor: extents [width, height, 4], strides
// [4, 4*width, 1], one byte per element. Descriptors are values built fresh
// for every invocation; they never own the host memory or wrapped textures
// they reference.
type Descriptor struct {
	extent [Dims]int
	stride [Dims]int

	host         []byte
	hostReadOnly bool
	hostDirty    bool
	deviceDirty  bool

	dev   *deviceCopy
	state BindingState
}

// NewDescriptor builds the descriptor of a width x height RGBA8 image with no
// host memory and no device copy. Sizes must be positive; a descriptor built
// from other sizes fails Validate.
func NewDescriptor(width, height int) Descriptor {
	return Descriptor{
		extent: [Dims]int{width, height, Channels},
		stride: [Dims]int{Channels, Channels * width, 1},
	}
}

// Width returns the extent of axis 0.
func (d *Descriptor) Width() int { return d.extent[0] }

// Height returns the extent of axis 1.
func (d *Descriptor) Height() int { return d.extent[1] }

// Channels returns the extent of axis 2, always 4.
func (d *Descriptor) Channels() int { return d.extent[2] }

// ElemSize returns the size in bytes of one element, always 1.
func (d *Descriptor) ElemSize() int { return ElemSize }

// Extent returns the extent of the given axis.
func (d *Descriptor) Extent(axis int) int { return d.extent[axis] }

// Stride returns the stride, in elements, of the given axis.
func (d *Descriptor) Stride(axis int) int { return d.stride[axis] }

// Strides returns the strides of all three axes.
func (d *Descriptor) Strides() [Dims]int { return d.stride }

// Size returns the number of bytes covered by the descriptor.
func (d *Descriptor) Size() int {
	return d.extent[0] * d.extent[1] * d.extent[2] * ElemSize
}

// Offset returns the byte offset of channel c of pixel (x, y).
func (d *Descriptor) Offset(x, y, c int) int {
	return (x*d.stride[0] + y*d.stride[1] + c*d.stride[2]) * ElemSize
}

// BorrowInput points the descriptor at caller-owned pixels that must stay
// unchanged and alive until the invocation returns. Nothing reached through
// the descriptor writes them.
func (d *Descriptor) BorrowInput(pix []byte) error {
	if err := d.borrow(pix); err != nil {
		return err
	}
	d.hostReadOnly = true
	return nil
}

// BorrowOutput points the descriptor at caller-owned, pre-allocated pixels the
// invocation may overwrite. The caller keeps ownership.
func (d *Descriptor) BorrowOutput(pix []byte) error {
	if err := d.borrow(pix); err != nil {
		return err
	}
	d.hostReadOnly = false
	return nil
}

func (d *Descriptor) borrow(pix []byte) error {
	if len(pix) != d.Size() {
		return errors.Wrapf(ErrSizeMismatch, "descriptor %dx%d needs %d bytes, got %d",
			d.Width(), d.Height(), d.Size(), len(pix))
	}
	d.host = pix
	return nil
}

// Host returns the borrowed host pixels, or nil.
func (d *Descriptor) Host() []byte { return d.host }

// HasHost reports whether host memory is attached.
func (d *Descriptor) HasHost() bool { return d.host != nil }

// WritableHost returns the host pixels for writing. Input borrows are refused.
func (d *Descriptor) WritableHost() ([]byte, error) {
	if d.host == nil {
		return nil, ErrNoHost
	}
	if d.hostReadOnly {
		return nil, ErrReadOnlyHost
	}
	return d.host, nil
}

// HostDirty reports whether the host copy is newer than any device copy.
func (d *Descriptor) HostDirty() bool { return d.hostDirty }

// SetHostDirty marks the host copy as newer than any device copy, so the
// runtime uploads it before device use.
func (d *Descriptor) SetHostDirty(dirty bool) error {
	if dirty && d.host == nil {
		return ErrNoHost
	}
	if dirty && d.deviceDirty {
		return ErrConflictingResidency
	}
	d.hostDirty = dirty
	return nil
}

// DeviceDirty reports whether the device copy is newer than the host copy.
func (d *Descriptor) DeviceDirty() bool { return d.deviceDirty }

// Texture returns the device texture backing the descriptor, if any.
func (d *Descriptor) Texture() (gpu.TextureHandle, bool) {
	if d.dev == nil {
		return 0, false
	}
	return d.dev.tex, true
}

// State returns the wrap/detach state.
func (d *Descriptor) State() BindingState { return d.state }

// Validate checks that the descriptor can be handed to an entry point.
func (d *Descriptor) Validate() error {
	if d.extent[0] <= 0 || d.extent[1] <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", d.extent[0], d.extent[1])
	}
	if d.host == nil && d.dev == nil {
		return ErrInvalidDescriptor
	}
	if d.hostDirty && d.deviceDirty {
		return ErrConflictingResidency
	}
	return nil
}

func (d *Descriptor) textureDescriptor(label string) gpu.TextureDescriptor {
	return gpu.NewTextureDescriptor(label, d.Width(), d.Height())
}
