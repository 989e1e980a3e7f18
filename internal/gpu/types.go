package gpu

import "github.com/gogpu/gputypes"

// DeviceType describes the class of a compute device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeEmulated    DeviceType = "Emulated"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// DeviceInfo captures metadata about the device backing a context.
type DeviceInfo struct {
	Name            string
	Vendor          string
	Version         string
	Type            DeviceType
	MaxComputeUnits uint32
}

// TextureHandle is an opaque identifier of a device-resident image.
// The zero value never names a live texture.
type TextureHandle uint32

// BytesPerPixel is the size of one interleaved RGBA8 texel.
const BytesPerPixel = 4

// TextureDescriptor describes a device texture. Every texture used by this
// project is a single-level 2D RGBA8 image.
type TextureDescriptor struct {
	Label     string
	Size      gputypes.Extent3D
	Dimension gputypes.TextureDimension
	Format    gputypes.TextureFormat
	Usage     gputypes.TextureUsage
}

// NewTextureDescriptor returns the descriptor for a width x height RGBA8
// texture that can be sampled, written by a kernel and copied both ways.
// Negative sizes are clamped to zero, which devices reject.
func NewTextureDescriptor(label string, width, height int) TextureDescriptor {
	width, height = max(width, 0), max(height, 0)
	return TextureDescriptor{
		Label: label,
		Size: gputypes.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Dimension: gputypes.TextureDimension2D,
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	}
}

// Width returns the texel width.
func (d TextureDescriptor) Width() int { return int(d.Size.Width) }

// Height returns the texel height.
func (d TextureDescriptor) Height() int { return int(d.Size.Height) }

// ByteSize returns the number of bytes of one full copy of the texture.
func (d TextureDescriptor) ByteSize() int {
	return d.Width() * d.Height() * BytesPerPixel
}

// PlatformInfo captures metadata about an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceInfo
}
