package gpu

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/dustin/go-humanize"
)

// SoftDevice is a CPU-backed device. Textures live in device-private memory
// that callers can only reach through Upload and Download, so it exercises
// the same residency rules as a real GPU.
type SoftDevice struct {
	textures  map[TextureHandle]*softTexture
	next      TextureHandle
	destroyed bool
}

type softTexture struct {
	desc TextureDescriptor
	pix  []byte
}

// NewSoftDevice returns an empty emulated device.
func NewSoftDevice() *SoftDevice {
	return &SoftDevice{textures: make(map[TextureHandle]*softTexture)}
}

var _ Device = (*SoftDevice)(nil)

// Info describes the emulated device.
func (d *SoftDevice) Info() DeviceInfo {
	return DeviceInfo{
		Name:            "SoftDevice",
		Vendor:          "filterdemo",
		Version:         "1.0",
		Type:            DeviceTypeEmulated,
		MaxComputeUnits: uint32(runtime.NumCPU()),
	}
}

// Poll is a no-op: all work completes before a call returns.
func (d *SoftDevice) Poll(bool) {}

// Destroy drops every texture. Later calls fail with ErrDeviceDestroyed.
func (d *SoftDevice) Destroy() {
	if d.destroyed {
		return
	}
	slog.Debug("Soft device destroyed", "live_textures", len(d.textures))
	d.textures = nil
	d.destroyed = true
}

// Textures reports the number of live textures.
func (d *SoftDevice) Textures() int {
	return len(d.textures)
}

func (d *SoftDevice) CreateTexture(desc TextureDescriptor, pix []byte) (TextureHandle, error) {
	if d.destroyed {
		return 0, ErrDeviceDestroyed
	}
	if desc.Width() <= 0 || desc.Height() <= 0 {
		return 0, fmt.Errorf("%w: invalid texture extent %dx%d", ErrSizeMismatch, desc.Width(), desc.Height())
	}
	tex := &softTexture{desc: desc, pix: make([]byte, desc.ByteSize())}
	if pix != nil {
		if err := checkHostSize(desc, pix); err != nil {
			return 0, err
		}
		copy(tex.pix, pix)
	}

	d.next++
	d.textures[d.next] = tex

	slog.Debug("Texture created",
		"handle", d.next,
		"label", desc.Label,
		"width", desc.Width(),
		"height", desc.Height(),
		"size", humanize.Bytes(uint64(desc.ByteSize())),
	)
	return d.next, nil
}

func (d *SoftDevice) DeleteTexture(h TextureHandle) error {
	if _, err := d.lookup(h); err != nil {
		return err
	}
	delete(d.textures, h)
	slog.Debug("Texture deleted", "handle", h)
	return nil
}

func (d *SoftDevice) Describe(h TextureHandle) (TextureDescriptor, error) {
	tex, err := d.lookup(h)
	if err != nil {
		return TextureDescriptor{}, err
	}
	return tex.desc, nil
}

func (d *SoftDevice) Upload(h TextureHandle, pix []byte) error {
	tex, err := d.lookup(h)
	if err != nil {
		return err
	}
	if err := checkHostSize(tex.desc, pix); err != nil {
		return err
	}
	copy(tex.pix, pix)
	return nil
}

func (d *SoftDevice) Download(h TextureHandle, dst []byte) error {
	tex, err := d.lookup(h)
	if err != nil {
		return err
	}
	if err := checkHostSize(tex.desc, dst); err != nil {
		return err
	}
	copy(dst, tex.pix)
	return nil
}

func (d *SoftDevice) Dispatch(k Kernel, src, dst TextureHandle) error {
	if k.Apply == nil {
		return fmt.Errorf("%w: %s has no host implementation", ErrKernelUnsupported, k.Name)
	}
	in, err := d.lookup(src)
	if err != nil {
		return err
	}
	out, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if in.desc.Size != out.desc.Size {
		return fmt.Errorf("%w: dispatch %s from %dx%d into %dx%d", ErrSizeMismatch, k.Name,
			in.desc.Width(), in.desc.Height(), out.desc.Width(), out.desc.Height())
	}
	k.Apply(out.pix, in.pix, in.desc.Width(), in.desc.Height())
	return nil
}

func (d *SoftDevice) lookup(h TextureHandle) (*softTexture, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	tex, ok := d.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, h)
	}
	return tex, nil
}
