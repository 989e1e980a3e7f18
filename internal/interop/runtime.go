package interop

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/filterdemo/internal/gpu"
)

// Runtime moves descriptor data between host memory and a device and keeps
// track of which textures descriptors are bound to.
//
// The runtime never creates a device context. The host application installs
// a gpu.ContextProvider when building the runtime; the first operation that
// needs the device activates the provider's context and adopts its device.
// ReleaseAllDeviceState ends the runtime's use of that context and must run
// before the provider tears the context down.
//
// A Runtime is not safe for concurrent use.
type Runtime struct {
	provider gpu.ContextProvider
	device   gpu.Device
	released bool

	// wrapped maps caller textures to the descriptor currently wrapping them.
	wrapped map[gpu.TextureHandle]*Descriptor
	// owned maps textures the runtime allocated to the descriptor using them.
	owned map[gpu.TextureHandle]*Descriptor
}

// NewRuntime installs provider as the runtime's only source of a device context.
func NewRuntime(provider gpu.ContextProvider) *Runtime {
	return &Runtime{
		provider: provider,
		wrapped:  make(map[gpu.TextureHandle]*Descriptor),
		owned:    make(map[gpu.TextureHandle]*Descriptor),
	}
}

// Released reports whether ReleaseAllDeviceState already ran.
func (r *Runtime) Released() bool { return r.released }

// Bindings reports how many textures are currently wrapped and how many
// device copies the runtime owns.
func (r *Runtime) Bindings() (wrapped, owned int) {
	return len(r.wrapped), len(r.owned)
}

// acquireDevice returns the provider's device, activating its context on
// first use.
func (r *Runtime) acquireDevice() (gpu.Device, error) {
	if r.released {
		return nil, ErrRuntimeReleased
	}
	if r.device != nil {
		return r.device, nil
	}
	if r.provider == nil {
		return nil, ErrNoContextProvider
	}
	if err := r.provider.MakeCurrent(); err != nil {
		return nil, contextLost("activate context", err)
	}
	dev, ok := r.provider.Device().(gpu.Device)
	if !ok || dev == nil {
		return nil, ErrUnsupportedDevice
	}
	r.device = dev
	info := dev.Info()
	Logger().Info("Device context adopted", "device", info.Name, "type", info.Type)
	return dev, nil
}

// Wrap binds a caller-owned texture to d for the duration of one invocation.
// The texture becomes d's authoritative data. d must be Unbound; wrapping it a
// second time before Detach fails with ErrAlreadyWrapped, and a detached
// descriptor cannot be wrapped again.
func (r *Runtime) Wrap(d *Descriptor, tex gpu.TextureHandle) error {
	switch d.state {
	case Wrapped:
		return ErrAlreadyWrapped
	case Detached:
		return ErrDetachedDescriptor
	}
	if d.dev != nil || d.hostDirty {
		return errors.WithMessage(ErrConflictingResidency, "wrap")
	}

	dev, err := r.acquireDevice()
	if err != nil {
		return err
	}
	if other, ok := r.wrapped[tex]; ok && other != d {
		return errors.Wrapf(ErrTextureInUse, "texture %d", tex)
	}
	desc, err := dev.Describe(tex)
	if err != nil {
		return errors.WithMessagef(err, "wrap texture %d", tex)
	}
	if desc.Width() != d.Width() || desc.Height() != d.Height() {
		return errors.Wrapf(ErrSizeMismatch, "texture %d is %dx%d, descriptor is %dx%d",
			tex, desc.Width(), desc.Height(), d.Width(), d.Height())
	}

	d.dev = &deviceCopy{tex: tex}
	d.deviceDirty = false
	d.state = Wrapped
	r.wrapped[tex] = d

	Logger().Debug("Texture wrapped", "texture", tex)
	return nil
}

// Detach ends d's association with its wrapped texture without deleting the
// texture; the caller deletes it afterwards. Results written by a kernel stay
// in the texture.
//
// Detach on an Unbound or already Detached descriptor is a no-op. A
// descriptor whose device copy was allocated by the runtime is not wrapped:
// Detach returns ErrNotWrapped and Release frees it instead.
func (r *Runtime) Detach(d *Descriptor) error {
	switch d.state {
	case Unbound:
		if d.dev != nil && d.dev.owned {
			return ErrNotWrapped
		}
		return nil
	case Detached:
		return nil
	}

	tex := d.dev.tex
	d.dev = nil
	d.deviceDirty = false
	d.state = Detached

	if r.released {
		return errors.WithMessagef(ErrRuntimeReleased, "detach texture %d", tex)
	}
	delete(r.wrapped, tex)

	Logger().Debug("Texture detached", "texture", tex)
	return nil
}

// CopyToDevice makes the device copy of d current, allocating a
// runtime-owned texture if d has none. Host data is uploaded when it is
// dirty or the device copy is new.
func (r *Runtime) CopyToDevice(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	dev, err := r.acquireDevice()
	if err != nil {
		return err
	}

	if d.dev == nil {
		tex, err := dev.CreateTexture(d.textureDescriptor("staged-input"), nil)
		if err != nil {
			return errors.WithMessage(err, "allocate device copy")
		}
		d.dev = &deviceCopy{tex: tex, owned: true}
		r.owned[tex] = d
		d.hostDirty = true
	}

	if !d.hostDirty {
		return nil
	}
	if err := dev.Upload(d.dev.tex, d.host); err != nil {
		return errors.WithMessagef(err, "upload to texture %d", d.dev.tex)
	}
	d.hostDirty = false

	Logger().Debug("Copied to device", "texture", d.dev.tex, "bytes", d.Size())
	return nil
}

// PrepareOutput ensures d has a device copy a kernel can write. Host data
// is not uploaded.
func (r *Runtime) PrepareOutput(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.dev != nil {
		return nil
	}
	dev, err := r.acquireDevice()
	if err != nil {
		return err
	}
	tex, err := dev.CreateTexture(d.textureDescriptor("staged-output"), nil)
	if err != nil {
		return errors.WithMessage(err, "allocate device output")
	}
	d.dev = &deviceCopy{tex: tex, owned: true}
	d.hostDirty = false
	r.owned[tex] = d
	return nil
}

// Dispatch runs k on the device reading in and writing out. Afterwards the
// device copy of out is authoritative until CopyToHost.
func (r *Runtime) Dispatch(k gpu.Kernel, in, out *Descriptor) error {
	if err := r.CopyToDevice(in); err != nil {
		return errors.WithMessage(err, "input")
	}
	if err := r.PrepareOutput(out); err != nil {
		return errors.WithMessage(err, "output")
	}
	if err := r.device.Dispatch(k, in.dev.tex, out.dev.tex); err != nil {
		return errors.WithMessagef(err, "dispatch %s", k.Name)
	}
	out.deviceDirty = true
	return nil
}

// CopyToHost copies a newer device copy of d back into its host memory and
// blocks until the transfer finished. It is a no-op when the host copy is
// already current.
func (r *Runtime) CopyToHost(d *Descriptor) error {
	if !d.deviceDirty {
		return nil
	}
	if d.host == nil {
		return ErrNoHost
	}
	if d.hostReadOnly {
		return ErrReadOnlyHost
	}
	dev, err := r.acquireDevice()
	if err != nil {
		return err
	}
	dev.Poll(true)
	if err := dev.Download(d.dev.tex, d.host); err != nil {
		return errors.WithMessagef(err, "download texture %d", d.dev.tex)
	}
	d.deviceDirty = false

	Logger().Debug("Copied to host", "texture", d.dev.tex, "bytes", d.Size())
	return nil
}

// Release frees a device copy the runtime allocated for d. Wrapped textures
// and descriptors without a device copy are left alone. A device copy that
// is newer than the host copy is lost.
func (r *Runtime) Release(d *Descriptor) error {
	if d.dev == nil || !d.dev.owned {
		return nil
	}
	tex := d.dev.tex
	d.dev = nil
	if d.deviceDirty {
		Logger().Warn("Releasing device copy that was never copied to host", "texture", tex)
		d.deviceDirty = false
	}
	if r.released {
		return nil
	}
	delete(r.owned, tex)
	if err := r.device.DeleteTexture(tex); err != nil {
		return errors.WithMessagef(err, "free texture %d", tex)
	}
	return nil
}

// ReleaseAllDeviceState frees every device copy the runtime allocated and
// forgets every texture binding. It runs once at shutdown, after all
// invocations and before the context provider destroys its context; later
// device operations fail with ErrRuntimeReleased. Calling it again is a no-op.
func (r *Runtime) ReleaseAllDeviceState() error {
	if r.released {
		return nil
	}
	r.released = true
	owned, wrapped := r.owned, r.wrapped
	r.owned, r.wrapped = nil, nil

	if r.device == nil {
		Logger().Info("Device state released", "context", "never activated")
		return nil
	}
	dev := r.device
	r.device = nil

	if err := r.provider.MakeCurrent(); err != nil {
		return contextLost("release device state", err)
	}

	if len(wrapped) > 0 {
		Logger().Warn("Forgetting textures that were never detached", "count", len(wrapped))
	}

	var firstErr error
	for tex, d := range owned {
		d.dev = nil
		d.deviceDirty = false
		if err := dev.DeleteTexture(tex); err != nil && firstErr == nil {
			firstErr = errors.WithMessagef(err, "free texture %d", tex)
		}
	}

	Logger().Info("Device state released", "freed", len(owned), "forgotten", len(wrapped))
	return firstErr
}
