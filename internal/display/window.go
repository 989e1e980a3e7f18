// Package display renders the comparison "window" off-screen: a 2x2
// composite of labelled images written to a PNG. The window owns the device
// context; textures are created and deleted through it, and it is the
// context provider the interop runtime borrows the device from.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cwbudde/filterdemo/internal/gpu"
)

var (
	// ErrTerminated is returned by every call after Terminate.
	ErrTerminated = errors.New("display terminated")
	// ErrImageSize is returned when drawn pixels do not match the layout.
	ErrImageSize = errors.New("image size does not match layout")
)

var (
	background = color.NRGBA{R: 32, G: 32, B: 32, A: 255}
	labelColor = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
)

// Window is an off-screen comparison window bound to one device context.
type Window struct {
	layout     Layout
	canvas     *image.NRGBA
	device     gpu.Device
	textures   map[gpu.TextureHandle]struct{}
	captions   map[Region]string
	activated  int
	terminated bool
}

var _ gpu.ContextProvider = (*Window)(nil)

// Open opens the device for backend and creates a window for layout.
func Open(layout Layout, backend string) (*Window, error) {
	dev, err := gpu.Open(backend)
	if err != nil {
		return nil, err
	}
	info := dev.Info()
	slog.Info("Display context created",
		"device", info.Name,
		"type", info.Type,
		"width", layout.WindowWidth,
		"height", layout.WindowHeight,
	)
	return NewWindow(layout, dev), nil
}

// NewWindow creates a window that owns dev.
func NewWindow(layout Layout, dev gpu.Device) *Window {
	canvas := image.NewNRGBA(layout.Window())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return &Window{
		layout:   layout,
		canvas:   canvas,
		device:   dev,
		textures: make(map[gpu.TextureHandle]struct{}),
		captions: make(map[Region]string),
	}
}

// Layout returns the window layout.
func (w *Window) Layout() Layout { return w.layout }

// Canvas returns the composited window contents.
func (w *Window) Canvas() *image.NRGBA { return w.canvas }

// Device implements gpucontext.DeviceProvider.
func (w *Window) Device() gpucontext.Device {
	if w.device == nil {
		return nil
	}
	return w.device
}

// Queue implements gpucontext.DeviceProvider. Submission is synchronous, so
// there is no separate queue.
func (w *Window) Queue() gpucontext.Queue { return nil }

// Adapter implements gpucontext.DeviceProvider.
func (w *Window) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo implements gpucontext.DeviceProvider from the owned device.
func (w *Window) AdapterInfo() gpucontext.AdapterInfo {
	if w.device == nil {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	info := w.device.Info()
	return gpucontext.AdapterInfo{Name: info.Name, Type: gpu.AdapterType(info.Type)}
}

// SurfaceFormat implements gpucontext.DeviceProvider.
func (w *Window) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// MakeCurrent activates the window's context. It fails once the window has
// been terminated.
func (w *Window) MakeCurrent() error {
	if w.terminated {
		return ErrTerminated
	}
	w.activated++
	slog.Debug("Display context made current", "activations", w.activated)
	return nil
}

// Caption returns the caption last drawn under region.
func (w *Window) Caption(region Region) string { return w.captions[region] }

// Activations reports how often MakeCurrent succeeded.
func (w *Window) Activations() int { return w.activated }

// Terminated reports whether Terminate ran.
func (w *Window) Terminated() bool { return w.terminated }

// CreateTexture creates a width x height texture, initialised from pix when
// it is non-nil.
func (w *Window) CreateTexture(width, height int, pix []byte) (gpu.TextureHandle, error) {
	if w.terminated {
		return 0, ErrTerminated
	}
	tex, err := w.device.CreateTexture(gpu.NewTextureDescriptor("display", width, height), pix)
	if err != nil {
		return 0, fmt.Errorf("create texture: %w", err)
	}
	w.textures[tex] = struct{}{}
	return tex, nil
}

// DeleteTexture deletes a texture created by CreateTexture.
func (w *Window) DeleteTexture(tex gpu.TextureHandle) error {
	if w.terminated {
		return ErrTerminated
	}
	if err := w.device.DeleteTexture(tex); err != nil {
		return fmt.Errorf("delete texture: %w", err)
	}
	delete(w.textures, tex)
	return nil
}

// ReadTexture copies a texture into dst, independently of any runtime
// bookkeeping.
func (w *Window) ReadTexture(tex gpu.TextureHandle, dst []byte) error {
	if w.terminated {
		return ErrTerminated
	}
	w.device.Poll(true)
	if err := w.device.Download(tex, dst); err != nil {
		return fmt.Errorf("read texture: %w", err)
	}
	return nil
}

// DrawImage draws interleaved RGBA8 pixels into region with a caption.
func (w *Window) DrawImage(region Region, pix []byte, width, height int, label string) error {
	if w.terminated {
		return ErrTerminated
	}
	if width != w.layout.ImageWidth || height != w.layout.ImageHeight || len(pix) != width*height*gpu.BytesPerPixel {
		return fmt.Errorf("%w: got %dx%d (%d bytes), layout is %dx%d",
			ErrImageSize, width, height, len(pix), w.layout.ImageWidth, w.layout.ImageHeight)
	}

	src := &image.NRGBA{Pix: pix, Stride: width * gpu.BytesPerPixel, Rect: image.Rect(0, 0, width, height)}
	draw.Draw(w.canvas, w.layout.ImageBounds(region), src, image.Point{}, draw.Src)
	w.drawLabel(region, label)
	w.captions[region] = label

	slog.Debug("Region drawn", "region", region, "label", label)
	return nil
}

// DrawTexture draws the contents of a texture into region with a caption.
func (w *Window) DrawTexture(region Region, tex gpu.TextureHandle, width, height int, label string) error {
	pix := make([]byte, width*height*gpu.BytesPerPixel)
	if err := w.ReadTexture(tex, pix); err != nil {
		return err
	}
	return w.DrawImage(region, pix, width, height, label)
}

func (w *Window) drawLabel(region Region, label string) {
	bounds := w.layout.LabelBounds(region)
	if bounds.Empty() {
		return
	}
	draw.Draw(w.canvas, bounds, image.NewUniform(background), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	baseline := bounds.Min.Y + (bounds.Dy()+face.Ascent-face.Descent)/2
	d := &font.Drawer{
		Dst:  w.canvas,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+4, baseline),
	}
	d.DrawString(label)
}

// Save writes the composited window to path; the format follows the extension.
func (w *Window) Save(path string) error {
	if err := imaging.Save(w.canvas, path); err != nil {
		return fmt.Errorf("save composite: %w", err)
	}
	return nil
}

// Terminate deletes textures still owned by the window and destroys the
// device context. The interop runtime must have released its device state
// before this runs.
func (w *Window) Terminate() {
	if w.terminated {
		return
	}
	if len(w.textures) > 0 {
		slog.Warn("Deleting textures left at shutdown", "count", len(w.textures))
		for tex := range w.textures {
			_ = w.device.DeleteTexture(tex)
		}
	}
	w.device.Destroy()
	w.terminated = true
	slog.Info("Display context destroyed")
}
