// Package demo runs one filter through every residency strategy and
// composes the results into a labelled 2x2 comparison image.
package demo

import (
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/cwbudde/filterdemo/internal/compare"
	"github.com/cwbudde/filterdemo/internal/display"
	"github.com/cwbudde/filterdemo/internal/filter"
	"github.com/cwbudde/filterdemo/internal/gpu"
	"github.com/cwbudde/filterdemo/internal/imageio"
	"github.com/cwbudde/filterdemo/internal/interop"
	"github.com/cwbudde/filterdemo/internal/timer"
)

// InputLabel captions the unfiltered image.
const InputLabel = "Input"

// Config selects what Run does.
type Config struct {
	ImagePath   string
	Filter      string
	Backend     string
	Strategies  []interop.Strategy
	OutPath     string
	LabelHeight int
}

// Variant is the outcome of one strategy.
type Variant struct {
	Strategy interop.Strategy
	Label    string
	Region   display.Region
	Report   timer.Report
	// Caption is the text drawn under the variant's quadrant.
	Caption  string
	Checksum uint32
	// Diff is the difference from the CPU reference.
	Diff compare.Stats
	// Match reports whether the output equals the CPU reference byte for byte.
	Match bool
}

// Result summarizes a demo run.
type Result struct {
	ImagePath     string
	Width         int
	Height        int
	Filter        string
	Backend       string
	Device        string
	Reference     uint32
	Variants      []Variant
	CompositePath string
}

// AllMatch reports whether every variant reproduced the CPU reference.
func (r *Result) AllMatch() bool {
	for _, v := range r.Variants {
		if !v.Match {
			return false
		}
	}
	return true
}

// RegionFor returns the window quadrant a strategy draws into.
func RegionFor(s interop.Strategy) display.Region {
	switch s {
	case interop.StrategyStaged:
		return display.LL
	case interop.StrategyDevice:
		return display.LR
	default:
		return display.UR
	}
}

// Run loads the image, runs the filter through each selected strategy and
// writes the composite. The interop runtime releases its device state before
// the window destroys the device context, on every return path.
func Run(cfg Config) (res *Result, err error) {
	if cfg.Filter == "" {
		cfg.Filter = filter.DefaultName
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = interop.Strategies()
	}
	if cfg.LabelHeight == 0 {
		cfg.LabelHeight = display.DefaultLabelHeight
	}

	kernel, err := filter.Lookup(cfg.Filter)
	if err != nil {
		return nil, err
	}

	img, err := imageio.Load(cfg.ImagePath)
	if err != nil {
		return nil, err
	}
	slog.Info("Image loaded", "path", cfg.ImagePath, "width", img.Width, "height", img.Height)

	layout := display.SetupWithLabel(img.Width, img.Height, cfg.LabelHeight)
	win, err := display.Open(layout, cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("open display: %w", err)
	}
	defer win.Terminate()

	rt := interop.NewRuntime(win)
	defer func() {
		if rerr := rt.ReleaseAllDeviceState(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release device state: %w", rerr))
		}
	}()

	p := filter.Compile(kernel, rt)
	res = &Result{
		ImagePath: cfg.ImagePath,
		Width:     img.Width,
		Height:    img.Height,
		Filter:    kernel.Name,
		Backend:   string(gpu.NormalizeBackend(cfg.Backend)),
	}
	if dev, ok := win.Device().(gpu.Device); ok {
		res.Device = dev.Info().Name
	}

	if err := win.DrawImage(display.UL, img.Pix, img.Width, img.Height, InputLabel); err != nil {
		return nil, err
	}

	reference := img.Blank()
	if _, err := interop.RunHostResident(p, img.Pix, reference.Pix, img.Width, img.Height); err != nil {
		return nil, fmt.Errorf("cpu reference: %w", err)
	}
	res.Reference = crc32.ChecksumIEEE(reference.Pix)

	for _, s := range cfg.Strategies {
		out, report, err := runStrategy(s, win, rt, p, img)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Label(), err)
		}

		// The device strategy already drew its texture.
		if s != interop.StrategyDevice {
			if err := win.DrawImage(RegionFor(s), out, img.Width, img.Height, report.String()); err != nil {
				return nil, err
			}
		}

		diff, err := compare.RGBA(out, reference.Pix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Label(), err)
		}
		v := Variant{
			Strategy: s,
			Label:    s.Label(),
			Region:   RegionFor(s),
			Report:   report,
			Caption:  win.Caption(RegionFor(s)),
			Checksum: crc32.ChecksumIEEE(out),
			Diff:     diff,
			Match:    diff.Identical(),
		}
		if !v.Match {
			slog.Warn("Output differs from CPU reference",
				"strategy", s,
				"differing", v.Diff.Differing,
				"max_delta", v.Diff.MaxDelta,
				"checksum", v.Checksum,
				"reference", res.Reference,
			)
		}
		slog.Info("Strategy finished", "strategy", s, "elapsed", report.Elapsed, "match", v.Match)
		res.Variants = append(res.Variants, v)
	}

	if cfg.OutPath != "" {
		if err := win.Save(cfg.OutPath); err != nil {
			return nil, err
		}
		res.CompositePath = cfg.OutPath
		slog.Info("Composite written", "path", cfg.OutPath)
	}
	return res, nil
}

func runStrategy(s interop.Strategy, win *display.Window, rt *interop.Runtime, p interop.Pipeline, img *imageio.Image) ([]byte, timer.Report, error) {
	switch s {
	case interop.StrategyHost:
		out := make([]byte, len(img.Pix))
		report, err := interop.RunHostResident(p, img.Pix, out, img.Width, img.Height)
		return out, report, err
	case interop.StrategyStaged:
		out := make([]byte, len(img.Pix))
		report, err := rt.RunStaged(p, img.Pix, out, img.Width, img.Height)
		return out, report, err
	case interop.StrategyDevice:
		return runTextures(win, rt, p, img)
	default:
		return nil, timer.Report{}, fmt.Errorf("%w: %q", interop.ErrUnknownStrategy, s)
	}
}

// runTextures uploads the input into a caller-owned texture, filters it into
// a second one, reads the result back for verification and draws the texture
// into its quadrant. Both textures are deleted after the runtime detached them.
func runTextures(win *display.Window, rt *interop.Runtime, p interop.Pipeline, img *imageio.Image) (out []byte, report timer.Report, err error) {
	src, err := win.CreateTexture(img.Width, img.Height, img.Pix)
	if err != nil {
		return nil, timer.Report{}, err
	}
	defer deleteTexture(win, src, &err)

	dst, err := win.CreateTexture(img.Width, img.Height, nil)
	if err != nil {
		return nil, timer.Report{}, err
	}
	defer deleteTexture(win, dst, &err)

	report, err = rt.RunDeviceResident(p, src, dst, img.Width, img.Height)
	if err != nil {
		return nil, timer.Report{}, err
	}

	out = make([]byte, len(img.Pix))
	if err := win.ReadTexture(dst, out); err != nil {
		return nil, timer.Report{}, err
	}
	if err := win.DrawTexture(RegionFor(interop.StrategyDevice), dst, img.Width, img.Height, report.String()); err != nil {
		return nil, timer.Report{}, err
	}
	return out, report, nil
}

func deleteTexture(win *display.Window, tex gpu.TextureHandle, err *error) {
	if derr := win.DeleteTexture(tex); derr != nil && *err == nil {
		*err = derr
	}
}
