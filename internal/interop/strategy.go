package interop

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/filterdemo/internal/gpu"
	"github.com/cwbudde/filterdemo/internal/timer"
)

// Strategy names where pixel data lives before, during and after a filter run.
type Strategy string

const (
	// StrategyHost keeps everything in host memory and runs the CPU variant.
	StrategyHost Strategy = "host"
	// StrategyStaged starts and ends in host memory; the runtime stages the
	// data through device copies for the device variant.
	StrategyStaged Strategy = "staged"
	// StrategyDevice starts and ends in caller-owned textures.
	StrategyDevice Strategy = "device"
)

// ErrUnknownStrategy is returned by ParseStrategy.
var ErrUnknownStrategy = errors.New("interop: unknown strategy")

// Strategies returns every strategy in display order.
func Strategies() []Strategy {
	return []Strategy{StrategyHost, StrategyStaged, StrategyDevice}
}

// Label is the human-readable name used in reports.
func (s Strategy) Label() string {
	switch s {
	case StrategyHost:
		return "CPU"
	case StrategyStaged:
		return "Device host-to-host"
	case StrategyDevice:
		return "Device texture-to-texture"
	default:
		return string(s)
	}
}

// ParseStrategy maps user input to a strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "host", "cpu":
		return StrategyHost, nil
	case "staged", "host-to-host", "hybrid":
		return StrategyStaged, nil
	case "device", "texture", "texture-to-texture":
		return StrategyDevice, nil
	default:
		return "", errors.Wrapf(ErrUnknownStrategy, "%q", name)
	}
}

// ParseStrategies parses a comma-separated list, keeping order and dropping
// duplicates.
func ParseStrategies(list string) ([]Strategy, error) {
	var out []Strategy
	seen := make(map[Strategy]bool)
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.Wrap(ErrUnknownStrategy, "empty strategy list")
	}
	return out, nil
}

// RunHostResident runs the CPU variant of p from src into dst. src is only
// read. dst must be w*h*4 bytes, allocated and zeroed by the caller, and holds
// the result when RunHostResident returns.
func RunHostResident(p Pipeline, src, dst []byte, width, height int) (timer.Report, error) {
	stamp := timer.Start(StrategyHost.Label())

	in := NewDescriptor(width, height)
	if err := in.BorrowInput(src); err != nil {
		return timer.Report{}, err
	}
	out := NewDescriptor(width, height)
	if err := out.BorrowOutput(dst); err != nil {
		return timer.Report{}, err
	}

	if _, err := Invoke(p.Name+"/cpu", p.CPU, &in, &out); err != nil {
		return timer.Report{}, err
	}
	return stamp.Stop(), nil
}

// RunStaged runs the device variant of p on host memory. The input is
// marked host-dirty so the runtime uploads it; the output is copied back to
// dst before RunStaged returns. Device copies the runtime allocated are freed
// on every return path.
func (r *Runtime) RunStaged(p Pipeline, src, dst []byte, width, height int) (report timer.Report, err error) {
	stamp := timer.Start(StrategyStaged.Label())

	in := NewDescriptor(width, height)
	if err := in.BorrowInput(src); err != nil {
		return timer.Report{}, err
	}
	if err := in.SetHostDirty(true); err != nil {
		return timer.Report{}, err
	}
	out := NewDescriptor(width, height)
	if err := out.BorrowOutput(dst); err != nil {
		return timer.Report{}, err
	}
	defer r.cleanup("release input", r.Release, &in, &err)
	defer r.cleanup("release output", r.Release, &out, &err)

	if _, err := Invoke(p.Name+"/device", p.Device, &in, &out); err != nil {
		return timer.Report{}, err
	}
	if err := r.CopyToHost(&out); err != nil {
		return timer.Report{}, errors.WithMessage(err, "copy result to host")
	}
	return stamp.Stop(), nil
}

// RunDeviceResident runs the device variant of p from the texture src into
// the texture dst. No host memory is involved. Both textures are wrapped for
// the call and detached afterwards, output first, on every return path; the
// caller keeps ownership and deletes them after this returns.
func (r *Runtime) RunDeviceResident(p Pipeline, src, dst gpu.TextureHandle, width, height int) (report timer.Report, err error) {
	stamp := timer.Start(StrategyDevice.Label())

	in := NewDescriptor(width, height)
	if err := r.Wrap(&in, src); err != nil {
		return timer.Report{}, errors.WithMessage(err, "wrap input")
	}
	defer r.cleanup("detach input", r.Detach, &in, &err)

	out := NewDescriptor(width, height)
	if err := r.Wrap(&out, dst); err != nil {
		return timer.Report{}, errors.WithMessage(err, "wrap output")
	}
	defer r.cleanup("detach output", r.Detach, &out, &err)

	if _, err := Invoke(p.Name+"/device", p.Device, &in, &out); err != nil {
		return timer.Report{}, err
	}
	return stamp.Stop(), nil
}

// cleanup runs a deferred release step. Its error becomes the function's
// error unless an earlier one is already being returned.
func (r *Runtime) cleanup(step string, release func(*Descriptor) error, d *Descriptor, err *error) {
	cerr := release(d)
	if cerr == nil {
		return
	}
	if *err == nil {
		*err = errors.WithMessage(cerr, step)
		return
	}
	Logger().Warn("Cleanup failed after error", "step", step, "error", cerr)
}
