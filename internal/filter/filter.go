// Package filter provides the image filters the demo runs and compiles them
// into the CPU and device entry points the interop layer invokes.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/filterdemo/internal/gpu"
	"github.com/cwbudde/filterdemo/internal/interop"
)

// ErrUnknownFilter is returned by Lookup for names that are not registered.
var ErrUnknownFilter = errors.New("unknown filter")

// DefaultName is the filter used when none is requested.
const DefaultName = "invert"

var registry = map[string]func() gpu.Kernel{
	"identity":  Identity,
	"invert":    Invert,
	"grayscale": Grayscale,
	"blur":      func() gpu.Kernel { return Blur(2) },
}

// Names returns the registered filter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the kernel registered under name.
func Lookup(name string) (gpu.Kernel, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return gpu.Kernel{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFilter, name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

// Compile builds both entry points of k. The device entry point runs through
// rt, which uploads host-dirty inputs and leaves the result on the device.
func Compile(k gpu.Kernel, rt *interop.Runtime) interop.Pipeline {
	return interop.Pipeline{
		Name:   k.Name,
		CPU:    CPUEntry(k),
		Device: DeviceEntry(k, rt),
	}
}

// CPUEntry runs k on host memory. The input must have host pixels.
func CPUEntry(k gpu.Kernel) interop.EntryPoint {
	return func(in, out *interop.Descriptor) error {
		if !in.HasHost() {
			return fmt.Errorf("%s: cpu variant needs host input", k.Name)
		}
		dst, err := out.WritableHost()
		if err != nil {
			return fmt.Errorf("%s: output: %w", k.Name, err)
		}
		if k.Apply == nil {
			return fmt.Errorf("%w: %s has no host implementation", gpu.ErrKernelUnsupported, k.Name)
		}
		k.Apply(dst, in.Host(), in.Width(), in.Height())
		return nil
	}
}

// DeviceEntry runs k on the device through rt.
func DeviceEntry(k gpu.Kernel, rt *interop.Runtime) interop.EntryPoint {
	return func(in, out *interop.Descriptor) error {
		if rt == nil {
			return fmt.Errorf("%s: device variant needs a runtime", k.Name)
		}
		return rt.Dispatch(k, in, out)
	}
}
