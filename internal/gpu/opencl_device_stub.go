//go:build !gpu

package gpu

import "fmt"

func openOpenCL() (Device, error) {
	return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, ErrNotBuilt)
}

// EnumeratePlatforms returns an error when OpenCL support is not compiled in.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	return nil, ErrNotBuilt
}
