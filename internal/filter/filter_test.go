package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/filterdemo/internal/display"
	"github.com/cwbudde/filterdemo/internal/filter"
	"github.com/cwbudde/filterdemo/internal/gpu"
	"github.com/cwbudde/filterdemo/internal/interop"
)

func TestLookup(t *testing.T) {
	for _, name := range filter.Names() {
		k, err := filter.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, k.Name)
		assert.NotNil(t, k.Apply)
	}

	k, err := filter.Lookup("  INVERT ")
	require.NoError(t, err)
	assert.Equal(t, "invert", k.Name)

	_, err = filter.Lookup("sharpen")
	assert.ErrorIs(t, err, filter.ErrUnknownFilter)
}

func TestNamesSortedAndContainDefault(t *testing.T) {
	names := filter.Names()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, filter.DefaultName)
}

func TestInvertKeepsAlpha(t *testing.T) {
	src := []byte{0, 10, 200, 128, 255, 255, 255, 0}
	dst := make([]byte, len(src))
	filter.Invert().Apply(dst, src, 2, 1)
	assert.Equal(t, []byte{255, 245, 55, 128, 0, 0, 0, 0}, dst)
}

func TestIdentityCopies(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)
	filter.Identity().Apply(dst, src, 1, 1)
	assert.Equal(t, src, dst)
}

func TestGrayscale(t *testing.T) {
	src := []byte{
		255, 255, 255, 255,
		0, 0, 0, 255,
		100, 100, 100, 255,
	}
	dst := make([]byte, len(src))
	filter.Grayscale().Apply(dst, src, 3, 1)
	assert.Equal(t, src, dst)

	src = []byte{255, 0, 0, 255}
	dst = make([]byte, 4)
	filter.Grayscale().Apply(dst, src, 1, 1)
	assert.Equal(t, dst[0], dst[1])
	assert.Equal(t, dst[1], dst[2])
	assert.InDelta(t, 76, int(dst[0]), 1)
}

func TestBlurHasNoDeviceProgram(t *testing.T) {
	k := filter.Blur(1)
	assert.Empty(t, k.OpenCL)

	// A flat image stays flat.
	src := make([]byte, 4*4*gpu.BytesPerPixel)
	for i := range src {
		src[i] = 77
	}
	dst := make([]byte, len(src))
	k.Apply(dst, src, 4, 4)
	for i := range dst {
		assert.InDelta(t, 77, int(dst[i]), 1)
	}
}

func TestCPUEntryRefusesReadOnlyOutput(t *testing.T) {
	entry := filter.CPUEntry(filter.Identity())

	in := interop.NewDescriptor(1, 1)
	require.NoError(t, in.BorrowInput([]byte{1, 2, 3, 4}))
	out := interop.NewDescriptor(1, 1)
	require.NoError(t, out.BorrowInput(make([]byte, 4)))

	err := entry(&in, &out)
	assert.ErrorIs(t, err, interop.ErrReadOnlyHost)
}

func TestDeviceEntryMatchesCPU(t *testing.T) {
	const width, height = 3, 2
	win := display.NewWindow(display.Setup(width, height), gpu.NewSoftDevice())
	rt := interop.NewRuntime(win)
	defer func() {
		require.NoError(t, rt.ReleaseAllDeviceState())
		win.Terminate()
	}()

	src := make([]byte, width*height*gpu.BytesPerPixel)
	for i := range src {
		src[i] = byte(i * 11)
	}

	for _, name := range filter.Names() {
		t.Run(name, func(t *testing.T) {
			k, err := filter.Lookup(name)
			require.NoError(t, err)
			p := filter.Compile(k, rt)

			cpu := make([]byte, len(src))
			_, err = interop.RunHostResident(p, src, cpu, width, height)
			require.NoError(t, err)

			staged := make([]byte, len(src))
			_, err = rt.RunStaged(p, src, staged, width, height)
			require.NoError(t, err)

			assert.Equal(t, cpu, staged)
		})
	}
}
